package tise

import "encoding/json"

// UserLookupResult is the envelope returned by GET /api/users/{handle}.
type UserLookupResult struct {
	Result struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"result"`
}

// ListingPage is the envelope returned by the listings endpoint. Next is the
// opaque cursor for the following page; null or absent means the walk is done.
type ListingPage struct {
	Results []json.RawMessage `json:"results"`
	Next    *string           `json:"next"`
}

// RawListing is one listing record as the API serves it. Raw retains the full
// source payload for forward compatibility.
type RawListing struct {
	ID          string        `json:"id"`
	ShortCode   string        `json:"a"`
	Title       string        `json:"title"`
	Caption     string        `json:"caption"`
	Price       int64         `json:"price"`
	CreatedAt   string        `json:"createdAt"`
	Sold        bool          `json:"sold"`
	Category    string        `json:"category"`
	Condition   string        `json:"condition"`
	ProductSize string        `json:"productSize"`
	Location    *RawLocation  `json:"location"`
	Colors      []RawColor    `json:"colors"`
	ImageSets   []RawImageSet `json:"imageSets"`

	Raw json.RawMessage `json:"-"`
}

// RawLocation is the nested location object on a listing.
type RawLocation struct {
	Label string `json:"label"`
}

// RawColor is one entry of a listing's colors collection.
type RawColor struct {
	Name string `json:"name"`
}

// RawImageSet is one entry of a listing's imageSets collection. Only the
// original-quality variant is consumed; entries without one are dropped.
type RawImageSet struct {
	Original string `json:"original"`
}
