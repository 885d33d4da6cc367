package models

import "strings"

// Listing holds all extracted data for a single business entity.
// Empty strings mean the field could not be recovered.
type Listing struct {
	Name         string `json:"name"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
	Website      string `json:"website,omitempty"`
	Address      string `json:"address,omitempty"`
	Rating       string `json:"rating,omitempty"`
	ReviewsCount string `json:"reviews_count,omitempty"`
	Category     string `json:"category,omitempty"`
}

// Valid reports whether the listing carries a name, the only field a
// successful extraction requires.
func (l Listing) Valid() bool {
	return strings.TrimSpace(l.Name) != ""
}

// QueryResult is sent back from each worker goroutine.
type QueryResult struct {
	Query   string
	Index   int // original position in the queries slice
	Outcome BatchOutcome
}

// ActivateResult captures the JS evaluation result when opening a feed entry.
type ActivateResult struct {
	OK    bool `json:"ok"`
	Count int  `json:"count"`
}
