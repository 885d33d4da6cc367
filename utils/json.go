package utils

import (
	"encoding/json"
	"os"

	"maps-scraper/models"
)

// WriteJSON writes listings into a single flat JSON array.
// Returns the total number of listings written.
func WriteJSON(filename string, listings []models.Listing) (int, error) {
	if listings == nil {
		listings = []models.Listing{}
	}

	f, err := os.Create(filename)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(listings); err != nil {
		return 0, err
	}

	return len(listings), nil
}

// Collect flattens the listings of successful or partially successful
// query results, in query order.
func Collect(results []models.QueryResult) []models.Listing {
	all := make([]models.Listing, 0)
	for _, r := range results {
		all = append(all, r.Outcome.Listings...)
	}
	return all
}
