package utils

import (
	"strings"

	"maps-scraper/models"
)

// NameKey normalises a business name for duplicate detection.
func NameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// MergeByName appends incoming listings to existing, skipping nameless
// records and any name already present. The first occurrence wins.
func MergeByName(existing, incoming []models.Listing) []models.Listing {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]models.Listing, 0, len(existing)+len(incoming))
	for _, batch := range [][]models.Listing{existing, incoming} {
		for _, l := range batch {
			key := NameKey(l.Name)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, l)
		}
	}
	return out
}
