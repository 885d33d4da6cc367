package utils

import (
	"sort"
	"strconv"
	"strings"

	"maps-scraper/models"
)

type CategoryCount struct {
	Category string
	Count    int
}

// ContactCoverage counts listings carrying each contact field.
type ContactCoverage struct {
	Phone   int
	Email   int
	Website int
	Address int
}

type SummaryStats struct {
	TotalListings      int
	RatedListings      int
	AverageRating      float64
	TotalReviews       int
	Contacts           ContactCoverage
	TopCategories      []CategoryCount
	TopRatedListings   []models.Listing
	QueriesWithErrors  int
	QueriesWithResults int
}

// BuildSummaryStats summarises listings gathered across query results.
func BuildSummaryStats(results []models.QueryResult) SummaryStats {
	all := Collect(results)
	stats := SummaryStats{TotalListings: len(all)}
	for _, r := range results {
		if r.Outcome.Err != nil {
			stats.QueriesWithErrors++
		}
		if len(r.Outcome.Listings) > 0 {
			stats.QueriesWithResults++
		}
	}
	if len(all) == 0 {
		return stats
	}

	type rated struct {
		listing models.Listing
		rating  float64
		reviews int
	}
	var ratedListings []rated
	var ratingSum float64
	categoryCounts := make(map[string]int)

	for _, l := range all {
		reviews := ParseReviews(l.ReviewsCount)
		stats.TotalReviews += reviews
		if r, ok := ParseRating(l.Rating); ok {
			ratedListings = append(ratedListings, rated{listing: l, rating: r, reviews: reviews})
			ratingSum += r
		}
		if l.Phone != "" {
			stats.Contacts.Phone++
		}
		if l.Email != "" {
			stats.Contacts.Email++
		}
		if l.Website != "" {
			stats.Contacts.Website++
		}
		if l.Address != "" {
			stats.Contacts.Address++
		}
		if c := strings.TrimSpace(l.Category); c != "" {
			categoryCounts[c]++
		}
	}

	stats.RatedListings = len(ratedListings)
	if len(ratedListings) > 0 {
		stats.AverageRating = ratingSum / float64(len(ratedListings))
	}

	perCategory := make([]CategoryCount, 0, len(categoryCounts))
	for c, n := range categoryCounts {
		perCategory = append(perCategory, CategoryCount{Category: c, Count: n})
	}
	sort.Slice(perCategory, func(i, j int) bool {
		if perCategory[i].Count == perCategory[j].Count {
			return perCategory[i].Category < perCategory[j].Category
		}
		return perCategory[i].Count > perCategory[j].Count
	})
	if len(perCategory) > 10 {
		perCategory = perCategory[:10]
	}
	stats.TopCategories = perCategory

	sort.SliceStable(ratedListings, func(i, j int) bool {
		if ratedListings[i].rating == ratedListings[j].rating {
			return ratedListings[i].reviews > ratedListings[j].reviews
		}
		return ratedListings[i].rating > ratedListings[j].rating
	})
	if len(ratedListings) > 5 {
		ratedListings = ratedListings[:5]
	}
	for _, r := range ratedListings {
		stats.TopRatedListings = append(stats.TopRatedListings, r.listing)
	}

	return stats
}

// ParseRating parses a decimal rating string such as "4.6".
func ParseRating(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseReviews parses a digit-grouped count such as "1,284"; 0 when absent.
func ParseReviews(s string) int {
	v, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil {
		return 0
	}
	return v
}
