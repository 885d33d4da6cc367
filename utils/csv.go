package utils

import (
	"encoding/csv"
	"os"

	"maps-scraper/models"
)

var csvHeader = []string{
	"name", "phone", "email", "website", "address", "rating", "reviews_count", "category",
}

// WriteCSV writes listings into one flat CSV file with a header row.
// Returns the total number of data rows written.
func WriteCSV(filename string, listings []models.Listing) (int, error) {
	f, err := os.Create(filename)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(csvHeader); err != nil {
		return 0, err
	}

	total := 0
	for _, l := range listings {
		row := []string{
			l.Name,
			l.Phone,
			l.Email,
			l.Website,
			l.Address,
			l.Rating,
			l.ReviewsCount,
			l.Category,
		}
		if err := w.Write(row); err != nil {
			return total, err
		}
		total++
	}
	w.Flush()
	return total, w.Error()
}
