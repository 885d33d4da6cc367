package main

import (
	"log"

	"maps-scraper/cli"
)

// Same command tree as cmd/mapscraper, for `go run .`.
func main() {
	if err := cli.Execute(); err != nil {
		log.Fatalf("✗ %v", err)
	}
}
