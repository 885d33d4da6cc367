package services

import (
	"context"
	"fmt"

	"maps-scraper/models"
)

// fakeFeed is an in-memory Browser: a feed of available entries of which
// visible are materialized, growing by step per Grow.
type fakeFeed struct {
	visible   int
	available int
	step      int

	activate func(i int) (bool, error)
	extract  func(i int) (models.Listing, error)

	searchErr error

	current     int
	activations []int
	grows       int
	counts      int
	searched    string
	released    int
}

func (f *fakeFeed) CountVisible(context.Context) int {
	f.counts++
	return f.visible
}

func (f *fakeFeed) Grow(context.Context) bool {
	f.grows++
	if f.visible >= f.available {
		return false
	}
	step := f.step
	if step <= 0 {
		step = 1
	}
	f.visible = min(f.visible+step, f.available)
	return true
}

func (f *fakeFeed) Activate(_ context.Context, i int) (bool, error) {
	f.activations = append(f.activations, i)
	if f.activate != nil {
		if ok, err := f.activate(i); !ok || err != nil {
			return ok, err
		}
	}
	if i < 0 || i >= f.visible {
		return false, nil
	}
	f.current = i
	return true, nil
}

func (f *fakeFeed) Extract(context.Context) (models.Listing, error) {
	if f.extract != nil {
		return f.extract(f.current)
	}
	name := fmt.Sprintf("Business %d", f.current)
	if f.searched != "" {
		name = fmt.Sprintf("%s #%d", f.searched, f.current)
	}
	return models.Listing{Name: name, Phone: "(415) 555-0199"}, nil
}

func (f *fakeFeed) Search(_ context.Context, query string) error {
	f.searched = query
	return f.searchErr
}

func (f *fakeFeed) Release() {
	f.released++
}

func saturated(n int) *fakeFeed {
	return &fakeFeed{visible: n, available: n}
}
