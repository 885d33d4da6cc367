package services

import (
	"sync"

	"maps-scraper/models"
)

// serialize wraps fn so concurrent batches never invoke it at the same time.
func serialize(fn models.ProgressFunc) models.ProgressFunc {
	var mu sync.Mutex
	return func(ev models.ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		fn(ev)
	}
}

// Recorder keeps every event it receives; handy for summaries and tests.
type Recorder struct {
	mu     sync.Mutex
	events []models.ProgressEvent
}

// Record is a models.ProgressFunc.
func (r *Recorder) Record(ev models.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []models.ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ProgressEvent(nil), r.events...)
}

// Stages returns the recorded stages in order.
func (r *Recorder) Stages() []models.Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Stage, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Stage
	}
	return out
}
