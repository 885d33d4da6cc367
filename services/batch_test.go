package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"maps-scraper/models"
	"maps-scraper/scraper"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func run(t *testing.T, f *fakeFeed, target int, cancel *CancelToken) ([]models.Listing, string, error, *Recorder) {
	t.Helper()
	rec := &Recorder{}
	listings, status, err := Extract(context.Background(), f, Options{BatchID: "b1", Target: target, Cancel: cancel}, rec.Record)
	return listings, status, err, rec
}

func countStage(events []models.ProgressEvent, stage models.Stage) int {
	n := 0
	for _, ev := range events {
		if ev.Stage == stage {
			n++
		}
	}
	return n
}

func TestExtract_HappyPathEvents(t *testing.T) {
	f := saturated(2)
	listings, status, err, rec := run(t, f, 2, nil)

	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, status)
	require.Len(t, listings, 2)
	assert.Equal(t, "Business 0", listings[0].Name)
	assert.Equal(t, "Business 1", listings[1].Name)

	assert.Equal(t, []models.Stage{
		models.StageProcessing, models.StageExtracting, models.StageSuccess,
		models.StageProcessing, models.StageExtracting, models.StageSuccess,
		models.StageCompleted,
	}, rec.Stages())

	events := rec.Events()
	assert.Equal(t, "Business 0", events[2].CompanyName)
	assert.Equal(t, 1, events[2].Extracted)
	assert.Equal(t, 2, events[3].Current)
	assert.Equal(t, 2, events[3].Total)
	for _, ev := range events {
		assert.Equal(t, "b1", ev.BatchID)
		if ev.Stage != models.StageSuccess {
			assert.Empty(t, ev.CompanyName)
		}
	}
	last := events[len(events)-1]
	assert.Equal(t, 2, last.Current)
	assert.Equal(t, 2, last.Extracted)
}

func TestExtract_ZeroTargetOrEmptyFeed(t *testing.T) {
	f := saturated(5)
	listings, status, err, rec := run(t, f, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNoListings, status)
	assert.Empty(t, listings)
	assert.Empty(t, rec.Events())
	assert.Zero(t, f.counts, "zero target never touches the feed")

	f = saturated(0)
	listings, status, err, rec = run(t, f, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNoListings, status)
	assert.NotNil(t, listings)
	assert.Empty(t, listings)
	assert.Empty(t, rec.Events())
	assert.Equal(t, 1, f.grows)
}

func TestExtract_GrowsFeedUntilTarget(t *testing.T) {
	f := &fakeFeed{visible: 2, available: 6, step: 2}
	listings, _, err, _ := run(t, f, 5, nil)
	require.NoError(t, err)
	assert.Len(t, listings, 5)
	assert.Equal(t, 2, f.grows)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, f.activations)
}

func TestExtract_CapsAtWhatTheFeedSurfaces(t *testing.T) {
	f := saturated(3)
	listings, status, err, _ := run(t, f, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, status)
	assert.Len(t, listings, 3)
	assert.Equal(t, 1, f.grows)
}

func TestExtract_NeverProcessesAnIndexTwice(t *testing.T) {
	f := &fakeFeed{visible: 4, available: 30, step: 3}
	f.activate = func(i int) (bool, error) { return i%2 == 0, nil }
	_, _, err, _ := run(t, f, 12, nil)
	require.NoError(t, err)

	seen := map[int]bool{}
	for _, i := range f.activations {
		assert.False(t, seen[i], "index %d activated twice", i)
		seen[i] = true
	}
}

func TestExtract_EveryThirdActivationFails(t *testing.T) {
	f := saturated(12)
	f.activate = func(i int) (bool, error) { return (i+1)%3 != 0, nil }
	listings, status, err, rec := run(t, f, 12, nil)

	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, status)
	assert.Len(t, listings, 8)
	assert.Len(t, f.activations, 12)

	events := rec.Events()
	assert.Zero(t, countStage(events, models.StageScrolling))
	assert.Equal(t, 4, countStage(events, models.StageFailed))
	assert.Equal(t, models.StageCompleted, events[len(events)-1].Stage)
}

func TestExtract_RecoveryScrollAndStagnation(t *testing.T) {
	f := saturated(20)
	f.activate = func(int) (bool, error) { return false, nil }
	listings, status, err, rec := run(t, f, 20, nil)

	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, status)
	assert.Empty(t, listings)
	// Four failures trigger each recovery; the third stagnant scroll stops.
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, f.activations)
	assert.Equal(t, 3, f.grows)

	streak := 0
	for _, ev := range rec.Events() {
		switch ev.Stage {
		case models.StageFailed:
			streak++
			assert.LessOrEqual(t, streak, maxConsecutiveFailures+1)
		case models.StageScrolling:
			assert.Equal(t, maxConsecutiveFailures+1, streak)
			streak = 0
		}
	}
	assert.Equal(t, 3, countStage(rec.Events(), models.StageScrolling))
}

func TestExtract_SuccessfulScrollResetsStagnation(t *testing.T) {
	f := &fakeFeed{visible: 8, available: 9, step: 1}
	f.activate = func(i int) (bool, error) { return i >= 4, nil }
	listings, _, err, rec := run(t, f, 8, nil)

	require.NoError(t, err)
	assert.Len(t, listings, 4)
	assert.Equal(t, 1, countStage(rec.Events(), models.StageScrolling))
	assert.Equal(t, 9, f.visible, "recovery scroll revealed a new entry")
}

func TestExtract_NamelessRecordsAreFailures(t *testing.T) {
	f := saturated(3)
	f.extract = func(i int) (models.Listing, error) {
		if i == 1 {
			return models.Listing{Phone: "(415) 555-0199"}, nil
		}
		return models.Listing{Name: fmt.Sprintf("Shop %d", i)}, nil
	}
	listings, _, err, rec := run(t, f, 3, nil)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	for _, l := range listings {
		assert.NotEmpty(t, l.Name)
	}
	assert.Equal(t, 1, countStage(rec.Events(), models.StageFailed))
}

func TestExtract_TransientErrorIsAbsorbed(t *testing.T) {
	f := saturated(3)
	long := strings.Repeat("x", 120)
	f.activate = func(i int) (bool, error) {
		if i == 1 {
			return false, errors.New("node detached " + long)
		}
		return true, nil
	}
	listings, status, err, rec := run(t, f, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, status)
	assert.Len(t, listings, 2)

	var errEvent models.ProgressEvent
	for _, ev := range rec.Events() {
		if ev.Stage == models.StageError {
			errEvent = ev
		}
	}
	require.Equal(t, models.StageError, errEvent.Stage)
	assert.LessOrEqual(t, len([]rune(errEvent.Status)), len("Error: ")+errorMessageLimit+1)
}

func TestExtract_SessionLostAborts(t *testing.T) {
	f := saturated(5)
	f.extract = func(i int) (models.Listing, error) {
		if i == 2 {
			return models.Listing{}, fmt.Errorf("snapshot detail panel: %w", scraper.ErrSessionLost)
		}
		return models.Listing{Name: fmt.Sprintf("Shop %d", i)}, nil
	}
	listings, status, err, rec := run(t, f, 5, nil)

	require.ErrorIs(t, err, scraper.ErrSessionLost)
	assert.Len(t, listings, 2, "partial results are kept")
	assert.True(t, strings.HasPrefix(status, "Session lost"))
	assert.Equal(t, []int{0, 1, 2}, f.activations)

	stages := rec.Stages()
	assert.Equal(t, models.StageError, stages[len(stages)-1])
	assert.Zero(t, countStage(rec.Events(), models.StageCompleted))
}

func TestExtract_ConnectionTextAborts(t *testing.T) {
	f := saturated(4)
	f.activate = func(i int) (bool, error) {
		if i == 0 {
			return false, errors.New("lost Connection to browser")
		}
		return true, nil
	}
	listings, _, err, _ := run(t, f, 4, nil)
	require.Error(t, err)
	assert.Empty(t, listings)
	assert.Equal(t, []int{0}, f.activations)
}

func TestExtract_CancelStopsBeforeNextItem(t *testing.T) {
	f := saturated(6)
	cancel := &CancelToken{}
	rec := &Recorder{}
	progress := func(ev models.ProgressEvent) {
		rec.Record(ev)
		if ev.Stage == models.StageSuccess && ev.Current == 2 {
			cancel.Cancel()
		}
	}

	listings, status, err := Extract(context.Background(), f, Options{Target: 6, Cancel: cancel}, progress)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, status)
	assert.Len(t, listings, 2)
	assert.Equal(t, []int{0, 1}, f.activations)

	stages := rec.Stages()
	assert.Equal(t, models.StageCompleted, stages[len(stages)-1])
}

func TestExtract_CancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := saturated(3)
	listings, status, err := Extract(ctx, f, Options{Target: 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, status)
	assert.Empty(t, listings)
	assert.Empty(t, f.activations)
}

func TestCancelToken_NilSafe(t *testing.T) {
	var c *CancelToken
	assert.NotPanics(t, c.Cancel)
	assert.False(t, c.Cancelled())
}
