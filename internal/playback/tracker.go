package playback

import (
	"context"
	"sync"
	"time"

	"streamflix-catalog-service/internal/models"
	"streamflix-catalog-service/internal/state"
)

// DefaultSampleInterval is how often playback position is written back as
// watch progress.
const DefaultSampleInterval = 5 * time.Second

// Dispatcher is the intent-dispatch capability the tracker needs.
type Dispatcher interface {
	Dispatch(intents ...state.Intent) models.AppState
}

// Tracker samples a playback surface while a title plays and records the
// percentage watched through UpdateWatchProgress. It must be stopped on
// teardown so no sample fires against a discarded session.
type Tracker struct {
	surface   Surface
	dispatch  Dispatcher
	contentID string
	interval  time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTracker creates a tracker for one playback of the given content.
func NewTracker(surface Surface, dispatch Dispatcher, contentID string, interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Tracker{
		surface:   surface,
		dispatch:  dispatch,
		contentID: contentID,
		interval:  interval,
	}
}

// Start begins sampling. When resumePercent is positive and the surface
// has loaded its duration, playback resumes from the saved position.
func (t *Tracker) Start(ctx context.Context, resumePercent float64) {
	t.mu.Lock()
	if t.cancel != nil {
		t.mu.Unlock()
		return
	}
	ctx, t.cancel = context.WithCancel(ctx)
	t.mu.Unlock()

	if resumePercent > 0 {
		if duration := t.surface.Duration(); duration > 0 {
			t.surface.Seek(resumePercent / 100 * duration)
		}
	}
	t.surface.Play()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.sample()
			}
		}
	}()
}

// Stop pauses the surface and cancels sampling.
func (t *Tracker) Stop() {
	t.mu.Lock()
	cancel := t.cancel
	t.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	t.wg.Wait()
	t.surface.Pause()
}

func (t *Tracker) sample() {
	duration := t.surface.Duration()
	if duration <= 0 {
		return
	}
	percent := t.surface.CurrentTime() / duration * 100
	t.dispatch.Dispatch(state.UpdateWatchProgress{ID: t.contentID, Percent: percent})
}
