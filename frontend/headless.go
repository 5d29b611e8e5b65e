package frontend

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
)

// statsInterval is how often a headless run logs progress.
const statsInterval = 5 * time.Second

// RunHeadless drives s without a window until ctx ends or Run returns,
// logging frame and audio statistics along the way.
func RunHeadless(ctx context.Context, s *Session) error {
	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	g.Go(func() error {
		defer close(done)
		return s.Run(gctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return nil
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				logStats(s)
			}
		}
	})

	err := g.Wait()
	logStats(s)
	if errors.Is(err, context.Canceled) {
		// Interrupted by the caller.
		return nil
	}
	return err
}

func logStats(s *Session) {
	st := s.Audio.Stats()
	logger.Info().
		Uint64("frames", s.Frames()).
		Int("occupancy", st.Occupancy).
		Float64("ratio", st.LastRatio).
		Float64("deviation", st.LastDeviation).
		Uint64("underruns", st.Underruns).
		Uint64("dropped_bytes", st.DroppedBytes).
		Str("audio", s.Audio.State().String()).
		Msg("headless stats")
}
