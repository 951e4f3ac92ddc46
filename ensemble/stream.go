package ensemble

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// StreamResult is what a live stream reports for one frame.
type StreamResult struct {
	Decision Decision
	Alert    bool
	At       time.Time
}

// Stream ties the sampler and the debouncer of one live source together.
// Like its parts, it expects frames one at a time in arrival order.
type Stream[F any] struct {
	sampler   *Sampler[F]
	debouncer *Debouncer
	clk       clock.Clock
	frames    int
	alerts    int
}

func NewStream[F any](sampler *Sampler[F], debouncer *Debouncer, clk clock.Clock) *Stream[F] {
	if clk == nil {
		clk = clock.New()
	}
	return &Stream[F]{
		sampler:   sampler,
		debouncer: debouncer,
		clk:       clk,
	}
}

func (s *Stream[F]) Process(ctx context.Context, frame F) StreamResult {
	s.frames++
	d := s.sampler.OnFrame(ctx, frame)
	now := s.clk.Now()

	alert := s.debouncer.MaybeAlert(d, now)
	if alert {
		s.alerts++
	}

	return StreamResult{
		Decision: d,
		Alert:    alert,
		At:       now,
	}
}

func (s *Stream[F]) Frames() int {
	return s.frames
}

func (s *Stream[F]) Alerts() int {
	return s.alerts
}

func (s *Stream[F]) Sampler() *Sampler[F] {
	return s.sampler
}

func (s *Stream[F]) Cooldown() time.Duration {
	return s.debouncer.Cooldown()
}
