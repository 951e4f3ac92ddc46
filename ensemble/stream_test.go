package ensemble

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaledhikmat/fire-go/service/lgr"
)

type countingVote struct {
	frames []int
	fire   bool
	err    error
}

func (c *countingVote) vote(_ context.Context, f int) (Decision, error) {
	c.frames = append(c.frames, f)
	if c.err != nil {
		return Decision{}, c.err
	}
	if c.fire {
		return Decision{FireVotes: 1, Probability: 1, IsFire: true}, nil
	}
	return Decision{NoFireVotes: 1}, nil
}

func TestSamplerInterval(t *testing.T) {
	cv := &countingVote{fire: true}
	s := NewSampler(DefaultSamplingInterval, cv.vote)

	for i := 1; i <= 9; i++ {
		d := s.OnFrame(context.Background(), i)
		assert.True(t, d.Pending, "frame %d", i)
		assert.False(t, d.IsFire, "frame %d", i)
	}

	d := s.OnFrame(context.Background(), 10)
	assert.True(t, d.IsFire)
	assert.False(t, d.Pending)

	for i := 11; i <= 19; i++ {
		assert.True(t, s.OnFrame(context.Background(), i).IsFire)
	}

	cv.fire = false
	assert.False(t, s.OnFrame(context.Background(), 20).IsFire)
	assert.Equal(t, []int{10, 20}, cv.frames)
}

func TestSamplerVoteCount(t *testing.T) {
	for _, k := range []int{0, 9, 10, 25, 100, 101} {
		cv := &countingVote{}
		s := NewSampler(10, cv.vote)
		for i := 1; i <= k; i++ {
			s.OnFrame(context.Background(), i)
		}
		assert.Equal(t, k/10, len(cv.frames), "k=%d", k)
		assert.Equal(t, k/10, s.Votes(), "k=%d", k)
	}
}

func TestSamplerKeepsCacheOnNoVotes(t *testing.T) {
	cv := &countingVote{fire: true}
	s := NewSampler(2, cv.vote)

	s.OnFrame(context.Background(), 1)
	require.True(t, s.OnFrame(context.Background(), 2).IsFire)

	cv.err = &NoVotesError{}
	s.OnFrame(context.Background(), 3)
	d := s.OnFrame(context.Background(), 4)
	assert.True(t, d.IsFire)
	assert.Equal(t, 1, s.Failures())
	assert.Equal(t, 1, s.Votes())
}

func TestSamplerFailureBeforeFirstVote(t *testing.T) {
	cv := &countingVote{err: errors.New("boom")}
	s := NewSampler(1, cv.vote)

	d := s.OnFrame(context.Background(), 1)
	assert.True(t, d.Pending)
	assert.False(t, d.IsFire)
}

func TestDebouncerCooldown(t *testing.T) {
	d := NewDebouncer(time.Second)
	fire := Decision{IsFire: true}
	start := time.Unix(1000, 0)

	var alerted []float64
	for _, at := range []float64{0, 0.3, 0.6, 0.9, 1.2} {
		now := start.Add(time.Duration(at * float64(time.Second)))
		if d.MaybeAlert(fire, now) {
			alerted = append(alerted, at)
		}
	}
	assert.Equal(t, []float64{0, 1.2}, alerted)
}

func TestDebouncerIgnoresNoFire(t *testing.T) {
	d := NewDebouncer(time.Second)
	start := time.Unix(1000, 0)

	assert.False(t, d.MaybeAlert(Decision{}, start))
	_, ok := d.LastAlert()
	assert.False(t, ok)

	require.True(t, d.MaybeAlert(Decision{IsFire: true}, start))
	assert.False(t, d.MaybeAlert(Decision{}, start.Add(5*time.Second)))
	last, ok := d.LastAlert()
	assert.True(t, ok)
	assert.Equal(t, start, last)
}

func TestDebouncerExactCooldown(t *testing.T) {
	d := NewDebouncer(time.Second)
	start := time.Unix(1000, 0)

	require.True(t, d.MaybeAlert(Decision{IsFire: true}, start))
	assert.True(t, d.MaybeAlert(Decision{IsFire: true}, start.Add(time.Second)))
}

func TestStreamWithMockClock(t *testing.T) {
	clk := clock.NewMock()
	cv := &countingVote{fire: true}
	stream := NewStream(NewSampler(2, cv.vote), NewDebouncer(time.Second), clk)

	var alerts []int
	for i := 1; i <= 12; i++ {
		r := stream.Process(context.Background(), i)
		if r.Alert {
			alerts = append(alerts, i)
			assert.Equal(t, clk.Now(), r.At)
		}
		clk.Add(300 * time.Millisecond)
	}

	// Fire from frame 2 on; frames arrive every 300ms.
	assert.Equal(t, []int{2, 6, 10}, alerts)
	assert.Equal(t, 12, stream.Frames())
	assert.Equal(t, 3, stream.Alerts())
	assert.Equal(t, 6, stream.Sampler().Votes())
}

func TestStreamReportsEffectiveSettings(t *testing.T) {
	cv := &countingVote{}
	stream := NewStream(NewSampler(0, cv.vote), NewDebouncer(1500*time.Millisecond), nil)

	assert.Equal(t, 1, stream.Sampler().Interval())
	assert.Equal(t, 1500*time.Millisecond, stream.Cooldown())
}

func TestSamplerTracesEachRound(t *testing.T) {
	var traces []string
	s := NewSampler(1, func(ctx context.Context, _ int) (Decision, error) {
		traces = append(traces, lgr.TraceID(ctx))
		return Decision{NoFireVotes: 1}, nil
	})

	s.OnFrame(context.Background(), 1)
	s.OnFrame(context.Background(), 2)

	require.Len(t, traces, 2)
	assert.NotEmpty(t, traces[0])
	assert.NotEmpty(t, traces[1])
	assert.NotEqual(t, traces[0], traces[1])
}
