package ensemble

import (
	"context"
	"time"
)

// Batch classifies independent images with the whole pool.
// It holds no per-call state and can be shared by concurrent requests.
type Batch struct {
	pools PoolSource
	voter Voter
}

func NewBatch(pools PoolSource, timeout time.Duration) *Batch {
	return &Batch{
		pools: pools,
		voter: BatchVoter(timeout),
	}
}

func (b *Batch) Classify(ctx context.Context, frame Frame) (Decision, error) {
	pool, err := b.pools.Get(ctx)
	if err != nil {
		return Decision{}, err
	}
	return b.voter.Vote(ctx, frame, pool)
}

// PoolSize reports the number of classifiers, loading the pool if needed.
func (b *Batch) PoolSize(ctx context.Context) (int, error) {
	pool, err := b.pools.Get(ctx)
	if err != nil {
		return 0, err
	}
	return pool.Len(), nil
}
