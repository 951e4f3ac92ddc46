package ensemble

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/multierr"

	"github.com/khaledhikmat/fire-go/service/lgr"
)

// Frame is a preprocessed image: RGB, row major, channels last, values in [0,1].
type Frame struct {
	Width  int
	Height int
	Pixels []float32
}

// Classifier is a loaded binary fire model.
type Classifier interface {
	Name() string
	Predict(ctx context.Context, frame Frame) (Label, error)
}

// Loader loads one classifier from a model path.
type Loader func(ctx context.Context, path string) (Classifier, error)

// LoadPolicy decides what happens when one model of the pool fails to load.
type LoadPolicy int

const (
	// SkipOnLoadError excludes models that fail to load and keeps the rest.
	SkipOnLoadError LoadPolicy = iota
	// AbortOnLoadError fails the whole pool on the first load error.
	AbortOnLoadError
)

func ParseLoadPolicy(s string) (LoadPolicy, error) {
	switch s {
	case "", "skip":
		return SkipOnLoadError, nil
	case "abort":
		return AbortOnLoadError, nil
	}
	return SkipOnLoadError, fmt.Errorf("unknown load policy %q", s)
}

func (p LoadPolicy) String() string {
	if p == AbortOnLoadError {
		return "abort"
	}
	return "skip"
}

// Pool is the ordered, immutable set of classifiers of a process.
type Pool struct {
	classifiers []Classifier
}

func NewPool(classifiers ...Classifier) (*Pool, error) {
	if len(classifiers) == 0 {
		return nil, ErrEmptyPool
	}

	cs := make([]Classifier, len(classifiers))
	copy(cs, classifiers)
	return &Pool{classifiers: cs}, nil
}

// Classifiers returns the classifiers in pool order.
// The returned slice must not be modified.
func (p *Pool) Classifiers() []Classifier {
	return p.classifiers
}

func (p *Pool) Len() int {
	return len(p.classifiers)
}

// Load builds a pool from model paths, in the given order.
//
// With SkipOnLoadError the returned error, when the pool is not nil, lists the
// models that were excluded. The pool is nil only when it could not be built.
func Load(ctx context.Context, paths []string, loader Loader, policy LoadPolicy) (*Pool, error) {
	var (
		classifiers []Classifier
		skipped     error
	)

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c, err := loader(ctx, path)
		if err != nil {
			loadErr := &ClassifierLoadError{Path: path, Err: err}
			if policy == AbortOnLoadError {
				return nil, loadErr
			}

			lgr.Logger.WarnContext(ctx,
				"excluding classifier that failed to load",
				slog.String("path", path),
				slog.Any("error", err),
			)
			skipped = multierr.Append(skipped, loadErr)
			continue
		}

		lgr.Logger.InfoContext(ctx,
			"classifier loaded",
			slog.String("path", path),
			slog.String("name", c.Name()),
		)
		classifiers = append(classifiers, c)
	}

	pool, err := NewPool(classifiers...)
	if err != nil {
		return nil, multierr.Append(err, skipped)
	}

	return pool, skipped
}

// LazyPool populates a pool on first use and hands out the same pool afterwards.
// A failed population is not remembered; the next Get tries again.
type LazyPool struct {
	mu   sync.Mutex
	load func(ctx context.Context) (*Pool, error)
	pool *Pool
}

func NewLazyPool(load func(ctx context.Context) (*Pool, error)) *LazyPool {
	return &LazyPool{load: load}
}

func (l *LazyPool) Get(ctx context.Context) (*Pool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pool != nil {
		return l.pool, nil
	}

	pool, err := l.load(ctx)
	if pool == nil {
		if err == nil {
			err = ErrEmptyPool
		}
		return nil, err
	}

	if err != nil {
		lgr.Logger.WarnContext(ctx,
			"classifier pool is partial",
			slog.Int("classifiers", pool.Len()),
			slog.Any("error", err),
		)
	}

	l.pool = pool
	return l.pool, nil
}

// PoolSource is anything that can hand out the process pool.
type PoolSource interface {
	Get(ctx context.Context) (*Pool, error)
}

type staticPool struct {
	pool *Pool
}

// Static wraps an already loaded pool as a PoolSource.
func Static(pool *Pool) PoolSource {
	return staticPool{pool: pool}
}

func (s staticPool) Get(_ context.Context) (*Pool, error) {
	if s.pool == nil {
		return nil, ErrEmptyPool
	}
	return s.pool, nil
}
