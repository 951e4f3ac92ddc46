package ensemble

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func loaderFailing(bad ...string) Loader {
	return func(_ context.Context, path string) (Classifier, error) {
		for _, b := range bad {
			if b == path {
				return nil, errors.New("corrupt checkpoint")
			}
		}
		return &MockClassifier{name: path}, nil
	}
}

func names(p *Pool) []string {
	var ns []string
	for _, c := range p.Classifiers() {
		ns = append(ns, c.Name())
	}
	return ns
}

func TestNewPoolEmpty(t *testing.T) {
	_, err := NewPool()
	assert.ErrorIs(t, err, ErrEmptyPool)
}

func TestLoadKeepsOrder(t *testing.T) {
	pool, err := Load(context.Background(), []string{"a", "b", "c"}, loaderFailing(), SkipOnLoadError)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names(pool))
}

func TestLoadSkipPolicy(t *testing.T) {
	pool, err := Load(context.Background(), []string{"a", "b", "c", "d"}, loaderFailing("b", "d"), SkipOnLoadError)
	require.NotNil(t, pool)
	assert.Equal(t, []string{"a", "c"}, names(pool))

	require.Error(t, err)
	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	var le *ClassifierLoadError
	require.ErrorAs(t, errs[0], &le)
	assert.Equal(t, "b", le.Path)
}

func TestLoadSkipPolicyAllFail(t *testing.T) {
	pool, err := Load(context.Background(), []string{"a", "b"}, loaderFailing("a", "b"), SkipOnLoadError)
	assert.Nil(t, pool)
	assert.ErrorIs(t, err, ErrEmptyPool)
}

func TestLoadAbortPolicy(t *testing.T) {
	pool, err := Load(context.Background(), []string{"a", "b", "c"}, loaderFailing("b"), AbortOnLoadError)
	assert.Nil(t, pool)

	var le *ClassifierLoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "b", le.Path)
}

func TestParseLoadPolicy(t *testing.T) {
	p, err := ParseLoadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, SkipOnLoadError, p)

	p, err = ParseLoadPolicy("abort")
	require.NoError(t, err)
	assert.Equal(t, AbortOnLoadError, p)

	_, err = ParseLoadPolicy("retry")
	assert.Error(t, err)
}

func TestLazyPoolCachesFirstSuccess(t *testing.T) {
	calls := 0
	lazy := NewLazyPool(func(ctx context.Context) (*Pool, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("models folder not mounted")
		}
		return Load(ctx, []string{"a", "b"}, loaderFailing("b"), SkipOnLoadError)
	})

	_, err := lazy.Get(context.Background())
	require.Error(t, err)

	first, err := lazy.Get(context.Background())
	require.NoError(t, err)
	second, err := lazy.Get(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, first.Len())
}
