package inference

import (
	"context"

	"github.com/khaledhikmat/fire-go/ensemble"
)

// IService loads classifiers for one inference backend.
type IService interface {
	Name() string
	Load(ctx context.Context, path string) (ensemble.Classifier, error)
	// Finalize releases backend resources once every classifier is closed.
	Finalize()
}
