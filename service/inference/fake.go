package inference

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/khaledhikmat/fire-go/ensemble"
	"github.com/khaledhikmat/fire-go/service/config"
)

type fakeService struct {
	CfgSvc config.IService
	mu     sync.Mutex
	loads  int
}

// NewFake returns a backend whose classifiers answer the FAKE_LABELS in load
// order. A label other than 0 or 1 yields a classifier that always fails.
func NewFake(cfgSvc config.IService) IService {
	return &fakeService{
		CfgSvc: cfgSvc,
	}
}

func (svc *fakeService) Name() string {
	return "fake"
}

func (svc *fakeService) Load(ctx context.Context, path string) (ensemble.Classifier, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	svc.mu.Lock()
	idx := svc.loads
	svc.loads++
	svc.mu.Unlock()

	labels := svc.CfgSvc.GetFakeLabels()
	label := int(ensemble.LabelNoFire)
	if len(labels) > 0 {
		label = labels[idx%len(labels)]
	}

	return &fakeClassifier{
		name:  filepath.Base(path),
		label: label,
	}, nil
}

func (svc *fakeService) Finalize() {
}

type fakeClassifier struct {
	name  string
	label int
}

func (c *fakeClassifier) Name() string {
	return c.name
}

func (c *fakeClassifier) Predict(ctx context.Context, _ ensemble.Frame) (ensemble.Label, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	switch ensemble.Label(c.label) {
	case ensemble.LabelFire, ensemble.LabelNoFire:
		return ensemble.Label(c.label), nil
	}
	return 0, fmt.Errorf("fake classifier %s configured to fail", c.name)
}
