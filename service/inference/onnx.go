package inference

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/khaledhikmat/fire-go/ensemble"
	"github.com/khaledhikmat/fire-go/service/config"
	"github.com/khaledhikmat/fire-go/service/lgr"
)

type onnxService struct {
	CfgSvc config.IService
	mu     sync.Mutex
	loaded []*onnxClassifier
}

// NewOnnx returns the onnxruntime backend. The shared library is initialized
// on the first Load.
func NewOnnx(cfgSvc config.IService) IService {
	return &onnxService{
		CfgSvc: cfgSvc,
	}
}

func (svc *onnxService) Name() string {
	return "onnxruntime"
}

func (svc *onnxService) initialize() error {
	if ort.IsInitialized() {
		return nil
	}

	libPath := svc.CfgSvc.GetOnnxLibraryPath()
	if _, err := os.Stat(libPath); os.IsNotExist(err) {
		return fmt.Errorf("onnxruntime library not found at %s: %w", libPath, err)
	}

	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("error initializing onnxruntime environment: %w", err)
	}

	lgr.Logger.Info(
		"onnxruntime initialized",
		slog.String("library", libPath),
	)
	return nil
}

func (svc *onnxService) Load(ctx context.Context, path string) (ensemble.Classifier, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := svc.initialize(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model file not found: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("error reading model inputs and outputs: %w", err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("expected one input and one output, model has %d and %d", len(inputs), len(outputs))
	}

	size := int64(svc.CfgSvc.GetFrameSize())
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, size, size, 3))
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		path,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		nil,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("error creating onnxruntime session: %w", err)
	}

	c := &onnxClassifier{
		name:    filepath.Base(path),
		size:    int(size),
		session: session,
		input:   input,
		output:  output,
	}
	svc.loaded = append(svc.loaded, c)
	return c, nil
}

func (svc *onnxService) Finalize() {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	for _, c := range svc.loaded {
		c.Close()
	}
	svc.loaded = nil

	if ort.IsInitialized() {
		if err := ort.DestroyEnvironment(); err != nil {
			lgr.Logger.Error("error destroying onnxruntime environment", slog.Any("error", err))
		}
	}
}

// onnxClassifier runs a single-output sigmoid model with NHWC input.
// Tensors are bound to the session, so calls are serialized.
type onnxClassifier struct {
	name    string
	size    int
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

func (c *onnxClassifier) Name() string {
	return c.name
}

func (c *onnxClassifier) Predict(ctx context.Context, frame ensemble.Frame) (ensemble.Label, error) {
	if frame.Width != c.size || frame.Height != c.size || len(frame.Pixels) != c.size*c.size*3 {
		return 0, fmt.Errorf("frame is %dx%d, model expects %dx%d", frame.Width, frame.Height, c.size, c.size)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return 0, fmt.Errorf("classifier %s is closed", c.name)
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	copy(c.input.GetData(), frame.Pixels)
	if err := c.session.Run(); err != nil {
		return 0, fmt.Errorf("error running %s: %w", c.name, err)
	}

	return labelFromScore(c.output.GetData()[0])
}

func (c *onnxClassifier) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		c.session.Destroy()
		c.session = nil
	}
	if c.input != nil {
		c.input.Destroy()
		c.input = nil
	}
	if c.output != nil {
		c.output.Destroy()
		c.output = nil
	}
}

// labelFromScore rounds a sigmoid output half to even, the way the models were evaluated.
func labelFromScore(score float32) (ensemble.Label, error) {
	if math.IsNaN(float64(score)) {
		return 0, fmt.Errorf("model produced NaN")
	}

	switch math.RoundToEven(float64(score)) {
	case 0:
		return ensemble.LabelFire, nil
	case 1:
		return ensemble.LabelNoFire, nil
	}
	return 0, fmt.Errorf("model score %f is outside [0,1]", score)
}
