// Package opencv runs the fire models through the OpenCV DNN module.
package opencv

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/fire-go/ensemble"
	"github.com/khaledhikmat/fire-go/service/config"
	"github.com/khaledhikmat/fire-go/service/inference"
	"github.com/khaledhikmat/fire-go/service/lgr"
)

type opencvService struct {
	CfgSvc config.IService
	mu     sync.Mutex
	loaded []*netClassifier
}

func New(cfgSvc config.IService) inference.IService {
	return &opencvService{
		CfgSvc: cfgSvc,
	}
}

func (svc *opencvService) Name() string {
	return "opencv"
}

func (svc *opencvService) Load(ctx context.Context, path string) (ensemble.Classifier, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("no model exists at %s", path)
	}

	net := gocv.ReadNet(path, "")
	if net.Empty() {
		return nil, fmt.Errorf("error reading model %s", path)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("error setting backend: %w", err)
	}

	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("error setting target: %w", err)
	}

	lgr.Logger.Debug(
		"opencv model loaded",
		slog.String("path", path),
		slog.String("openCV", gocv.Version()),
	)

	c := &netClassifier{
		name: filepath.Base(path),
		size: svc.CfgSvc.GetFrameSize(),
		net:  &net,
	}

	svc.mu.Lock()
	svc.loaded = append(svc.loaded, c)
	svc.mu.Unlock()
	return c, nil
}

func (svc *opencvService) Finalize() {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	for _, c := range svc.loaded {
		c.Close()
	}
	svc.loaded = nil
}

// netClassifier wraps a gocv Net. Net is not thread-safe, so calls are serialized.
type netClassifier struct {
	name string
	size int
	mu   sync.Mutex
	net  *gocv.Net
}

func (c *netClassifier) Name() string {
	return c.name
}

func (c *netClassifier) Predict(ctx context.Context, frame ensemble.Frame) (ensemble.Label, error) {
	if frame.Width != c.size || frame.Height != c.size || len(frame.Pixels) != c.size*c.size*3 {
		return 0, fmt.Errorf("frame is %dx%d, model expects %dx%d", frame.Width, frame.Height, c.size, c.size)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.net == nil {
		return 0, fmt.Errorf("classifier %s is closed", c.name)
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	blob, err := gocv.NewMatWithSizesFromBytes([]int{1, c.size, c.size, 3}, gocv.MatTypeCV32F, float32Bytes(frame.Pixels))
	if err != nil {
		return 0, fmt.Errorf("error building input blob: %w", err)
	}
	defer blob.Close()

	c.net.SetInput(blob, "")
	output := c.net.Forward("")
	defer output.Close()

	if output.Empty() || output.Total() < 1 {
		return 0, fmt.Errorf("model %s produced no output", c.name)
	}

	score := output.GetFloatAt(0, 0)
	if math.IsNaN(float64(score)) {
		return 0, fmt.Errorf("model %s produced NaN", c.name)
	}

	switch math.RoundToEven(float64(score)) {
	case 0:
		return ensemble.LabelFire, nil
	case 1:
		return ensemble.LabelNoFire, nil
	}
	return 0, fmt.Errorf("model %s score %f is outside [0,1]", c.name, score)
}

func (c *netClassifier) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.net != nil {
		c.net.Close()
		c.net = nil
	}
}

func float32Bytes(values []float32) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}
