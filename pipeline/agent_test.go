package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/khaledhikmat/fire-go/ensemble"
	"github.com/khaledhikmat/fire-go/service/config"
)

// endlessFramer emits frames until its context is cancelled, like a camera.
func endlessFramer(canxCtx context.Context, _ ServicesFactory, _ config.Source, _ chan interface{}, _ chan interface{}, out chan<- FrameData) error {
	defer close(out)
	for {
		mat := gocv.NewMat()
		select {
		case <-canxCtx.Done():
			mat.Close()
			return nil
		case out <- FrameData{Mat: mat, Timestamp: time.Now()}:
		}
	}
}

// failingFramer reads a few frames and loses the source.
func failingFramer(_ context.Context, _ ServicesFactory, _ config.Source, _ chan interface{}, _ chan interface{}, out chan<- FrameData) error {
	defer close(out)
	for i := 0; i < 3; i++ {
		out <- FrameData{Mat: gocv.NewMat(), Timestamp: time.Now()}
	}
	return ensemble.ErrStreamRead
}

// quittingDetector takes one frame and quits like a closed viewer.
func quittingDetector(_ context.Context, _ ServicesFactory, _ config.Source, in <-chan FrameData, _ chan interface{}, _ chan interface{}, _ chan<- AlertData) error {
	f := <-in
	f.Mat.Close()
	return ErrViewerClosed
}

// drainingDetector consumes frames until the framer closes the channel.
func drainingDetector(canxCtx context.Context, _ ServicesFactory, _ config.Source, in <-chan FrameData, _ chan interface{}, _ chan interface{}, _ chan<- AlertData) error {
	for {
		select {
		case <-canxCtx.Done():
			return nil
		case f, ok := <-in:
			if !ok {
				return nil
			}
			f.Mat.Close()
		}
	}
}

func runAgent(t *testing.T, ctx context.Context, framer Framer, detector Detector) error {
	t.Helper()

	svcs := ServicesFactory{CfgSvc: config.NewHardCoded()}
	source := config.Source{ID: "cam0", Name: "cam0", Type: "capture", URL: "0"}

	result := make(chan error, 1)
	go func() {
		result <- Agent(ctx, svcs, make(chan interface{}, 10), make(chan interface{}, 10), make(chan AlertData, 1), source, framer, detector)
	}()

	select {
	case err := <-result:
		return err
	case <-time.After(5 * time.Second):
		require.FailNow(t, "agent did not return")
		return nil
	}
}

func TestAgentStopsWhenViewerCloses(t *testing.T) {
	err := runAgent(t, context.Background(), endlessFramer, quittingDetector)
	assert.NoError(t, err)
}

func TestAgentReportsLostSource(t *testing.T) {
	err := runAgent(t, context.Background(), failingFramer, drainingDetector)
	assert.True(t, errors.Is(err, ensemble.ErrStreamRead))
}

func TestAgentStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	err := runAgent(t, ctx, endlessFramer, drainingDetector)
	assert.NoError(t, err)
}
