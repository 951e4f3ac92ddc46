package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math/rand"
	"time"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/fire-go/ensemble"
	"github.com/khaledhikmat/fire-go/model"
	"github.com/khaledhikmat/fire-go/service/config"
	"github.com/khaledhikmat/fire-go/service/lgr"
)

const randomFrameInterval = 40 * time.Millisecond

// SelectFramer picks the capturer for the source type.
func SelectFramer(source config.Source) Framer {
	if source.Type == "random" {
		return RandomFramer
	}
	return CaptureFramer
}

type framerCounters struct {
	name          string
	source        string
	startTime     int64
	frames        int
	skippedFrames int
	errors        int
}

func newFramerCounters(name, source string) *framerCounters {
	return &framerCounters{
		name:      name,
		source:    source,
		startTime: time.Now().Unix(),
	}
}

func (c *framerCounters) stats() model.FramerStats {
	uptime := time.Now().Unix() - c.startTime
	fps := 0
	if uptime > 0 {
		fps = int(float64(c.frames) / float64(uptime))
	}
	return model.FramerStats{
		Name:          c.name,
		Source:        c.source,
		Frames:        c.frames,
		SkippedFrames: c.skippedFrames,
		Errors:        c.errors,
		Uptime:        uptime,
		FPS:           fps,
	}
}

// offer hands the frame to the detector without waiting. A busy detector
// means the frame is dropped, so capture never falls behind the camera.
func offer(out chan<- FrameData, mat gocv.Mat, counters *framerCounters) {
	select {
	case out <- FrameData{Mat: mat, Timestamp: time.Now()}:
	default:
		counters.skippedFrames++
		mat.Close()
	}
}

// CaptureFramer reads a camera device, a video file or an RTSP stream.
// The first failed read ends capture with ensemble.ErrStreamRead.
func CaptureFramer(canxCtx context.Context, _ ServicesFactory, source config.Source, errorStream chan interface{}, statsStream chan interface{}, out chan<- FrameData) error {
	defer close(out)

	capture, err := gocv.OpenVideoCapture(source.URL)
	if err != nil {
		return fmt.Errorf("%w: error opening %s: %v", ensemble.ErrStreamRead, source.URL, err)
	}
	defer capture.Close()

	if !capture.IsOpened() {
		return fmt.Errorf("%w: cannot open %s", ensemble.ErrStreamRead, source.URL)
	}

	counters := newFramerCounters("captureFramer", source.Name)
	defer func() {
		send(canxCtx, statsStream, counters.stats())
	}()

	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"captureFramer context cancelled",
			)
			return nil

		default:
			img := gocv.NewMat()
			if ok := capture.Read(&img); !ok || img.Empty() {
				img.Close()
				counters.errors++
				err := fmt.Errorf("%w: cannot read frame from %s", ensemble.ErrStreamRead, source.Name)
				send(canxCtx, errorStream, model.GenError("framer",
					err,
					map[string]interface{}{"source": source.URL, "frames": counters.frames},
					"error reading frame"))
				return err
			}

			counters.frames++
			offer(out, img, counters)
		}
	}
}

// RandomFramer generates noise frames for running without a camera.
func RandomFramer(canxCtx context.Context, _ ServicesFactory, source config.Source, _ chan interface{}, statsStream chan interface{}, out chan<- FrameData) error {
	defer close(out)

	counters := newFramerCounters("randomFramer", source.Name)
	defer func() {
		send(canxCtx, statsStream, counters.stats())
	}()

	ticker := time.NewTicker(randomFrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"randomFramer context cancelled",
			)
			return nil

		case <-ticker.C:
			img := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
			c := color.RGBA{R: uint8(rand.Intn(256)), G: uint8(rand.Intn(256)), B: uint8(rand.Intn(256))}
			gocv.Rectangle(&img, image.Rect(0, 0, img.Cols(), img.Rows()), c, -1)
			gocv.Circle(&img, image.Pt(rand.Intn(img.Cols()), rand.Intn(img.Rows())), 20, color.RGBA{R: 255, G: 255, B: 255}, -1)
			counters.frames++
			offer(out, img, counters)
		}
	}
}

// send delivers v unless the pipeline is shutting down.
func send(canxCtx context.Context, stream chan interface{}, v interface{}) {
	if stream == nil {
		return
	}
	select {
	case stream <- v:
	case <-canxCtx.Done():
		// Shutdown still drains the streams for a while; try once more without blocking.
		select {
		case stream <- v:
		default:
			lgr.Logger.Debug("stream closed for shutdown, dropping", slog.Any("value", v))
		}
	}
}
