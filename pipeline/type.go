package pipeline

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"gocv.io/x/gocv"

	"github.com/khaledhikmat/fire-go/ensemble"
	"github.com/khaledhikmat/fire-go/service/config"
	"github.com/khaledhikmat/fire-go/service/data"
	"github.com/khaledhikmat/fire-go/service/notifier"
	"github.com/khaledhikmat/fire-go/service/storage"
)

// FrameData is one captured frame and the time it was read.
type FrameData struct {
	Mat       gocv.Mat
	Timestamp time.Time
}

// AlertData carries an alerted frame. Timestamp is the capture time of the frame.
type AlertData struct {
	Mat       gocv.Mat
	Source    config.Source
	Decision  ensemble.Decision
	Timestamp time.Time
}

// ServicesFactory carries the services a live pipeline needs.
type ServicesFactory struct {
	CfgSvc     config.IService
	DataSvc    data.IService
	StorageSvc storage.IService
	Notifiers  []notifier.IService
	Pools      ensemble.PoolSource
	Clock      clock.Clock
}

// Signature of the frame capturer. It returns when the context is cancelled
// or the source can no longer be read.
type Framer func(canx context.Context, svcs ServicesFactory, source config.Source, errorStream chan interface{}, statsStream chan interface{}, out chan<- FrameData) error

// Signature of detector function
type Detector func(canx context.Context, svcs ServicesFactory, source config.Source, in <-chan FrameData, errorStream chan interface{}, statsStream chan interface{}, alertStream chan<- AlertData) error
