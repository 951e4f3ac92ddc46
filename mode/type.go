package mode

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/khaledhikmat/fire-go/model"
	"github.com/khaledhikmat/fire-go/service/config"
	"github.com/khaledhikmat/fire-go/service/data"
	"github.com/khaledhikmat/fire-go/service/inference"
	"github.com/khaledhikmat/fire-go/service/inference/opencv"
	"github.com/khaledhikmat/fire-go/service/lgr"
	"github.com/khaledhikmat/fire-go/service/notifier"
	"github.com/khaledhikmat/fire-go/service/storage"
)

type Processor func(canxCtx context.Context,
	cfgSvc config.IService,
	dataSvc data.IService) error

// NewInferenceService picks the classifier backend by name.
func NewInferenceService(cfgSvc config.IService) (inference.IService, error) {
	switch backend := cfgSvc.GetInferenceBackend(); backend {
	case "onnxruntime", "onnx":
		return inference.NewOnnx(cfgSvc), nil
	case "opencv":
		return opencv.New(cfgSvc), nil
	case "fake":
		return inference.NewFake(cfgSvc), nil
	default:
		return nil, fmt.Errorf("unknown inference backend %q", backend)
	}
}

func newStorageService(cfgSvc config.IService) (storage.IService, error) {
	switch t := cfgSvc.GetStorageType(); t {
	case "", "local":
		return storage.NewLocal(cfgSvc), nil
	case "s3":
		return storage.NewS3(cfgSvc), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", t)
	}
}

func newNotifiers(cfgSvc config.IService) []notifier.IService {
	notifiers := []notifier.IService{}
	if cfgSvc.GetSpeechEnabled() {
		notifiers = append(notifiers, notifier.NewSpeech(cfgSvc))
	}
	if cfgSvc.GetWebhookURL() != "" {
		notifiers = append(notifiers, notifier.NewWebhook(cfgSvc))
	}
	return notifiers
}

// waitForShutdown keeps draining the streams for the configured shutdown
// period so exiting goroutines can still report.
func waitForShutdown(name string, cfgSvc config.IService, dataSvc data.IService, errorStream, statsStream chan interface{}) {
	lgr.Logger.Info(
		name + " is waiting for all go routines to exit",
	)

	period := time.Duration(cfgSvc.GetModeMaxShutdownTime()) * time.Second
	timer := time.NewTimer(period)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			lgr.Logger.Info(
				name+" shutdown waiting period expired. Exiting now",
				slog.Duration("period", period),
			)
			return

		case s := <-statsStream:
			procStats(dataSvc, s)

		case e := <-errorStream:
			procError(dataSvc, e)
		}
	}
}

func procStats(datasvc data.IService, stats interface{}) {
	var err error
	switch stats := stats.(type) {
	case model.AgentStats:
		err = datasvc.NewAgentStats(stats)
	case model.FramerStats:
		err = datasvc.NewFramerStats(stats)
	case model.DetectorStats:
		err = datasvc.NewDetectorStats(stats)
	case model.AlerterStats:
		err = datasvc.NewAlerterStats(stats)
	case model.ServerStats:
		err = datasvc.NewServerStats(stats)
	default:
		lgr.Logger.Error(
			"unknown stats type",
			slog.Any("stats", stats),
		)
		return
	}

	if err != nil {
		lgr.Logger.Error(
			"failed to store stats",
			slog.String("type", fmt.Sprintf("%T", stats)),
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procError(datasvc data.IService, err interface{}) {
	errTemp := datasvc.NewError(err)
	if errTemp != nil {
		lgr.Logger.Error(
			"failed to store error",
			slog.Any("error", errTemp),
		)
	}
}
