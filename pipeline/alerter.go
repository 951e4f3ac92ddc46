package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/fire-go/model"
	"github.com/khaledhikmat/fire-go/service/lgr"
	"github.com/khaledhikmat/fire-go/service/notifier"
)

const alertBufferSize = 10

// FireAlerter stores a snapshot of every alerted frame and fans the alert out
// to the configured notifiers. Sink failures are reported, never fatal.
func FireAlerter(canx context.Context, svcs ServicesFactory, errorStream chan interface{}, statsStream chan interface{}) chan AlertData {
	in := make(chan AlertData, alertBufferSize)

	go func() {
		startTime := time.Now().Unix()
		stats := model.AlerterStats{
			Name: "fireAlerter",
		}

		defer func() {
			stats.Uptime = time.Now().Unix() - startTime
			send(canx, statsStream, stats)
		}()

		for {
			select {
			case <-canx.Done():
				lgr.Logger.Info(
					"alerter context cancelled",
				)
				drain(in)
				return

			case alert := <-in:
				stats.Alerts++
				procAlert(canx, svcs, alert, &stats, errorStream)
			}
		}
	}()

	return in
}

func procAlert(canx context.Context, svcs ServicesFactory, alert AlertData, stats *model.AlerterStats, errorStream chan interface{}) {
	defer alert.Mat.Close()

	lgr.Logger.Info(
		"fire alert",
		slog.String("source", alert.Source.Name),
		slog.Float64("probability", alert.Decision.Probability),
		slog.Time("timestamp", alert.Timestamp),
	)

	snapshot, err := storeSnapshot(canx, svcs, alert)
	if err != nil {
		stats.Errors++
		send(canx, errorStream, model.GenError("alerter",
			err,
			map[string]interface{}{"source": alert.Source.ID},
			"error storing alert snapshot"))
	} else if snapshot != "" {
		stats.Snapshots++
	}

	payload := notifier.Alert{
		Source:      alert.Source.Name,
		Probability: alert.Decision.Probability,
		Predictions: answers(alert.Decision),
		Snapshot:    snapshot,
		Timestamp:   alert.Timestamp,
	}

	for _, n := range svcs.Notifiers {
		if err := n.Notify(canx, payload); err != nil {
			stats.Errors++
			send(canx, errorStream, model.GenError("alerter",
				err,
				map[string]interface{}{"notifier": n.Name()},
				"error notifying %s", n.Name()))
			continue
		}

		switch n.Name() {
		case "speech":
			stats.Spoken++
		case "webhook":
			stats.Webhooks++
		}
	}
}

func storeSnapshot(canx context.Context, svcs ServicesFactory, alert AlertData) (string, error) {
	if svcs.StorageSvc == nil || alert.Mat.Empty() {
		return "", nil
	}

	dir, err := os.MkdirTemp("", "fire-alert")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	name := filepath.Join(dir, fmt.Sprintf("%s_alerted_frame_%d.jpg", alert.Source.ID, alert.Timestamp.UnixNano()))
	if ok := gocv.IMWrite(name, alert.Mat); !ok {
		return "", fmt.Errorf("error writing snapshot %s", name)
	}

	return svcs.StorageSvc.StoreFile(canx, name)
}

func drain(in chan AlertData) {
	for {
		select {
		case alert := <-in:
			alert.Mat.Close()
		default:
			return
		}
	}
}
