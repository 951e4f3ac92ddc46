package mode

import (
	"context"

	"github.com/benbjohnson/clock"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/fire-go/ensemble"
	"github.com/khaledhikmat/fire-go/model"
	"github.com/khaledhikmat/fire-go/pipeline"
	"github.com/khaledhikmat/fire-go/service/config"
	"github.com/khaledhikmat/fire-go/service/data"
	"github.com/khaledhikmat/fire-go/service/inference"
	"github.com/khaledhikmat/fire-go/service/lgr"
)

// Live watches the configured source until it is cancelled or the source
// can no longer be read.
func Live(canxCtx context.Context, cfgSvc config.IService, dataSvc data.IService) error {
	liveCtx, liveCancel := context.WithCancel(canxCtx)
	defer liveCancel()

	inferenceSvc, err := NewInferenceService(cfgSvc)
	if err != nil {
		return err
	}
	defer inferenceSvc.Finalize()

	storageSvc, err := newStorageService(cfgSvc)
	if err != nil {
		return err
	}

	// The live loop needs its models before the first frame.
	pool, err := inference.LoadPool(liveCtx, cfgSvc, inferenceSvc)
	if err != nil {
		return lgr.WithStack(xerrors.Errorf("error loading classifier pool: %w", err))
	}

	svcs := pipeline.ServicesFactory{
		CfgSvc:     cfgSvc,
		DataSvc:    dataSvc,
		StorageSvc: storageSvc,
		Notifiers:  newNotifiers(cfgSvc),
		Pools:      ensemble.Static(pool),
		Clock:      clock.New(),
	}

	errorStream := make(chan interface{})
	statsStream := make(chan interface{})

	alertStream := pipeline.FireAlerter(liveCtx, svcs, errorStream, statsStream)

	source := cfgSvc.GetSource()
	agentResult := make(chan error, 1)
	go func() {
		agentResult <- pipeline.Agent(liveCtx, svcs, errorStream, statsStream, alertStream, source,
			pipeline.SelectFramer(source), pipeline.FireDetector)
	}()

	var agentErr error
	for {
		select {
		case <-liveCtx.Done():
			lgr.Logger.Info(
				"live mode context cancelled",
			)
			goto resume

		case agentErr = <-agentResult:
			if agentErr != nil {
				procError(dataSvc, model.GenError("live",
					agentErr,
					map[string]interface{}{"source": source.Name},
					"live agent stopped"))
			}
			goto resume

		case s := <-statsStream:
			procStats(dataSvc, s)

		case e := <-errorStream:
			procError(dataSvc, e)
		}
	}

resume:
	liveCancel()
	waitForShutdown("live mode", cfgSvc, dataSvc, errorStream, statsStream)
	return agentErr
}
