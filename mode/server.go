package mode

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/khaledhikmat/fire-go/api"
	"github.com/khaledhikmat/fire-go/service/config"
	"github.com/khaledhikmat/fire-go/service/data"
	"github.com/khaledhikmat/fire-go/service/inference"
	"github.com/khaledhikmat/fire-go/service/lgr"
)

// Server serves the upload page. Models are loaded by the first request.
func Server(canxCtx context.Context, cfgSvc config.IService, dataSvc data.IService) error {
	inferenceSvc, err := NewInferenceService(cfgSvc)
	if err != nil {
		return err
	}
	defer inferenceSvc.Finalize()

	srv := api.NewServer(cfgSvc, dataSvc, inference.NewLazyPool(cfgSvc, inferenceSvc))
	httpServer := &http.Server{
		Addr:              cfgSvc.GetHTTPAddress(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveResult := make(chan error, 1)
	go func() {
		lgr.Logger.Info(
			"upload server listening",
			slog.String("address", httpServer.Addr),
		)
		serveResult <- httpServer.ListenAndServe()
	}()

	period := time.Duration(cfgSvc.GetAgentPeriodicTimeout()) * time.Second
	if period <= 0 {
		period = 10 * time.Second
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"server mode context cancelled",
			)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfgSvc.GetModeMaxShutdownTime())*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				lgr.Logger.Error("error shutting down upload server", slog.Any("error", err))
			}
			procStats(dataSvc, srv.Stats())
			return nil

		case err := <-serveResult:
			procStats(dataSvc, srv.Stats())
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err

		case <-ticker.C:
			procStats(dataSvc, srv.Stats())
		}
	}
}
