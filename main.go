package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/khaledhikmat/fire-go/mode"
	"github.com/khaledhikmat/fire-go/service/config"
	"github.com/khaledhikmat/fire-go/service/data"
	"github.com/khaledhikmat/fire-go/service/lgr"
)

const (
	// WARNING: this has to be bigger that the mode processor shutdown time
	waitOnShutdown = 8 * time.Second
)

var modeProcessors = map[string]mode.Processor{
	"server": mode.Server,
	"live":   mode.Live,
}

func main() {
	rootCtx := context.Background()
	canxCtx, canxFn := context.WithCancel(rootCtx)

	// Hook up a signal handler to cancel the context
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		lgr.Logger.Info(
			"received kill signal",
			slog.Any("signal", sig),
		)
		canxFn()
	}()

	// Load env vars if we are in DEV mode
	if os.Getenv("RUN_TIME_ENV") == "dev" || os.Getenv("RUN_TIME_ENV") == "" {
		lgr.Logger.Info("loading env vars from .env file")
		err := godotenv.Load()
		if err != nil && !os.IsNotExist(err) {
			lgr.Logger.Error("error loading .env file", slog.Any("error", lgr.WithStack(err)))
			panic("error loading .env file")
		}
	}

	cfgSvc := config.NewEnv()
	lgr.Setup(cfgSvc.GetLogLevel(), cfgSvc.GetLogFile())

	modeType := "server"
	args := os.Args[1:]
	if len(args) > 0 {
		modeType = args[0]
	}

	modeProc, ok := modeProcessors[modeType]
	if !ok {
		lgr.Logger.Error("invalid mode", slog.String("mode", modeType))
		panic("invalid mode")
	}

	dataSvc := data.NewFilesDB(cfgSvc)

	code := run(canxCtx, canxFn, modeType, modeProc, cfgSvc, dataSvc)
	dataSvc.Finalize()
	if code != 0 {
		os.Exit(code)
	}
}

func run(canxCtx context.Context, canxFn context.CancelFunc, modeType string, modeProc mode.Processor, cfgSvc config.IService, dataSvc data.IService) int {
	// Create mode processor result
	modeProcResult := make(chan error, 1)

	// Start the mode processor
	go func() {
		modeProcResult <- modeProc(canxCtx, cfgSvc, dataSvc)
	}()

	// Wait for cancellation or the mode proc
	exitCode := 0
	select {
	case <-canxCtx.Done():
		lgr.Logger.Info(
			"fire-go context cancelled",
		)

	case err := <-modeProcResult:
		if err != nil {
			exitCode = 1
			lgr.Logger.Error(
				"fire-go mode processor exited",
				slog.String("mode", modeType),
				slog.Any("error", lgr.WithStack(err)),
			)
		}
		// Nothing left to wait for.
		canxFn()
		return exitCode
	}

	lgr.Logger.Info(
		"fire-go is waiting for the mode processor to exit",
	)

	timer := time.NewTimer(waitOnShutdown)
	defer timer.Stop()

	select {
	case <-timer.C:
		lgr.Logger.Info(
			"fire-go shutdown waiting period expired. Exiting now",
			slog.Duration("period", waitOnShutdown),
		)

	case err := <-modeProcResult:
		if err != nil {
			lgr.Logger.Info(
				"fire-go mode processor exited",
				slog.Any("error", lgr.WithStack(err)),
			)
		}
	}
	return exitCode
}
