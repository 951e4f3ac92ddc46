package notifier

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/khaledhikmat/fire-go/service/config"
)

type speechService struct {
	CfgSvc config.IService
	run    func(ctx context.Context, name string, args ...string) error
}

// NewSpeech announces alerts through a text to speech command, spd-say by default.
func NewSpeech(cfgsvc config.IService) IService {
	return &speechService{
		CfgSvc: cfgsvc,
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

func (svc *speechService) Name() string {
	return "speech"
}

func (svc *speechService) Notify(ctx context.Context, _ Alert) error {
	cmd := svc.CfgSvc.GetSpeechCommand()
	if len(cmd) == 0 {
		return fmt.Errorf("no speech command configured")
	}

	if err := svc.run(ctx, cmd[0], cmd[1:]...); err != nil {
		return fmt.Errorf("error running %s: %w", cmd[0], err)
	}
	return nil
}
