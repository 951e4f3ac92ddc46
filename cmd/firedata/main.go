// Command firedata inspects the fire image dataset and the saved models, and
// evaluates the classifier ensemble against the testing images.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/fire-go/dataset"
	"github.com/khaledhikmat/fire-go/mode"
	"github.com/khaledhikmat/fire-go/service/config"
	"github.com/khaledhikmat/fire-go/service/inference"
	"github.com/khaledhikmat/fire-go/service/lgr"
)

const (
	flagData   = "data"
	flagModels = "models"
	flagCount  = "count"
	flagFire   = "fire"
	flagSeed   = "seed"
	flagScore  = "score"
	flagDebug  = "debug"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "firedata",
		Usage: "work with the fire dataset and models",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagData,
				Value:   "./data",
				Usage:   "dataset root `DIR`",
				EnvVars: []string{"DATASET_FOLDER"},
			},
			&cli.StringFlag{
				Name:    flagModels,
				Value:   "./models",
				Usage:   "saved models `DIR`",
				EnvVars: []string{"SAVED_MODELS_FOLDER"},
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			level := "WARN"
			if c.Bool(flagDebug) {
				level = "DEBUG"
			}
			lgr.Setup(level, "")
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "sample",
				Usage: "print random testing files with or without fire",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: flagCount, Value: 10, Usage: "number of files"},
					&cli.BoolFlag{Name: flagFire, Value: true, Usage: "files with fire"},
					&cli.Int64Flag{Name: flagSeed, Usage: "shuffle seed, 0 for a random one"},
				},
				Action: sampleAction,
			},
			{
				Name:  "evaluate",
				Usage: "classify the testing images with the configured ensemble",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: flagCount, Value: 100, Usage: "maximum images per label"},
				},
				Action: evaluateAction,
			},
			{
				Name:  "modeldir",
				Usage: "print the directory a model with the given score is saved to",
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: flagScore, Required: true, Usage: "model score between 0 and 1"},
				},
				Action: func(c *cli.Context) error {
					dir, err := dataset.ModelDirName(c.String(flagModels), c.Float64(flagScore), time.Now())
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, dir)
					return nil
				},
			},
			{
				Name:  "models",
				Usage: "list saved models",
				Action: func(c *cli.Context) error {
					saved, err := dataset.SavedModels(c.String(flagModels))
					if err != nil {
						return err
					}
					for _, m := range saved {
						fmt.Fprintln(c.App.Writer, m)
					}
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, xerrors.Errorf("firedata: %w", err))
		os.Exit(1)
	}
}

func sampleAction(c *cli.Context) error {
	seed := c.Int64(flagSeed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	files, err := dataset.New(c.String(flagData)).RandomTestingFiles(c.Bool(flagFire), c.Int(flagCount), rand.New(rand.NewSource(seed)))
	if err != nil {
		return err
	}

	for _, f := range files {
		fmt.Fprintln(c.App.Writer, f)
	}
	return nil
}

func evaluateAction(c *cli.Context) error {
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	cfgSvc := config.NewEnv()
	inferenceSvc, err := mode.NewInferenceService(cfgSvc)
	if err != nil {
		return err
	}
	defer inferenceSvc.Finalize()

	pool, err := inference.LoadPool(ctx, cfgSvc, inferenceSvc)
	if err != nil {
		return err
	}

	samples, err := dataset.New(c.String(flagData)).Load(dataset.Testing, c.Int(flagCount), 0)
	if err != nil {
		return err
	}

	policies := dataset.PathPolicies(pool, cfgSvc.GetClassifierTimeout(), cfgSvc.GetLiveMaxVotes())
	results, err := dataset.EvaluatePolicies(ctx, policies, samples, cfgSvc.GetFrameSize())
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(struct {
		Classifiers int                       `json:"classifiers"`
		Policies    map[string]dataset.Result `json:"policies"`
	}{
		Classifiers: pool.Len(),
		Policies:    results,
	}, "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, string(out))
	return nil
}
