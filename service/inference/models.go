package inference

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/khaledhikmat/fire-go/ensemble"
	"github.com/khaledhikmat/fire-go/service/config"
	"github.com/khaledhikmat/fire-go/service/lgr"
)

const modelExt = ".onnx"

// ModelPaths returns the model files of the pool in load order. Configured
// files are taken as listed; with none configured, every .onnx file in the
// models folder is used, sorted by name.
func ModelPaths(cfgSvc config.IService) ([]string, error) {
	folder := cfgSvc.GetModelsFolder()

	files := cfgSvc.GetModelFiles()
	if len(files) > 0 {
		return lo.Map(files, func(f string, _ int) string {
			if filepath.IsAbs(f) {
				return f
			}
			return filepath.Join(folder, f)
		}), nil
	}

	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("error reading models folder %s: %w", folder, err)
	}

	paths := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), modelExt) {
			return "", false
		}
		return filepath.Join(folder, e.Name()), true
	})
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no %s models in %s", modelExt, folder)
	}
	return paths, nil
}

// NewPool loads the configured models through svc using the configured load policy.
func NewPool(ctx context.Context, cfgSvc config.IService, svc IService) (*ensemble.Pool, error) {
	policy, err := ensemble.ParseLoadPolicy(cfgSvc.GetModelLoadPolicy())
	if err != nil {
		return nil, err
	}

	paths, err := ModelPaths(cfgSvc)
	if err != nil {
		return nil, err
	}

	return ensemble.Load(ctx, paths, svc.Load, policy)
}

// LoadPool is NewPool for callers that only need a usable pool. Models
// excluded by the skip policy are logged, and an error means no pool.
func LoadPool(ctx context.Context, cfgSvc config.IService, svc IService) (*ensemble.Pool, error) {
	pool, err := NewPool(ctx, cfgSvc, svc)
	if pool == nil {
		if err == nil {
			err = ensemble.ErrEmptyPool
		}
		return nil, err
	}

	if err != nil {
		lgr.Logger.WarnContext(ctx,
			"classifier pool is partial",
			slog.Int("classifiers", pool.Len()),
			slog.String("backend", svc.Name()),
			slog.Any("error", err),
		)
	}
	return pool, nil
}

// NewLazyPool defers loading the pool until the first request needs it.
func NewLazyPool(cfgSvc config.IService, svc IService) *ensemble.LazyPool {
	return ensemble.NewLazyPool(func(ctx context.Context) (*ensemble.Pool, error) {
		return NewPool(ctx, cfgSvc, svc)
	})
}
