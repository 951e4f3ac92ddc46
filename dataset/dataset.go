// Package dataset reads the labelled fire image folders used to build and
// evaluate the models.
//
// A dataset root holds train-kaggle/{fire,non_fire} and mytesting/{fire,non_fire}.
package dataset

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/samber/lo"

	"github.com/khaledhikmat/fire-go/service/lgr"
)

type Kind int

const (
	Training Kind = iota
	Testing
)

const (
	trainingDir = "train-kaggle"
	testingDir  = "mytesting"
	fireDir     = "fire"
	nonFireDir  = "non_fire"

	// ModelFile is the file a saved model directory holds.
	ModelFile = "model.onnx"
)

var ErrInvalidScore = errors.New("score must be between 0 and 1")

// Sample is one labelled image.
type Sample struct {
	Path  string
	Fire  bool
	Image image.Image
}

type Dataset struct {
	Root string
}

func New(root string) *Dataset {
	return &Dataset{Root: root}
}

func (d *Dataset) dir(kind Kind, fire bool) string {
	base := trainingDir
	if kind == Testing {
		base = testingDir
	}
	label := nonFireDir
	if fire {
		label = fireDir
	}
	return filepath.Join(d.Root, base, label)
}

// Files lists the files of one folder, sorted by name.
func (d *Dataset) Files(kind Kind, fire bool) ([]string, error) {
	dir := d.dir(kind, fire)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		return filepath.Join(dir, e.Name()), !e.IsDir()
	})
	sort.Strings(files)
	return files, nil
}

// RandomTestingFiles returns up to count shuffled testing files with or without fire.
func (d *Dataset) RandomTestingFiles(fire bool, count int, rnd *rand.Rand) ([]string, error) {
	files, err := d.Files(Testing, fire)
	if err != nil {
		return nil, err
	}

	rnd.Shuffle(len(files), func(i, j int) {
		files[i], files[j] = files[j], files[i]
	})

	if count < len(files) {
		files = files[:count]
	}
	return files, nil
}

// Load reads up to maxCount png/jpg images per label, non fire first, each
// resized to resolution x resolution. Unreadable images are skipped.
func (d *Dataset) Load(kind Kind, maxCount, resolution int) ([]Sample, error) {
	var samples []Sample

	for _, fire := range []bool{false, true} {
		files, err := d.Files(kind, fire)
		if err != nil {
			return nil, err
		}

		if maxCount < len(files) {
			files = files[:maxCount]
		}

		for _, path := range files {
			if !IsImage(path) {
				continue
			}

			img, err := imaging.Open(path, imaging.AutoOrientation(true))
			if err != nil {
				lgr.Logger.Warn("skipping unreadable image", slog.String("path", path), slog.Any("error", err))
				continue
			}

			if resolution > 0 {
				img = imaging.Resize(img, resolution, resolution, imaging.Linear)
			}

			samples = append(samples, Sample{
				Path:  path,
				Fire:  fire,
				Image: img,
			})
		}
	}

	return samples, nil
}

func IsImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".png" || ext == ".jpg" || ext == ".jpeg"
}

// ModelDirName names the directory a model is saved to: the save time and
// the first four characters of its score, e.g. 2022-08-01:17:10:55:0.87.
func ModelDirName(models string, score float64, now time.Time) (string, error) {
	if score < 0 || score > 1 {
		return "", fmt.Errorf("%w: %v", ErrInvalidScore, score)
	}

	s := strconv.FormatFloat(score, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	if len(s) > 4 {
		s = s[:4]
	}

	return filepath.Join(models, fmt.Sprintf("%s:%s", now.Format("2006-01-02:15:04:05"), s)), nil
}

// SavedModels lists the model file of every directory under models.
func SavedModels(models string) ([]string, error) {
	entries, err := os.ReadDir(models)
	if err != nil {
		return nil, err
	}

	saved := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		return filepath.Join(models, e.Name(), ModelFile), e.IsDir()
	})
	sort.Strings(saved)
	return saved, nil
}
