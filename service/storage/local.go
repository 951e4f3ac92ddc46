package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/khaledhikmat/fire-go/service/config"
)

type localService struct {
	CfgSvc config.IService
}

// NewLocal keeps stored files under the recordings folder.
func NewLocal(cfgsvc config.IService) IService {
	return &localService{
		CfgSvc: cfgsvc,
	}
}

func (svc *localService) StoreFile(ctx context.Context, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	folder := svc.CfgSvc.GetRecordingsFolder()
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", fmt.Errorf("error creating recordings folder: %w", err)
	}

	dest, err := filepath.Abs(filepath.Join(folder, filepath.Base(fileName)))
	if err != nil {
		return "", err
	}

	src, err := filepath.Abs(fileName)
	if err != nil {
		return "", err
	}
	if src == dest {
		return dest, nil
	}

	if err := os.Rename(src, dest); err == nil {
		return dest, nil
	}

	// Rename fails across devices.
	if err := copyFile(src, dest); err != nil {
		return "", err
	}
	_ = os.Remove(src)
	return dest, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
