package storage

import "context"

type IService interface {
	// StoreFile persists the local file and returns where it can be found.
	StoreFile(ctx context.Context, fileName string) (string, error)
}
