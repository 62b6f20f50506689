package cloudstorage

import "context"

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

//counterfeiter:generate . FileStore
type FileStore interface {
	GetFile(ctx context.Context, fileURL string) ([]byte, error)
	WriteFile(ctx context.Context, fileURL string, fileContent []byte) error
}
