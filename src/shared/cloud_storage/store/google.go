package store

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/apex/log"
	cloudstorage "github.com/veedubyou/vocal-separator/src/shared/cloud_storage/entity"
	"github.com/veedubyou/vocal-separator/src/shared/lib/cerr"
	"google.golang.org/api/option"
)

const GOOGLE_STORAGE_HOST = "https://storage.googleapis.com"

var _ cloudstorage.FileStore = GoogleFileStore{}

func NewGoogleFileStore(storageHost string, opts ...option.ClientOption) (GoogleFileStore, error) {
	client, err := storage.NewClient(context.Background(), opts...)
	if err != nil {
		return GoogleFileStore{}, cerr.Wrap(err).Error("Failed to create cloud storage client")
	}

	return NewGoogleFileStoreFromClient(storageHost, client), nil
}

func NewGoogleFileStoreFromClient(storageHost string, client *storage.Client) GoogleFileStore {
	return GoogleFileStore{
		storageHost: strings.TrimSuffix(storageHost, "/"),
		client:      client,
	}
}

type GoogleFileStore struct {
	storageHost string
	client      *storage.Client
}

func (g GoogleFileStore) GetFile(ctx context.Context, fileURL string) ([]byte, error) {
	errctx := cerr.Field("file_url", fileURL)

	bucketName, objectName, err := g.splitURL(fileURL)
	if err != nil {
		return nil, errctx.Wrap(err).Error("Failed to parse file URL")
	}

	reader, err := g.client.Bucket(bucketName).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, errctx.Wrap(err).Error("Failed to open object for reading")
	}
	defer reader.Close()

	contents, err := io.ReadAll(reader)
	if err != nil {
		return nil, errctx.Wrap(err).Error("Failed to read object")
	}

	return contents, nil
}

func (g GoogleFileStore) WriteFile(ctx context.Context, fileURL string, fileContent []byte) error {
	errctx := cerr.Field("file_url", fileURL)

	bucketName, objectName, err := g.splitURL(fileURL)
	if err != nil {
		return errctx.Wrap(err).Error("Failed to parse file URL")
	}

	log.WithField("file_url", fileURL).Info("Writing file to cloud storage")

	writer := g.client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	if _, err := writer.Write(fileContent); err != nil {
		_ = writer.Close()
		return errctx.Wrap(err).Error("Failed to write object contents")
	}

	if err := writer.Close(); err != nil {
		return errctx.Wrap(err).Error("Failed to finalize object")
	}

	return nil
}

// splitURL turns <host>/<bucket>/<object path> into its bucket and object names
func (g GoogleFileStore) splitURL(fileURL string) (string, string, error) {
	prefix := g.storageHost + "/"
	if !strings.HasPrefix(fileURL, prefix) {
		return "", "", cerr.Field("storage_host", g.storageHost).
			Error(fmt.Sprintf("URL does not belong to the storage host: %s", fileURL))
	}

	bucketAndObject := strings.TrimPrefix(fileURL, prefix)
	parts := strings.SplitN(bucketAndObject, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", cerr.Error(fmt.Sprintf("URL is missing a bucket or object name: %s", fileURL))
	}

	return parts[0], parts[1], nil
}
