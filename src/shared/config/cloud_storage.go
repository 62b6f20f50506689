package config

import "google.golang.org/api/option"

// CloudStorage is optional: a nil CloudStorage config disables the artifact archive
type CloudStorage interface {
	GetStorageHost() string
	GetBucket() string
	ClientOptions() []option.ClientOption
}

var _ CloudStorage = ProdCloudStorage{}

type ProdCloudStorage struct {
	StorageHost string
	SecretKey   string
	BucketName  string
}

func (p ProdCloudStorage) GetStorageHost() string {
	return p.StorageHost
}

func (p ProdCloudStorage) GetBucket() string {
	return p.BucketName
}

func (p ProdCloudStorage) ClientOptions() []option.ClientOption {
	return []option.ClientOption{
		option.WithCredentialsJSON([]byte(p.SecretKey)),
	}
}

var _ CloudStorage = LocalCloudStorage{}

// LocalCloudStorage points at an emulator, which takes any API key
type LocalCloudStorage struct {
	StorageHost  string
	HostEndpoint string
	BucketName   string
}

func (l LocalCloudStorage) GetStorageHost() string {
	return l.StorageHost
}

func (l LocalCloudStorage) GetBucket() string {
	return l.BucketName
}

func (l LocalCloudStorage) ClientOptions() []option.ClientOption {
	return []option.ClientOption{
		option.WithEndpoint(l.HostEndpoint),
		option.WithAPIKey("fake_api_key"),
	}
}
