package testing

import (
	"path/filepath"
	"time"

	server_app "github.com/veedubyou/vocal-separator/src/server/application"
	"github.com/veedubyou/vocal-separator/src/shared/config"
	"github.com/veedubyou/vocal-separator/src/shared/config/dev"
	"github.com/veedubyou/vocal-separator/src/shared/lib/executor"
)

const (
	DemucsBinPath = "demucs"
	FFmpegBinPath = "ffmpeg"
	DemucsModel   = dev.DemucsModel
)

// ServerConfig runs everything under rootDir with the given executor standing in for the binaries
func ServerConfig(rootDir string, binExecutor executor.Executor) server_app.Config {
	return server_app.Config{
		DynamoConfig:       nil,
		CloudStorageConfig: nil,
		RabbitMQ:           config.RabbitMQ{},
		CORSAllowedOrigins: []string{"*"},
		DemucsBinPath:      DemucsBinPath,
		DemucsModel:        DemucsModel,
		FFmpegBinPath:      FFmpegBinPath,
		WorkingDirPath:     filepath.Join(rootDir, "separate"),
		OutputDirPath:      filepath.Join(rootDir, "outputs"),
		SeparationTimeout:  10 * time.Second,
		Executor:           binExecutor,
		Port:               ServerPort,
		Log:                false,
	}
}

// DynamoDB
const (
	DynamoAccessKeyID     = dev.DynamoAccessKeyID
	DynamoSecretAccessKey = dev.DynamoSecretAccessKey
	DynamoDBHost          = dev.DynamoDBHost
)

// RabbitMQ
const (
	RabbitMQHost      = dev.RabbitMQHost
	RabbitMQQueueName = "vocal-separator-jobs-test"
)

// Server
const (
	ServerPort = ":5010"
)
