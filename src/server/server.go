package main

import (
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/veedubyou/vocal-separator/src/server/application"
	"github.com/veedubyou/vocal-separator/src/shared/cloud_storage/store"
	"github.com/veedubyou/vocal-separator/src/shared/config"
	"github.com/veedubyou/vocal-separator/src/shared/config/dev"
	"github.com/veedubyou/vocal-separator/src/shared/config/envvar"
	"github.com/veedubyou/vocal-separator/src/shared/config/local"
	"github.com/veedubyou/vocal-separator/src/shared/lib/env"
)

const (
	defaultEnvFile   = ".env"
	defaultProdPort  = ":8000"
	defaultAWSRegion = "us-east-2"
)

var (
	envFile string
	port    string
)

var rootCmd = &cobra.Command{
	Use:   "vocal-separator",
	Short: "Splits uploaded songs into a vocal track and an instrumental track",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnvFile(envFile)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the separation API",
	RunE: func(cmd *cobra.Command, args []string) error {
		appConfig := makeConfig()
		if port != "" {
			appConfig.Port = normalizePort(port)
		}

		app := application.NewApp(appConfig)
		return app.Start()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", defaultEnvFile, "env file to load, variables already set win")
	serveCmd.Flags().StringVar(&port, "port", "", "port to listen on, overrides the environment")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadEnvFile is quiet about the default file being absent, but not a requested one
func loadEnvFile(file string) error {
	err := godotenv.Load(file)
	if err == nil {
		log.WithField("env_file", file).Info("Loaded env file")
		return nil
	}

	if file == defaultEnvFile && os.IsNotExist(err) {
		return nil
	}

	return errors.Wrapf(err, "Failed to load env file %s", file)
}

func makeConfig() application.Config {
	switch env.Get() {
	case env.Production:
		commaSeparatedOrigins := envvar.MustGet(envvar.ALLOWED_FE_ORIGINS)
		allowedOrigins := strings.Split(commaSeparatedOrigins, ",")

		return application.Config{
			DynamoConfig: config.ProdDynamo{
				AccessKeyID:     envvar.MustGet(envvar.AWS_ACCESS_KEY_ID),
				SecretAccessKey: envvar.MustGet(envvar.AWS_SECRET_ACCESS_KEY),
				Region:          envvar.GetOrDefault(envvar.AWS_REGION, defaultAWSRegion),
			},
			CloudStorageConfig: prodCloudStorage(),
			RabbitMQ: config.RabbitMQ{
				URL:       envvar.GetOrDefault(envvar.RABBITMQ_URL, ""),
				QueueName: envvar.GetOrDefault(envvar.RABBITMQ_QUEUE_NAME, ""),
			},
			CORSAllowedOrigins: allowedOrigins,
			DemucsBinPath:      envvar.MustGet(envvar.DEMUCS_BIN_PATH),
			DemucsModel:        envvar.GetOrDefault(envvar.DEMUCS_MODEL, dev.DemucsModel),
			FFmpegBinPath:      envvar.MustGet(envvar.FFMPEG_BIN_PATH),
			WorkingDirPath:     envvar.MustGet(envvar.SEPARATION_WORKING_DIR_PATH),
			OutputDirPath:      envvar.MustGet(envvar.SEPARATION_OUTPUT_DIR_PATH),
			SeparationTimeout:  separationTimeout(),
			Port:               normalizePort(envvar.GetOrDefault(envvar.PORT, defaultProdPort)),
			Log:                true,
		}

	case env.Development:
		return application.Config{
			DynamoConfig: devDynamo(),
			RabbitMQ: config.RabbitMQ{
				URL:       envvar.GetOrDefault(envvar.RABBITMQ_URL, ""),
				QueueName: envvar.GetOrDefault(envvar.RABBITMQ_QUEUE_NAME, dev.RabbitMQQueueName),
			},
			CORSAllowedOrigins: []string{"*"},
			DemucsBinPath:      binPath(envvar.DEMUCS_BIN_PATH, config.DemucsPath),
			DemucsModel:        envvar.GetOrDefault(envvar.DEMUCS_MODEL, dev.DemucsModel),
			FFmpegBinPath:      binPath(envvar.FFMPEG_BIN_PATH, config.FFmpegPath),
			WorkingDirPath:     path.Join(local.ProjectRoot(), dev.WorkingDirRelativePath),
			OutputDirPath:      path.Join(local.ProjectRoot(), dev.OutputDirRelativePath),
			SeparationTimeout:  separationTimeout(),
			Port:               normalizePort(envvar.GetOrDefault(envvar.PORT, dev.Port)),
			Log:                true,
		}

	default:
		panic("Unexpected environment")
	}
}

func prodCloudStorage() config.CloudStorage {
	bucket := envvar.GetOrDefault(envvar.GOOGLE_CLOUD_STORAGE_BUCKET_NAME, "")
	if bucket == "" {
		return nil
	}

	return config.ProdCloudStorage{
		StorageHost: store.GOOGLE_STORAGE_HOST,
		SecretKey:   envvar.MustGet(envvar.GOOGLE_CLOUD_KEY),
		BucketName:  bucket,
	}
}

// devDynamo keeps jobs in memory unless a local DynamoDB is asked for
func devDynamo() config.Dynamo {
	if envvar.GetOrDefault(envvar.USE_LOCAL_DYNAMO, "") != "true" {
		return nil
	}

	return dev.DynamoConfig
}

// binPath prefers the env var and falls back to searching PATH
func binPath(key string, find func() string) string {
	if bin := envvar.GetOrDefault(key, ""); bin != "" {
		return bin
	}

	return find()
}

func separationTimeout() time.Duration {
	seconds := envvar.GetIntOrDefault(envvar.SEPARATION_TIMEOUT_SECONDS, dev.SeparationTimeoutSecs)
	return time.Duration(seconds) * time.Second
}

func normalizePort(port string) string {
	if strings.HasPrefix(port, ":") {
		return port
	}

	return ":" + port
}
