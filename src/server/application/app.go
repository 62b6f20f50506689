package application

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/apex/log"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/cockroachdb/errors"
	"github.com/guregu/dynamo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/veedubyou/vocal-separator/src/server/internal/job/entity"
	"github.com/veedubyou/vocal-separator/src/server/internal/job/gateway"
	"github.com/veedubyou/vocal-separator/src/server/internal/job/storage"
	"github.com/veedubyou/vocal-separator/src/server/internal/job/usecase"
	"github.com/veedubyou/vocal-separator/src/server/internal/lib/metrics"
	"github.com/veedubyou/vocal-separator/src/server/internal/progress/gateway"
	"github.com/veedubyou/vocal-separator/src/server/internal/progress/registry"
	"github.com/veedubyou/vocal-separator/src/server/internal/separation/gateway"
	"github.com/veedubyou/vocal-separator/src/server/internal/separation/normalizer"
	"github.com/veedubyou/vocal-separator/src/server/internal/separation/splitter"
	"github.com/veedubyou/vocal-separator/src/server/internal/separation/usecase"
	"github.com/veedubyou/vocal-separator/src/shared/cloud_storage/entity"
	"github.com/veedubyou/vocal-separator/src/shared/cloud_storage/store"
	"github.com/veedubyou/vocal-separator/src/shared/config"
	"github.com/veedubyou/vocal-separator/src/shared/lib/dynamo"
	"github.com/veedubyou/vocal-separator/src/shared/lib/executor"
	"github.com/veedubyou/vocal-separator/src/shared/lib/rabbitmq"
	"github.com/veedubyou/vocal-separator/src/shared/lib/storagepath"
	"github.com/veedubyou/vocal-separator/src/shared/lib/working_dir"
)

type HTTPMethod string

const (
	GET    HTTPMethod = "GET"
	POST   HTTPMethod = "POST"
	PUT    HTTPMethod = "PUT"
	DELETE HTTPMethod = "DELETE"
)

const HealthMessage = "Vocal Removal API is running"

type App struct {
	echo *echo.Echo
	port string
}

type Config struct {
	// nil keeps job records in memory
	DynamoConfig config.Dynamo
	// nil turns off the artifact archive
	CloudStorageConfig config.CloudStorage
	RabbitMQ           config.RabbitMQ
	CORSAllowedOrigins []string

	DemucsBinPath     string
	DemucsModel       string
	FFmpegBinPath     string
	WorkingDirPath    string
	OutputDirPath     string
	SeparationTimeout time.Duration
	// nil runs the real binaries
	Executor executor.Executor

	Port string
	Log  bool
}

func NewApp(config Config) App {
	e := echo.New()
	e.HideBanner = true

	if config.Log {
		e.Use(middleware.Logger())
	}

	metrics.Register(prometheus.DefaultRegisterer)

	corsMiddleware := makeCorsMiddleware(config)

	handleRoute := func(method HTTPMethod, path string, handlerFunc echo.HandlerFunc) {
		params := func() (string, echo.HandlerFunc, echo.MiddlewareFunc) {
			return path, handlerFunc, corsMiddleware
		}

		e.OPTIONS(params())

		switch method {
		case GET:
			e.GET(params())
		case POST:
			e.POST(params())
		case PUT:
			e.PUT(params())
		case DELETE:
			e.DELETE(params())
		default:
			panic("unhandled http method!")
		}
	}

	progressRegistry := registry.NewRegistry()
	jobStore := makeJobStore(config.DynamoConfig)

	separationGateway := makeSeparationGateway(config, progressRegistry, jobStore)
	progressGateway := progressgateway.NewGateway(progressRegistry, config.CORSAllowedOrigins)
	jobGateway := jobgateway.NewGateway(jobusecase.NewUsecase(jobStore))

	// health check
	handleRoute(GET, "/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"message": HealthMessage,
		})
	})
	handleRoute(GET, "/health-check", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	// separation routes
	separate := func(c echo.Context) error {
		return separationGateway.Separate(c, "")
	}
	handleRoute(POST, "/separate", separate)
	handleRoute(POST, "/separate/", separate)
	handleRoute(POST, "/separate/:client_id", func(c echo.Context) error {
		clientID := c.Param("client_id")
		return separationGateway.Separate(c, clientID)
	})
	handleRoute(GET, "/download/:filename", func(c echo.Context) error {
		fileName := c.Param("filename")
		return separationGateway.Download(c, fileName)
	})

	// progress routes
	handleRoute(GET, "/ws/:client_id", func(c echo.Context) error {
		clientID := c.Param("client_id")
		return progressGateway.Subscribe(c, clientID)
	})

	// job routes
	handleRoute(GET, "/jobs/:id", func(c echo.Context) error {
		jobID := c.Param("id")
		return jobGateway.GetJob(c, jobID)
	})

	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	return App{
		echo: e,
		port: config.Port,
	}
}

func (a *App) Handler() http.Handler {
	return a.echo
}

func (a *App) Start() error {
	log.WithField("port", a.port).Info("Starting server")

	err := a.echo.Start(a.port)
	if err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "Couldn't start echo server")
	}

	return nil
}

func (a *App) Stop() error {
	err := a.echo.Close()
	if err != nil {
		return errors.Wrap(err, "Failed to stop echo server")
	}

	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.echo.Shutdown(ctx)
	if err != nil {
		return errors.Wrap(err, "Failed to shut down echo server")
	}

	return nil
}

func must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}

	return val
}

func makeSeparationGateway(config Config, progressRegistry *registry.Registry, jobStore jobentity.Store) separationgateway.Gateway {
	workingDir := must(working_dir.NewWorkingDir(config.WorkingDirPath))
	outputDir := must(filepath.Abs(config.OutputDirPath))
	if err := ensureDir(outputDir); err != nil {
		panic(err)
	}

	binExecutor := config.Executor
	if binExecutor == nil {
		binExecutor = executor.BinaryFileExecutor{}
	}

	ffmpegNormalizer := normalizer.NewFFmpegNormalizer(config.FFmpegBinPath, binExecutor)
	demucsRunner := splitter.NewDemucsRunner(
		workingDir.Root(),
		config.DemucsBinPath,
		binExecutor,
		splitter.WithModel(config.DemucsModel),
		splitter.WithTimeout(config.SeparationTimeout),
	)

	postProcessor := separationusecase.NewPostProcessor(
		makeFileStore(config.CloudStorageConfig),
		makePathGenerator(config.CloudStorageConfig),
		makeRabbitMQPublisher(config.RabbitMQ),
	)

	usecase := separationusecase.NewUsecase(
		workingDir.TempDir(),
		outputDir,
		ffmpegNormalizer,
		demucsRunner,
		progressRegistry,
		jobStore,
		postProcessor,
	)

	return separationgateway.NewGateway(usecase)
}

func makeRabbitMQPublisher(rabbitMQConfig config.RabbitMQ) rabbitmq.Publisher {
	if !rabbitMQConfig.Enabled() {
		return rabbitmq.DisabledPublisher{}
	}

	publisher, err := rabbitmq.NewQueuePublisher(rabbitMQConfig.URL, rabbitMQConfig.QueueName)
	if err != nil {
		panic(errors.Wrap(err, "Failed to create rabbitMQ publisher"))
	}

	return publisher
}

func makeFileStore(cloudStorageConfig config.CloudStorage) cloudstorage.FileStore {
	if cloudStorageConfig == nil {
		return nil
	}

	return must(store.NewGoogleFileStore(
		cloudStorageConfig.GetStorageHost(),
		cloudStorageConfig.ClientOptions()...,
	))
}

func makePathGenerator(cloudStorageConfig config.CloudStorage) storagepath.Generator {
	if cloudStorageConfig == nil {
		return storagepath.Generator{}
	}

	return storagepath.Generator{
		Host:   cloudStorageConfig.GetStorageHost(),
		Bucket: cloudStorageConfig.GetBucket(),
	}
}

func makeJobStore(dynamoConfig config.Dynamo) jobentity.Store {
	if dynamoConfig == nil {
		return jobstorage.NewMemory()
	}

	jobDB := jobstorage.NewDB(makeDynamoDB(dynamoConfig))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := jobDB.EnsureTable(ctx); err != nil {
		log.WithError(err).Error("Job table is not available, job records will fail to save")
	}

	return jobDB
}

func makeDynamoDB(dynamoConfig config.Dynamo) dynamolib.DynamoDBWrapper {
	dbSession := session.Must(session.NewSession())
	db := dynamo.New(dbSession, dynamoConfig.AWSConfig())
	return dynamolib.NewDynamoDBWrapper(db)
}

func makeCorsMiddleware(config Config) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: config.CORSAllowedOrigins,
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	})
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.Wrapf(err, "Failed to create dir %s", dir)
	}

	return nil
}
