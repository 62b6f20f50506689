package integration_test

import (
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/fsouza/fake-gcs-server/fakestorage"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	server_app "github.com/veedubyou/vocal-separator/src/server/application"
	"github.com/veedubyou/vocal-separator/src/server/internal/integration_test/dummy"
	"github.com/veedubyou/vocal-separator/src/server/internal/job/entity"
	"github.com/veedubyou/vocal-separator/src/server/internal/separation/entity"
	"github.com/veedubyou/vocal-separator/src/shared/config"
	"github.com/veedubyou/vocal-separator/src/shared/lib/executor"
	. "github.com/veedubyou/vocal-separator/src/shared/testing"
)

const bucketName = "vocal-separator-test"

var _ = Describe("Separation", func() {
	var (
		server       server_app.App
		cloudStorage *fakestorage.Server
		demucs       *dummy.DemucsExecutor
		ffmpeg       *dummy.FFmpegExecutor
	)

	ServerHealthCheck := func() (int, error) {
		response, err := RequestFactory{
			Method: http.MethodGet,
			Target: ServerEndpoint("/health-check"),
		}.Do()

		if err != nil {
			return 0, err
		}
		defer response.Body.Close()

		return response.StatusCode, nil
	}

	Metrics := func() string {
		response := ExpectSuccess(http.Get(ServerEndpoint("/metrics")))
		defer response.Body.Close()

		return string(ExpectSuccess(io.ReadAll(response.Body)))
	}

	Upload := func(target string, fileName string) *http.Response {
		return ExpectSuccess(RequestFactory{
			Method: http.MethodPost,
			Target: ServerEndpoint(target),
			Upload: &UploadFile{
				Field:    "file",
				FileName: fileName,
				Content:  []byte("some audio"),
			},
		}.Do())
	}

	ExpectFileContents := func(fileURL string, contents string) {
		response := ExpectSuccess(http.Get(fileURL))
		defer response.Body.Close()

		Expect(response.StatusCode).To(Equal(http.StatusOK))
		Expect(io.ReadAll(response.Body)).To(BeEquivalentTo(contents))
	}

	BeforeEach(func() {
		By("Initializing Fake Cloud Storage Server")
		cloudStorage = ExpectSuccess(fakestorage.NewServerWithOptions(fakestorage.Options{
			Scheme:     "http",
			PublicHost: "localhost:4443",
			Host:       "localhost",
			Port:       4443,
		}))
		cloudStorage.CreateBucketWithOpts(fakestorage.CreateBucketOpts{Name: bucketName})
	})

	AfterEach(func() {
		cloudStorage.Stop()
	})

	BeforeEach(func() {
		By("Initializing Server")
		demucs = &dummy.DemucsExecutor{
			OutputLines: []string{
				" 10%|█         | 5.85/58.5 [00:01<00:09]",
				" 50%|█████     | 29.25/58.5 [00:05<00:05]",
				" 90%|█████████ | 52.65/58.5 [00:09<00:01]",
			},
			LineEnding: "\r",
		}
		ffmpeg = &dummy.FFmpegExecutor{}

		serverConfig := ServerConfig(TempDir(), &dummy.Executor{
			Bins: map[string]executor.Executor{
				DemucsBinPath: demucs,
				FFmpegBinPath: ffmpeg,
			},
		})
		serverConfig.CloudStorageConfig = config.LocalCloudStorage{
			StorageHost:  cloudStorage.PublicURL(),
			HostEndpoint: fmt.Sprintf("%s/storage/v1", cloudStorage.PublicURL()),
			BucketName:   bucketName,
		}

		server = server_app.NewApp(serverConfig)

		go func() {
			defer GinkgoRecover()

			err := server.Start()
			Expect(err).NotTo(HaveOccurred())
		}()

		Eventually(ServerHealthCheck).Should(Equal(http.StatusOK))
	})

	AfterEach(func() {
		Expect(server.Stop()).To(Succeed())
	})

	It("says hello", func() {
		response := ExpectSuccess(http.Get(ServerEndpoint("/")))
		defer response.Body.Close()

		Expect(response.StatusCode).To(Equal(http.StatusOK))
		Expect(DecodeJSON[map[string]string](response.Body)).To(Equal(map[string]string{
			"status":  "ok",
			"message": server_app.HealthMessage,
		}))
	})

	Describe("Separating an upload", func() {
		var (
			subscription *websocket.Conn
			eventsLock   sync.Mutex
			events       []separationentity.ProgressEvent
			separated    separationentity.Separated
		)

		ReceivedProgress := func() []int {
			eventsLock.Lock()
			defer eventsLock.Unlock()

			progress := []int{}
			for _, event := range events {
				progress = append(progress, event.Progress)
			}
			return progress
		}

		BeforeEach(func() {
			By("Subscribing to progress")
			events = nil
			var err error
			subscription, _, err = websocket.DefaultDialer.Dial(WebsocketEndpoint("/ws/abc"), nil)
			Expect(err).NotTo(HaveOccurred())

			conn := subscription
			go func() {
				for {
					event := separationentity.ProgressEvent{}
					if err := conn.ReadJSON(&event); err != nil {
						return
					}

					eventsLock.Lock()
					events = append(events, event)
					eventsLock.Unlock()
				}
			}()

			Eventually(Metrics).Should(ContainSubstring("progress_subscribers 1\n"))
		})

		AfterEach(func() {
			Expect(subscription.Close()).To(Succeed())
			Eventually(Metrics).Should(ContainSubstring("progress_subscribers 0\n"))
		})

		JustBeforeEach(func() {
			By("Uploading the song")
			response := Upload("/separate/abc", "song.mp3")
			defer response.Body.Close()

			Expect(response.StatusCode).To(Equal(http.StatusOK))
			separated = DecodeJSON[separationentity.Separated](response.Body)
		})

		It("names the separated tracks after the upload", func() {
			Expect(separated.Vocals).To(Equal("song_vocals.mp3"))
			Expect(separated.Instrumental).To(Equal("song_instrumental.mp3"))
			Expect(separated.OriginalName).To(Equal("song"))
		})

		It("streams the progress to the subscriber", func() {
			Eventually(ReceivedProgress).Should(Equal([]int{0, 20, 27, 57, 87, 95, 100}))
		})

		It("serves both tracks for download", func() {
			response := ExpectSuccess(http.Get(ServerEndpoint("/download/" + separated.Vocals)))
			defer response.Body.Close()

			Expect(response.StatusCode).To(Equal(http.StatusOK))
			Expect(response.Header.Get(echo.HeaderContentType)).To(Equal("audio/mpeg"))
			Expect(io.ReadAll(response.Body)).To(BeEquivalentTo(dummy.VocalsContent))

			instrumental := ExpectSuccess(http.Get(ServerEndpoint("/download/" + separated.Instrumental)))
			defer instrumental.Body.Close()
			Expect(io.ReadAll(instrumental.Body)).To(BeEquivalentTo(dummy.RemainderContent))
		})

		It("keeps a job record with the archived tracks", func() {
			response := ExpectSuccess(http.Get(ServerEndpoint("/jobs/" + separated.JobID)))
			defer response.Body.Close()

			Expect(response.StatusCode).To(Equal(http.StatusOK))
			job := DecodeJSON[jobentity.Job](response.Body)
			Expect(job.Status).To(Equal(jobentity.StatusComplete))

			ExpectFileContents(job.VocalsURL, dummy.VocalsContent)
			ExpectFileContents(job.InstrumentalURL, dummy.RemainderContent)
		})

		It("counts the job", func() {
			Expect(Metrics()).To(ContainSubstring(`separation_jobs_total{outcome="complete"}`))
		})
	})

	Describe("A failing separation", func() {
		BeforeEach(func() {
			demucs.ExitCode = 1
			demucs.LineEnding = "\n"
			demucs.OutputLines = []string{"RuntimeError: Could not load file"}
		})

		It("responds with the separator's reason", func() {
			response := Upload("/separate", "song.mp3")
			defer response.Body.Close()

			Expect(response.StatusCode).To(Equal(http.StatusInternalServerError))
			jsonErr := DecodeJSONError(response.Body)
			Expect(jsonErr.Msg).To(Equal("Separation failed: RuntimeError: Could not load file"))
			Expect(jsonErr.Code).To(Equal("separation_failed"))
		})
	})

	It("rejects a request without a file", func() {
		response := ExpectSuccess(RequestFactory{
			Method: http.MethodPost,
			Target: ServerEndpoint("/separate/"),
			Upload: &UploadFile{Field: "audio", FileName: "song.mp3", Content: []byte("x")},
		}.Do())
		defer response.Body.Close()

		Expect(response.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(DecodeJSONError(response.Body).Code).To(Equal("bad_upload"))
	})

	It("doesn't find files that were never produced", func() {
		response := ExpectSuccess(http.Get(ServerEndpoint("/download/nothing_vocals.mp3")))
		defer response.Body.Close()

		Expect(response.StatusCode).To(Equal(http.StatusNotFound))
		Expect(DecodeJSONError(response.Body).Msg).To(Equal("File not found"))
	})

	It("doesn't find unknown jobs", func() {
		response := ExpectSuccess(http.Get(ServerEndpoint("/jobs/unknown")))
		defer response.Body.Close()

		Expect(response.StatusCode).To(Equal(http.StatusNotFound))
		Expect(DecodeJSONError(response.Body).Code).To(Equal("job_not_found"))
	})
})
