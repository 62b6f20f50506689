package separationusecase_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/veedubyou/vocal-separator/src/server/internal/errors/api"
	"github.com/veedubyou/vocal-separator/src/server/internal/integration_test/dummy"
	"github.com/veedubyou/vocal-separator/src/server/internal/job/entity"
	"github.com/veedubyou/vocal-separator/src/server/internal/job/storage"
	"github.com/veedubyou/vocal-separator/src/server/internal/progress/registry"
	"github.com/veedubyou/vocal-separator/src/server/internal/separation/entity"
	"github.com/veedubyou/vocal-separator/src/server/internal/separation/errors"
	"github.com/veedubyou/vocal-separator/src/server/internal/separation/normalizer"
	"github.com/veedubyou/vocal-separator/src/server/internal/separation/splitter"
	"github.com/veedubyou/vocal-separator/src/server/internal/separation/usecase"
	"github.com/veedubyou/vocal-separator/src/shared/lib/storagepath"
	"github.com/veedubyou/vocal-separator/src/shared/lib/working_dir"
	"github.com/veedubyou/vocal-separator/src/shared/testing"
)

var _ = Describe("Separation Usecase", func() {
	var (
		workingDir       working_dir.WorkingDir
		outputDir        string
		ffmpeg           *dummy.FFmpegExecutor
		demucs           *dummy.DemucsExecutor
		progressRegistry *registry.Registry
		channel          *dummy.Channel
		jobStore         *jobstorage.Memory
		fileStore        *dummy.FileStore
		publisher        *dummy.Publisher
		runnerOptions    []splitter.Option

		upload   separationentity.Upload
		clientID string

		separated separationentity.Separated
		apiErr    *api.Error
	)

	stagedFiles := func() []string {
		entries, err := os.ReadDir(workingDir.TempDir())
		Expect(err).NotTo(HaveOccurred())

		names := []string{}
		for _, entry := range entries {
			names = append(names, entry.Name())
		}
		return names
	}

	scratchDirs := func() []string {
		return testing.ExpectSuccess(filepath.Glob(filepath.Join(workingDir.Root(), "separate-*")))
	}

	publishedEvent := func(index int) (string, separationusecase.JobEvent) {
		messages := publisher.Messages()
		Expect(len(messages)).To(BeNumerically(">", index))

		event := separationusecase.JobEvent{}
		Expect(json.Unmarshal(messages[index].Body, &event)).To(Succeed())
		return messages[index].Type, event
	}

	BeforeEach(func() {
		root := testing.TempDir()
		workingDir = testing.ExpectSuccess(working_dir.NewWorkingDir(filepath.Join(root, "separate")))
		outputDir = filepath.Join(root, "outputs")
		Expect(os.MkdirAll(outputDir, os.ModePerm)).To(Succeed())

		ffmpeg = &dummy.FFmpegExecutor{}
		demucs = &dummy.DemucsExecutor{}
		progressRegistry = registry.NewRegistry()
		channel = &dummy.Channel{}
		jobStore = jobstorage.NewMemory()
		fileStore = &dummy.FileStore{}
		publisher = &dummy.Publisher{}
		runnerOptions = nil

		upload = separationentity.Upload{
			FileName: "song.mp3",
			Content:  bytes.NewBufferString("mp3 bytes"),
		}
		clientID = ""
	})

	JustBeforeEach(func() {
		if clientID != "" {
			progressRegistry.Register(clientID, channel)
		}

		usecase := separationusecase.NewUsecase(
			workingDir.TempDir(),
			outputDir,
			normalizer.NewFFmpegNormalizer("ffmpeg", ffmpeg),
			splitter.NewDemucsRunner(workingDir.Root(), "demucs", demucs, runnerOptions...),
			progressRegistry,
			jobStore,
			separationusecase.NewPostProcessor(
				fileStore,
				storagepath.Generator{Host: "https://storage.example", Bucket: "separations-test"},
				publisher,
			),
		)

		separated, apiErr = usecase.Separate(context.Background(), upload, clientID)
	})

	Describe("Uploading song.mp3 without a client", func() {
		It("responds with the separated file names", func() {
			Expect(apiErr).To(BeNil())
			Expect(separated.Vocals).To(Equal("song_vocals.mp3"))
			Expect(separated.Instrumental).To(Equal("song_instrumental.mp3"))
			Expect(separated.OriginalName).To(Equal("song"))
			Expect(separated.JobID).NotTo(BeEmpty())
		})

		It("writes both tracks to the output dir", func() {
			Expect(os.ReadFile(filepath.Join(outputDir, "song_vocals.mp3"))).To(BeEquivalentTo(dummy.VocalsContent))
			Expect(os.ReadFile(filepath.Join(outputDir, "song_instrumental.mp3"))).To(BeEquivalentTo(dummy.RemainderContent))
		})

		It("converts to wav before separating", func() {
			ffmpegCalls := ffmpeg.Invocations()
			Expect(ffmpegCalls).To(HaveLen(1))
			Expect(filepath.Ext(ffmpegCalls[0].ArgAfter("-i"))).To(Equal(".mp3"))

			demucsCalls := demucs.Invocations()
			Expect(demucsCalls).To(HaveLen(1))
			Expect(demucsCalls[0].LastArg()).To(Equal(ffmpegCalls[0].LastArg()))
			Expect(filepath.Ext(demucsCalls[0].LastArg())).To(Equal(".wav"))
		})

		It("leaves no temporary files behind", func() {
			Expect(stagedFiles()).To(BeEmpty())
			Expect(scratchDirs()).To(BeEmpty())
		})

		It("records the completed job", func() {
			job := testing.ExpectSuccess(jobStore.GetJob(context.Background(), separated.JobID))
			Expect(job.Status).To(Equal(jobentity.StatusComplete))
			Expect(job.OriginalName).To(Equal("song"))
			Expect(job.Vocals).To(Equal("song_vocals.mp3"))
			Expect(job.Instrumental).To(Equal("song_instrumental.mp3"))
		})

		It("archives both tracks", func() {
			job := testing.ExpectSuccess(jobStore.GetJob(context.Background(), separated.JobID))
			expectedURL := "https://storage.example/separations-test/separations/" + separated.JobID + "/song_vocals.mp3"
			Expect(job.VocalsURL).To(Equal(expectedURL))
			Expect(fileStore.GetFile(context.Background(), job.VocalsURL)).To(BeEquivalentTo(dummy.VocalsContent))
			Expect(fileStore.GetFile(context.Background(), job.InstrumentalURL)).To(BeEquivalentTo(dummy.RemainderContent))
		})

		It("announces the completion", func() {
			eventType, event := publishedEvent(0)
			Expect(eventType).To(Equal(separationusecase.CompletedEventType))
			Expect(event.JobID).To(Equal(separated.JobID))
			Expect(event.Vocals).To(Equal("song_vocals.mp3"))
		})

		Describe("When archiving and announcing fail", func() {
			BeforeEach(func() {
				fileStore.Fail = true
				publisher.Fail = true
			})

			It("still succeeds", func() {
				Expect(apiErr).To(BeNil())
				Expect(separated.Vocals).To(Equal("song_vocals.mp3"))
			})

			It("records the job without archive urls", func() {
				job := testing.ExpectSuccess(jobStore.GetJob(context.Background(), separated.JobID))
				Expect(job.Status).To(Equal(jobentity.StatusComplete))
				Expect(job.VocalsURL).To(BeEmpty())
			})
		})

		Describe("When conversion fails", func() {
			BeforeEach(func() {
				ffmpeg.Fail = true
			})

			It("separates the original upload instead", func() {
				Expect(apiErr).To(BeNil())
				Expect(filepath.Ext(demucs.Invocations()[0].LastArg())).To(Equal(".mp3"))
				Expect(stagedFiles()).To(BeEmpty())
			})
		})
	})

	Describe("Uploading a wav", func() {
		BeforeEach(func() {
			upload.FileName = "take 3.wav"
		})

		It("skips conversion", func() {
			Expect(apiErr).To(BeNil())
			Expect(ffmpeg.Invocations()).To(BeEmpty())
			Expect(separated.Vocals).To(Equal("take 3_vocals.mp3"))
		})
	})

	Describe("Uploading a name with directories in it", func() {
		BeforeEach(func() {
			upload.FileName = `C:\music\..\demo.flac`
		})

		It("only keeps the base name", func() {
			Expect(apiErr).To(BeNil())
			Expect(separated.OriginalName).To(Equal("demo"))
			Expect(filepath.Join(outputDir, "demo_vocals.mp3")).To(BeARegularFile())
		})
	})

	Describe("Uploading with a subscribed client", func() {
		BeforeEach(func() {
			clientID = "abc"
			demucs.OutputLines = []string{
				" 10%|█         | 5.85/58.5",
				" 50%|█████     | 29.25/58.5",
				" 90%|█████████ | 52.65/58.5",
			}
		})

		It("streams progress from upload to completion", func() {
			Expect(apiErr).To(BeNil())
			Expect(channel.Progress()).To(Equal([]int{0, 20, 27, 57, 87, 95, 100}))

			events := channel.Events()
			Expect(events[0].Message).To(Equal(separationusecase.UploadingMessage))
			Expect(events[len(events)-1].Message).To(Equal(separationusecase.CompleteMessage))
		})

		Describe("When the subscriber goes away mid job", func() {
			BeforeEach(func() {
				channel.Fail = true
			})

			It("finishes the job anyway", func() {
				Expect(apiErr).To(BeNil())
				Expect(progressRegistry.Registered("abc")).To(BeFalse())
			})
		})
	})

	Describe("A separation that runs past the time limit", func() {
		BeforeEach(func() {
			clientID = "abc"
			demucs.BlockUntilCancel = true
			runnerOptions = append(runnerOptions, splitter.WithTimeout(100*time.Millisecond))
		})

		It("fails with the timeout message", func() {
			Expect(apiErr).NotTo(BeNil())
			Expect(apiErr.ErrorCode).To(Equal(separationerrors.SeparationTimeoutCode))
			Expect(apiErr.UserMessage).To(Equal("Processing timeout - file may be too large"))
		})

		It("tells the subscriber", func() {
			events := channel.Events()
			last := events[len(events)-1]
			Expect(last.Progress).To(Equal(separationentity.FailedProgress))
			Expect(last.Message).To(HavePrefix("error: "))
			Expect(strings.ToLower(last.Message)).To(ContainSubstring("timeout"))
		})

		It("leaves no temporary files behind", func() {
			Expect(stagedFiles()).To(BeEmpty())
			Expect(scratchDirs()).To(BeEmpty())
		})

		It("records and announces the failure", func() {
			eventType, event := publishedEvent(0)
			Expect(eventType).To(Equal(separationusecase.FailedEventType))
			Expect(event.Error).To(Equal(separationerrors.TimeoutUserMessage))

			job := testing.ExpectSuccess(jobStore.GetJob(context.Background(), event.JobID))
			Expect(job.Status).To(Equal(jobentity.StatusError))
			Expect(job.Error).To(Equal(separationerrors.TimeoutUserMessage))
		})
	})

	Describe("A separator that exits with an error", func() {
		BeforeEach(func() {
			clientID = "abc"
			demucs.ExitCode = 1
			demucs.OutputLines = []string{
				"Traceback (most recent call last):",
				"RuntimeError: Could not load file",
			}
		})

		It("fails with the separator's reason", func() {
			Expect(apiErr.ErrorCode).To(Equal(separationerrors.SeparationFailedCode))
			Expect(apiErr.UserMessage).To(Equal("Separation failed: RuntimeError: Could not load file"))
		})

		It("ends the subscriber's progress with a failure", func() {
			Expect(channel.Progress()).To(Equal([]int{0, 20, -1}))
		})

		It("doesn't produce outputs", func() {
			Expect(filepath.Join(outputDir, "song_vocals.mp3")).NotTo(BeAnExistingFile())
		})

		It("leaves no temporary files behind", func() {
			Expect(stagedFiles()).To(BeEmpty())
			Expect(scratchDirs()).To(BeEmpty())
		})
	})

	Describe("A separator that loses a stem", func() {
		BeforeEach(func() {
			demucs.SkipVocals = true
		})

		It("fails as a missing artifact", func() {
			Expect(apiErr.ErrorCode).To(Equal(separationerrors.ArtifactMissingCode))
			Expect(filepath.Join(outputDir, "song_instrumental.mp3")).NotTo(BeAnExistingFile())
		})
	})

	Describe("An upload without content", func() {
		BeforeEach(func() {
			clientID = "abc"
			upload.Content = nil
		})

		It("fails to stage", func() {
			Expect(apiErr.ErrorCode).To(Equal(separationerrors.UploadFailedCode))
			Expect(demucs.Invocations()).To(BeEmpty())
			Expect(channel.Progress()).To(Equal([]int{0, -1}))
		})
	})
})
