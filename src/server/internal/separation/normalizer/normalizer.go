package normalizer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/veedubyou/vocal-separator/src/server/internal/lib/metrics"
	separationentity "github.com/veedubyou/vocal-separator/src/server/internal/separation/entity"
	separationerrors "github.com/veedubyou/vocal-separator/src/server/internal/separation/errors"
	"github.com/veedubyou/vocal-separator/src/shared/lib/cerr"
	"github.com/veedubyou/vocal-separator/src/shared/lib/errors/mark"
	"github.com/veedubyou/vocal-separator/src/shared/lib/executor"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

const TargetExtension = ".wav"

//counterfeiter:generate . Normalizer
type Normalizer interface {
	Normalize(ctx context.Context, inputPath string) separationentity.WorkingFile
}

var _ Normalizer = FFmpegNormalizer{}

func NewFFmpegNormalizer(ffmpegBinPath string, executor executor.Executor) FFmpegNormalizer {
	return FFmpegNormalizer{
		ffmpegBinPath: ffmpegBinPath,
		executor:      executor,
	}
}

// FFmpegNormalizer makes sure the separator is handed a lossless wav.
// A failed conversion is not fatal, the original file is used instead.
type FFmpegNormalizer struct {
	ffmpegBinPath string
	executor      executor.Executor
}

func IsTargetFormat(path string) bool {
	return strings.EqualFold(filepath.Ext(path), TargetExtension)
}

func (f FFmpegNormalizer) Normalize(ctx context.Context, inputPath string) separationentity.WorkingFile {
	original := separationentity.WorkingFile{Path: inputPath, Temporary: false}

	if IsTargetFormat(inputPath) {
		return original
	}

	logger := log.WithField("input_path", inputPath)

	outputPath, err := f.makeOutputPath(inputPath)
	if err != nil {
		f.fallBack(logger, err)
		return original
	}

	if err := f.convert(ctx, inputPath, outputPath); err != nil {
		if removeErr := os.Remove(outputPath); removeErr != nil && !os.IsNotExist(removeErr) {
			logger.WithError(removeErr).Warn("Failed to remove partial conversion output")
		}

		f.fallBack(logger, err)
		return original
	}

	return separationentity.WorkingFile{Path: outputPath, Temporary: true}
}

func (f FFmpegNormalizer) fallBack(logger *log.Entry, err error) {
	err = mark.Wrap(err, separationerrors.ConversionMark, "Could not convert to wav")
	logger.WithError(err).Warn("Continuing with the original file")
	metrics.ConversionFellBack()
}

// makeOutputPath reserves a fresh file next to the input, so the wav base name
// stays as unique as the staged upload's
func (f FFmpegNormalizer) makeOutputPath(inputPath string) (string, error) {
	dir := filepath.Dir(inputPath)
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))

	file, err := os.CreateTemp(dir, base+"-*"+TargetExtension)
	if err != nil {
		return "", cerr.Field("dir", dir).Wrap(err).Error("Failed to create temp file for conversion")
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(file.Name())
		return "", cerr.Field("path", file.Name()).Wrap(err).Error("Failed to close temp file for conversion")
	}

	return file.Name(), nil
}

func (f FFmpegNormalizer) convert(ctx context.Context, inputPath string, outputPath string) error {
	logger := log.WithFields(log.Fields{
		"inputPath":  inputPath,
		"outputPath": outputPath,
	})

	logger.Info("Running ffmpeg command")

	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", inputPath, "-vn", outputPath}

	errctx := cerr.Field("ffmpeg_bin_path", f.ffmpegBinPath).Field("ffmpeg_args", args)

	cmd := f.executor.Command(ctx, f.ffmpegBinPath, args...)
	cmd.SetDir(filepath.Dir(inputPath))

	output, err := cmd.CombinedOutput()
	if err != nil {
		return errctx.Field("ffmpeg_output", string(output)).
			Wrap(err).
			Error(fmt.Sprintf("Error occurred while running ffmpeg: %s", string(output)))
	}

	logger.Debug(string(output))
	logger.Info("Finished ffmpeg command")

	return nil
}
