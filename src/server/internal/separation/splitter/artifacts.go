package splitter

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	separationentity "github.com/veedubyou/vocal-separator/src/server/internal/separation/entity"
	separationerrors "github.com/veedubyou/vocal-separator/src/server/internal/separation/errors"
	"github.com/veedubyou/vocal-separator/src/shared/lib/cerr"
	"github.com/veedubyou/vocal-separator/src/shared/lib/errors/mark"
)

const (
	vocalsArtifactName    = "vocals.mp3"
	remainderArtifactName = "no_vocals.mp3"
)

type artifacts struct {
	vocalsPath    string
	remainderPath string
}

// artifactDir is where the separator writes its stems: <scratch>/<model>/<input base name>
func artifactDir(scratchDir string, model string, workingPath string) string {
	workingBase := strings.TrimSuffix(filepath.Base(workingPath), filepath.Ext(workingPath))
	return filepath.Join(scratchDir, model, workingBase)
}

func discoverArtifacts(dir string) (artifacts, error) {
	found := artifacts{
		vocalsPath:    filepath.Join(dir, vocalsArtifactName),
		remainderPath: filepath.Join(dir, remainderArtifactName),
	}

	for _, path := range []string{found.vocalsPath, found.remainderPath} {
		info, err := os.Stat(path)
		if err != nil {
			return artifacts{}, mark.Wrap(err, separationerrors.ArtifactMissingMark,
				"Expected separator output is missing: "+filepath.Base(path))
		}

		if !info.Mode().IsRegular() {
			return artifacts{}, mark.Message(separationerrors.ArtifactMissingMark,
				"Expected separator output is not a file: "+filepath.Base(path))
		}
	}

	return found, nil
}

// relocate copies both artifacts to the requested outputs. Either both
// outputs exist afterwards or neither does.
func relocate(found artifacts, outputs separationentity.Result) error {
	if err := copyFile(found.vocalsPath, outputs.VocalsPath); err != nil {
		return err
	}

	if err := copyFile(found.remainderPath, outputs.InstrumentalPath); err != nil {
		if removeErr := os.Remove(outputs.VocalsPath); removeErr != nil && !os.IsNotExist(removeErr) {
			err = errors.CombineErrors(err, removeErr)
		}
		return err
	}

	return nil
}

// copyFile stages the copy next to dest and renames it into place, a
// concurrent copy to the same dest leaves one whole file behind
func copyFile(src string, dest string) (err error) {
	errctx := cerr.Field("src", src).Field("dest", dest)

	if err := os.MkdirAll(filepath.Dir(dest), os.ModePerm); err != nil {
		return errctx.Wrap(err).Error("Failed to create output dir")
	}

	in, err := os.Open(src)
	if err != nil {
		return errctx.Wrap(err).Error("Failed to open separator output")
	}
	defer in.Close()

	out, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+"-*")
	if err != nil {
		return errctx.Wrap(err).Error("Failed to create output file")
	}

	stagedPath := out.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(stagedPath)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return errctx.Wrap(err).Error("Failed to copy separator output")
	}

	if err := out.Close(); err != nil {
		return errctx.Wrap(err).Error("Failed to close output file")
	}

	if err := os.Chmod(stagedPath, 0o644); err != nil {
		return errctx.Wrap(err).Error("Failed to set output file permissions")
	}

	if err := os.Rename(stagedPath, dest); err != nil {
		return errctx.Field("staged_path", stagedPath).Wrap(err).Error("Failed to move output file into place")
	}

	return nil
}
