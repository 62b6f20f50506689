package working_dir

import (
	"os"
	"path/filepath"

	"github.com/veedubyou/vocal-separator/src/shared/lib/cerr"
)

const tempDirName = "tmp"

// WorkingDir is an absolute directory owned by one component, with a temp area beneath it
type WorkingDir struct {
	root string
}

func NewWorkingDir(dir string) (WorkingDir, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return WorkingDir{}, cerr.Field("dir", dir).
			Wrap(err).Error("Failed to convert working dir to absolute format")
	}

	workingDir := WorkingDir{root: absDir}
	if err := os.MkdirAll(workingDir.TempDir(), os.ModePerm); err != nil {
		return WorkingDir{}, cerr.Field("dir", absDir).
			Wrap(err).Error("Failed to create working dir")
	}

	return workingDir, nil
}

func (w WorkingDir) Root() string {
	return w.root
}

func (w WorkingDir) TempDir() string {
	return filepath.Join(w.root, tempDirName)
}

func (w WorkingDir) String() string {
	return w.root
}
