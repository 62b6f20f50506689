package separationentity

import "path/filepath"

const (
	VocalsStem       = "vocals"
	InstrumentalStem = "instrumental"
)

// Request is one upload staged on disk. The orchestrator owns InputPath
// and removes it once the request is over.
type Request struct {
	JobID     string
	InputPath string
	BaseName  string
	ClientID  string
}

// Result is handed over to the caller, who becomes responsible for the files
type Result struct {
	BaseName         string
	VocalsPath       string
	InstrumentalPath string
}

func (r Result) VocalsFileName() string {
	return filepath.Base(r.VocalsPath)
}

func (r Result) InstrumentalFileName() string {
	return filepath.Base(r.InstrumentalPath)
}

// WorkingFile is the input handed to the separation executable.
// Temporary files belong to the job runner, which deletes them when done.
type WorkingFile struct {
	Path      string
	Temporary bool
}
