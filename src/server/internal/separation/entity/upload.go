package separationentity

import (
	"io"
	"path/filepath"
	"strings"
)

const (
	DefaultBaseName  = "track"
	OutputExtension  = ".mp3"
	vocalsSuffix     = "_" + VocalsStem
	instrumentSuffix = "_" + InstrumentalStem
)

type Upload struct {
	FileName string
	Content  io.Reader
}

// CleanFileName drops any directories a client put in the upload name,
// whichever separator they used
func CleanFileName(fileName string) string {
	fileName = strings.ReplaceAll(fileName, "\\", "/")
	return strings.TrimSpace(filepath.Base(fileName))
}

// BaseName is the upload name without its directories and extension
func BaseName(fileName string) string {
	cleaned := CleanFileName(fileName)
	base := strings.TrimSpace(strings.TrimSuffix(cleaned, filepath.Ext(cleaned)))

	switch base {
	case "", ".", "..", "/":
		return DefaultBaseName
	}

	return base
}

// Extension is kept on the staged upload so the format can still be told from the name
func Extension(fileName string) string {
	return filepath.Ext(CleanFileName(fileName))
}

// OutputsFor names the two files a separation of baseName produces in outputDir
func OutputsFor(outputDir string, baseName string) Result {
	return Result{
		BaseName:         baseName,
		VocalsPath:       filepath.Join(outputDir, baseName+vocalsSuffix+OutputExtension),
		InstrumentalPath: filepath.Join(outputDir, baseName+instrumentSuffix+OutputExtension),
	}
}

// Separated is what the caller gets back, files are referred to by name only
type Separated struct {
	JobID        string `json:"job_id"`
	Vocals       string `json:"vocals"`
	Instrumental string `json:"instrumental"`
	OriginalName string `json:"original_name"`
}
