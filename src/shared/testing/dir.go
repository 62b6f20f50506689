package testing

import (
	"os"

	. "github.com/onsi/ginkgo/v2"
)

// TempDir is removed again once the current test finishes
func TempDir() string {
	dir := ExpectSuccess(os.MkdirTemp("", "vocal-separator-test-"))
	DeferCleanup(os.RemoveAll, dir)
	return dir
}
