package local

import (
	"path"
	"runtime"
	"strings"
)

const thisFile = "/src/shared/config/local/project_root.go"

func ProjectRoot() string {
	_, filePath, _, ok := runtime.Caller(0)

	if !ok {
		panic("Failed to call runtime.Caller")
	}

	if !strings.HasSuffix(filePath, thisFile) {
		panic("project_root.go has moved, update thisFile")
	}

	// projectRoot/src/shared/config/local/project_root.go
	for i := 0; i < 5; i++ {
		filePath = path.Dir(filePath)
	}

	return filePath
}
