package testing

import (
	"fmt"
	"strings"
)

func ServerEndpoint(path string) string {
	return endpoint("http", path)
}

// WebsocketEndpoint is ServerEndpoint for upgrade requests
func WebsocketEndpoint(path string) string {
	return endpoint("ws", path)
}

func endpoint(scheme string, path string) string {
	if !strings.HasPrefix(path, "/") {
		panic("path convention should start with /")
	}

	return fmt.Sprintf("%s://localhost%s%s", scheme, ServerPort, path)
}
