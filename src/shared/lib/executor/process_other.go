//go:build !unix

package executor

import "os/exec"

// killProcessGroupOnCancel keeps the default of killing only the direct child
func killProcessGroupOnCancel(*exec.Cmd) {}
