package system

import (
	"os"
	"runtime"
	"strings"
)

func (r *SystemReader) Hostname() string {
	value, err := os.Hostname()
	if err != nil {
		r.log.Debug("failed to read hostname", "error", err.Error())
		return ""
	}

	return value
}

func (r *SystemReader) KernelVersion() string {
	if runtime.GOOS != "linux" {
		return ""
	}

	value, err := os.ReadFile(r.procPath("sys", "kernel", "osrelease"))
	if err != nil {
		r.log.Debug("failed to read kernel version", "error", err.Error())
		return ""
	}

	return strings.TrimSpace(string(value))
}
