// Package system
package system

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cpumon/internal/logger"
)

type SystemReader struct {
	log logger.Logger

	procRoot string
	sysRoot  string
}

func NewReader(log logger.Logger, procRoot, sysRoot string) *SystemReader {
	return &SystemReader{
		log:      log,
		procRoot: procRoot,
		sysRoot:  sysRoot,
	}
}

func (r *SystemReader) procPath(elem ...string) string {
	return filepath.Join(append([]string{r.procRoot}, elem...)...)
}

func (r *SystemReader) sysPath(elem ...string) string {
	return filepath.Join(append([]string{r.sysRoot}, elem...)...)
}

func readUint(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	return strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
}
