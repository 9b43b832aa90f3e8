// Package flashfs provides the flat, mountable file store the record store
// persists to. Names are flat keys such as "weather_data.json"; there are no
// directories.
package flashfs

import (
	"errors"
	"strings"
)

var (
	// ErrNotMounted is returned by reads and writes issued before a successful Mount.
	ErrNotMounted = errors.New("filesystem not mounted")

	// ErrInvalidName is returned for names that are empty or contain a path separator.
	ErrInvalidName = errors.New("invalid file name")
)

// FS is a persistent key-path byte store.
//
// ReadFile returns an error wrapping fs.ErrNotExist when the file is absent.
// WriteFile replaces the whole file (truncate + write); there is no
// incremental update.
type FS interface {
	Mount() error
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte) error
	Exists(name string) bool
}

// Usage describes the capacity of a mounted filesystem.
type Usage struct {
	TotalBytes uint64 `json:"totalBytes"`
	FreeBytes  uint64 `json:"freeBytes"`
}

// UsageReporter is implemented by filesystems that can report capacity.
type UsageReporter interface {
	Usage() (Usage, error)
}

// cleanName strips a leading slash so "/weather_data.json" and
// "weather_data.json" address the same file.
func cleanName(name string) (string, error) {
	name = strings.TrimPrefix(name, "/")
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", ErrInvalidName
	}
	return name, nil
}
