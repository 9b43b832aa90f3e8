package flashfs

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// Dir is an FS rooted at a host directory.
type Dir struct {
	root string

	mu      sync.RWMutex
	mounted bool
}

// NewDir creates a Dir rooted at root. Nothing touches the disk until Mount.
func NewDir(root string) *Dir {
	return &Dir{root: root}
}

// Root returns the host directory backing the filesystem.
func (d *Dir) Root() string {
	return d.root
}

// Mount makes the directory available, creating it when missing.
func (d *Dir) Mount() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(d.root, 0o755); err != nil {
		d.mounted = false
		return fmt.Errorf("format %s: %w", d.root, err)
	}
	if err := unix.Access(d.root, unix.W_OK|unix.R_OK); err != nil {
		d.mounted = false
		return fmt.Errorf("access %s: %w", d.root, err)
	}

	d.mounted = true

	if u, err := statfs(d.root); err == nil {
		log.Printf("flashfs: mounted %s (%d of %d bytes free)", d.root, u.FreeBytes, u.TotalBytes)
	} else {
		log.Printf("flashfs: mounted %s", d.root)
	}
	return nil
}

// ReadFile returns the full contents of name.
func (d *Dir) ReadFile(name string) ([]byte, error) {
	p, err := d.path(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

// WriteFile truncates name and writes data, syncing before returning.
func (d *Dir) WriteFile(name string, data []byte) error {
	p, err := d.path(name)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Exists reports whether name is present. It is false before Mount.
func (d *Dir) Exists(name string) bool {
	p, err := d.path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Usage reports the capacity of the filesystem holding the root directory.
func (d *Dir) Usage() (Usage, error) {
	d.mu.RLock()
	mounted := d.mounted
	d.mu.RUnlock()
	if !mounted {
		return Usage{}, ErrNotMounted
	}
	return statfs(d.root)
}

func (d *Dir) path(name string) (string, error) {
	d.mu.RLock()
	mounted := d.mounted
	d.mu.RUnlock()
	if !mounted {
		return "", ErrNotMounted
	}

	n, err := cleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(d.root, n), nil
}

func statfs(path string) (Usage, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Usage{}, err
	}
	bsize := uint64(st.Bsize)
	return Usage{
		TotalBytes: st.Blocks * bsize,
		FreeBytes:  st.Bavail * bsize,
	}, nil
}
