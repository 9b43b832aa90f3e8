package flashfs

import (
	"fmt"
	"io/fs"
	"sync"
)

// Memory is an in-process FS. Contents are lost when the process exits.
type Memory struct {
	mu      sync.RWMutex
	mounted bool
	files   map[string][]byte
}

// NewMemory creates an empty, unmounted Memory filesystem.
func NewMemory() *Memory {
	return &Memory{files: make(map[string][]byte)}
}

func (m *Memory) Mount() error {
	m.mu.Lock()
	m.mounted = true
	m.mu.Unlock()
	return nil
}

func (m *Memory) ReadFile(name string) ([]byte, error) {
	n, err := cleanName(name)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.mounted {
		return nil, ErrNotMounted
	}

	data, ok := m.files[n]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", n, fs.ErrNotExist)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *Memory) WriteFile(name string, data []byte) error {
	n, err := cleanName(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.mounted {
		return ErrNotMounted
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	m.files[n] = buf
	return nil
}

func (m *Memory) Exists(name string) bool {
	n, err := cleanName(name)
	if err != nil {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.mounted {
		return false
	}
	_, ok := m.files[n]
	return ok
}
