// Package testutil provides shared helpers for integration-style tests:
// a thread-safe log buffer, a temp-dir data file harness and a canonical
// ready-built optimization scenario.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/optalg/internal/algebra"
	"github.com/vk/optalg/internal/hclload"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// LoadResult holds the outcome of a data-load harness run.
type LoadResult struct {
	Container *algebra.Container
	Err       error
}

// LoadHCL writes the given relative-path data files into a temp directory
// and loads them into a fresh container.
func LoadHCL(t *testing.T, files map[string]string) *LoadResult {
	t.Helper()

	tmpDir := t.TempDir()
	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
	}

	c := algebra.New()
	err := hclload.NewLoader().Load(context.Background(), c, tmpDir)
	return &LoadResult{Container: c, Err: err}
}
