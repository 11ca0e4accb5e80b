package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a := newCLI()
	a.Writer = &out
	a.ErrWriter = io.Discard
	err := a.Run(append([]string{"contexta-ingest"}, args...))
	return out.String(), err
}

func TestInspectCommand(t *testing.T) {
	var b strings.Builder
	for i := range 6 {
		fmt.Fprintf(&b, "Q: How do I reset device %d?\nA: Hold the power button on device %d for ten seconds.\n\n", i, i)
	}
	path := filepath.Join(t.TempDir(), "support-faq.txt")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))

	t.Run("Should print a chunk summary", func(t *testing.T) {
		out, err := runCLI(t, "inspect", "--file", path, "--preview", "2")
		require.NoError(t, err)

		var summary inspectSummary
		require.NoError(t, json.Unmarshal([]byte(out), &summary))
		assert.Equal(t, "support-faq.txt", summary.File)
		assert.Equal(t, "faq", summary.Strategy)
		assert.Equal(t, 6, summary.ChunkCount)
		require.Len(t, summary.Chunks, 2)
		assert.Contains(t, summary.Chunks[0].Input, "reset device 0")
	})

	t.Run("Should fail on a missing file", func(t *testing.T) {
		_, err := runCLI(t, "inspect", "--file", filepath.Join(t.TempDir(), "nope.txt"))
		assert.Error(t, err)
	})

	t.Run("Should require the file flag", func(t *testing.T) {
		_, err := runCLI(t, "inspect")
		assert.Error(t, err)
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
}
