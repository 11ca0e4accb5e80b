package ingestion_engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectType(t *testing.T) {
	assert.Equal(t, mimePDF, DetectType([]byte("%PDF-1.7\n%âãÏÓ\n1 0 obj"), "report.bin"))
	assert.Equal(t, mimePlain, DetectType([]byte("plain notes"), "notes.txt"))
	assert.Equal(t, mimePlain, DetectType([]byte("# Title\n\ntext"), "README.md"))
	assert.Equal(t, mimeDOCX, DetectType([]byte{0x50, 0x4b, 0x03, 0x04}, "policy.docx"))
}

func TestPageBlockExtractor_Extract(t *testing.T) {
	ctx := context.Background()
	e := NewPageBlockExtractor(0, false)
	assert.Equal(t, 5, e.PagesPerBlock)

	t.Run("Should return plain text as one normalized block", func(t *testing.T) {
		blocks, err := e.Extract(ctx, []byte("Line one   \r\nLine two\r\n\r\n"), "notes.txt")
		require.NoError(t, err)
		require.Len(t, blocks, 1)
		assert.Equal(t, "Line one\nLine two", blocks[0].Text)
		assert.Equal(t, 1, blocks[0].PageStart)
		assert.Equal(t, 1, blocks[0].PageEnd)
	})

	t.Run("Should reject unsupported types as extraction errors", func(t *testing.T) {
		png := []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}
		_, err := e.Extract(ctx, png, "logo.png")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrExtraction)
	})

	t.Run("Should fail when nothing but whitespace is extracted", func(t *testing.T) {
		_, err := e.Extract(ctx, []byte("  \n\t\n"), "blank.txt")
		assert.ErrorIs(t, err, ErrExtraction)
	})
}
