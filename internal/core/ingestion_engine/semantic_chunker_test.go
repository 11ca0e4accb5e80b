package ingestion_engine

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// paragraph returns a blank-line free paragraph of roughly n characters.
func paragraph(id, n int) string {
	var b strings.Builder
	for s := 0; b.Len() < n; s++ {
		fmt.Fprintf(&b, "Paragraph %d sentence %d explains the procedure in detail. ", id, s)
	}
	return strings.TrimSpace(b.String())
}

func TestSemanticChunker_Chunk(t *testing.T) {
	t.Run("Should keep every chunk within the max size", func(t *testing.T) {
		var paras []string
		for i := range 40 {
			paras = append(paras, paragraph(i, 300+(i%5)*120))
		}
		for _, sc := range []*SemanticChunker{
			NewSemanticChunker("standard", StandardParams),
			NewSemanticChunker("manual", ManualParams),
		} {
			chunks := smartChunks(t, sc.Chunk(blocksOf(strings.Join(paras, "\n\n"))))
			require.NotEmpty(t, chunks)
			assert.Greater(t, len(chunks), 1)
			for _, c := range chunks {
				assert.LessOrEqual(t, runeLen(c.Text), sc.params.MaxChunkSize, "strategy %s", sc.Name())
			}
		}
	})

	t.Run("Should cover every paragraph", func(t *testing.T) {
		var paras []string
		for i := range 30 {
			paras = append(paras, paragraph(i, 250+(i%3)*400))
		}
		sc := NewSemanticChunker("standard", StandardParams)
		chunks := smartChunks(t, sc.Chunk(blocksOf(strings.Join(paras[:15], "\n\n"), strings.Join(paras[15:], "\n\n"))))
		var all strings.Builder
		for _, c := range chunks {
			all.WriteString(c.Text)
			all.WriteString("\n")
		}
		for i, p := range paras {
			assert.Contains(t, all.String(), p, "paragraph %d missing", i)
		}
	})

	t.Run("Should split oversized paragraphs", func(t *testing.T) {
		sc := NewSemanticChunker("manual", ManualParams)
		chunks := smartChunks(t, sc.Chunk(blocksOf(paragraph(1, 7000))))
		require.Greater(t, len(chunks), 2)
		for _, c := range chunks {
			assert.LessOrEqual(t, runeLen(c.Text), ManualParams.MaxChunkSize)
		}
	})

	t.Run("Should split header dense blocks into sections", func(t *testing.T) {
		text := "# Installation\n" + paragraph(1, 400) +
			"\n\n# Configuration\n" + paragraph(2, 400) +
			"\n\n# Troubleshooting\n" + paragraph(3, 400)
		chunks := smartChunks(t, NewSemanticChunker("manual", ManualParams).Chunk(blocksOf(text)))
		require.Len(t, chunks, 3)
		assert.Equal(t, "Installation", chunks[0].SectionTitle)
		assert.Equal(t, "Configuration", chunks[1].SectionTitle)
		assert.Equal(t, "Troubleshooting", chunks[2].SectionTitle)
	})

	t.Run("Should merge a short chunk into the previous one", func(t *testing.T) {
		text := "# Overview\n" + paragraph(1, 500) +
			"\n\n# Scope\n" + paragraph(2, 500) +
			"\n\n# Contact\nhttps://help.test/contact"
		chunks := smartChunks(t, NewSemanticChunker("manual", ManualParams).Chunk(blocksOf(text)))
		require.Len(t, chunks, 2)
		assert.Contains(t, chunks[1].Text, "https://help.test/contact")
		assert.Equal(t, "Scope", chunks[1].SectionTitle)
		assert.Equal(t, []string{"https://help.test/contact"}, chunks[1].Links)
	})

	t.Run("Should merge a leading short chunk into the next one", func(t *testing.T) {
		ds := mergeShortDrafts([]draft{
			{text: "Preface", pageStart: 1, pageEnd: 1},
			{text: paragraph(1, 300), pageStart: 2, pageEnd: 2},
		}, 100, 2000)
		require.Len(t, ds, 1)
		assert.True(t, strings.HasPrefix(ds[0].text, "Preface\n\n"))
		assert.Equal(t, 1, ds[0].pageStart)
		assert.Equal(t, 2, ds[0].pageEnd)
	})

	t.Run("Should collapse identical chunks", func(t *testing.T) {
		p := paragraph(7, 800)
		chunks := NewSemanticChunker("standard", StandardParams).Chunk(blocksOf(p, p))
		require.Len(t, chunks, 1)
	})

	t.Run("Should carry a trailing link paragraph as overlap", func(t *testing.T) {
		sc := NewSemanticChunker("standard", StandardParams)
		seed := sc.overlapSeed([]string{paragraph(1, 900), "Reference: https://ref.test/doc"})
		assert.Equal(t, "Reference: https://ref.test/doc", seed)
	})

	t.Run("Should start a tail overlap at a sentence boundary", func(t *testing.T) {
		sc := NewSemanticChunker("standard", StandardParams)
		seed := sc.overlapSeed([]string{paragraph(1, 900)})
		require.NotEmpty(t, seed)
		assert.LessOrEqual(t, runeLen(seed), StandardParams.Overlap)
		assert.True(t, strings.HasPrefix(seed, "Paragraph 1 sentence"), seed)
	})
}

func TestDetectStructure(t *testing.T) {
	text := "SAFETY NOTES\n1. Introduction\n## Setup\n- step one\n- step two\n| a | b |\nplain text line."
	st := detectStructure(text)
	assert.Equal(t, 3, st.headers)
	assert.GreaterOrEqual(t, st.lists, 2)
	assert.True(t, st.table)
}
