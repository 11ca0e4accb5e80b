package core

import (
	"context"

	"github.com/markdave123-py/contexta-ingest/internal/models"
)

// PageExtractor converts a raw file into ordered page blocks. fileName is
// used as a type hint when content sniffing is inconclusive.
type PageExtractor interface {
	Extract(ctx context.Context, data []byte, fileName string) ([]models.PageBlock, error)
}
