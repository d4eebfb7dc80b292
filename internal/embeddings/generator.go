package embeddings

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dokuflow/document-pipeline/internal/models"
	"github.com/dokuflow/document-pipeline/pkg/aiclient"
	"github.com/dokuflow/document-pipeline/pkg/logger"
)

// Config controls text windowing and batch pacing.
type Config struct {
	// WindowSize is the window length in runes. Default 700.
	WindowSize int
	// Overlap is how many runes consecutive windows share. Default 100.
	Overlap int
	// BatchSize is how many windows are embedded concurrently. Default 10.
	BatchSize int
	// BatchDelay is the pause between batches to avoid hammering the
	// embedding endpoint. Default 200ms.
	BatchDelay time.Duration
}

func (c *Config) applyDefaults() {
	if c.WindowSize == 0 {
		c.WindowSize = 700
	}
	if c.Overlap == 0 {
		c.Overlap = 100
	}
	if c.Overlap >= c.WindowSize {
		c.Overlap = c.WindowSize / 2
	}
	if c.BatchSize == 0 {
		c.BatchSize = 10
	}
	if c.BatchDelay == 0 {
		c.BatchDelay = 200 * time.Millisecond
	}
}

// Generator turns a document's full text into embedded chunks.
type Generator struct {
	client aiclient.Client
	cfg    Config
	logger logger.Logger
}

func NewGenerator(client aiclient.Client, cfg Config, log logger.Logger) *Generator {
	cfg.applyDefaults()
	return &Generator{client: client, cfg: cfg, logger: log}
}

// Generate windows the text and embeds each window. Windows that fail to
// embed are dropped and logged; the remaining chunks are re-indexed so
// ChunkIndex stays contiguous from 0. Text at or under one window produces
// a single chunk.
func (g *Generator) Generate(ctx context.Context, documentID, text string) ([]models.EmbeddingChunk, error) {
	windows := Window(text, g.cfg.WindowSize, g.cfg.Overlap)
	if len(windows) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(windows))
	for start := 0; start < len(windows); start += g.cfg.BatchSize {
		if start > 0 {
			select {
			case <-time.After(g.cfg.BatchDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		end := start + g.cfg.BatchSize
		if end > len(windows) {
			end = len(windows)
		}

		eg, batchCtx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			eg.Go(func() error {
				vec, err := g.client.Embed(batchCtx, windows[i])
				if err != nil {
					g.logger.Warn("Embedding window failed, dropping it",
						logger.String("document_id", documentID),
						logger.Int("window", i),
						logger.Error(err),
					)
					return nil
				}
				vectors[i] = vec
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	chunks := make([]models.EmbeddingChunk, 0, len(windows))
	for i, vec := range vectors {
		if vec == nil {
			continue
		}
		chunks = append(chunks, models.EmbeddingChunk{
			DocumentID: documentID,
			ChunkIndex: len(chunks),
			Text:       windows[i],
			Vector:     vec,
		})
	}
	return chunks, nil
}

// Window splits text into rune windows of the given size where each window
// after the first starts overlap runes before the previous window's end.
func Window(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= size {
		return []string{text}
	}

	step := size - overlap
	var windows []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		windows = append(windows, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return windows
}
