// Package seed loads an initial set of blocks from a YAML file into an empty
// registry store.
//
// File format:
//
//	quadras:
//	  - id: Q1
//	    lotes:
//	      - numero: 1
//	        status: vendido
//	        proprietario:
//	          nome: Ana
package seed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vbonduro/loteamento/internal/domain"
)

type file struct {
	Blocks []domain.Block `yaml:"quadras"`
}

// Parse decodes and validates a seed document.
func Parse(r io.Reader) ([]domain.Block, error) {
	var f file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode seed: %w", err)
	}

	seen := make(map[string]bool, len(f.Blocks))
	for i := range f.Blocks {
		b := &f.Blocks[i]
		if b.ID == "" {
			return nil, fmt.Errorf("seed block %d: id is required", i)
		}
		if seen[b.ID] {
			return nil, fmt.Errorf("seed block %q: duplicate id", b.ID)
		}
		seen[b.ID] = true
		for j := range b.Lots {
			if b.Lots[j].Status == "" {
				b.Lots[j].Status = domain.StatusVacant
			}
			if !b.Lots[j].Status.Valid() {
				return nil, fmt.Errorf("seed block %q lot %d: unknown status %q", b.ID, b.Lots[j].Number, b.Lots[j].Status)
			}
		}
	}
	return f.Blocks, nil
}

// Target is the subset of store.BlockStore used for seeding.
type Target interface {
	Count(ctx context.Context) (int, error)
	Save(ctx context.Context, b domain.Block) (domain.Block, error)
}

// Apply saves blocks into t only when t holds no blocks yet. It returns the
// number of blocks written.
func Apply(ctx context.Context, t Target, blocks []domain.Block, logger *slog.Logger) (int, error) {
	n, err := t.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Info("store not empty, skipping seed", "blocks", n)
		return 0, nil
	}
	for i, b := range blocks {
		if _, err := t.Save(ctx, b); err != nil {
			return i, fmt.Errorf("failed to seed block %q: %w", b.ID, err)
		}
	}
	logger.Info("seeded store", "blocks", len(blocks))
	return len(blocks), nil
}

// LoadFile parses the seed file at path and applies it to t.
func LoadFile(ctx context.Context, path string, t Target, logger *slog.Logger) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer func() { _ = f.Close() }()

	blocks, err := Parse(f)
	if err != nil {
		return 0, err
	}
	return Apply(ctx, t, blocks, logger)
}
