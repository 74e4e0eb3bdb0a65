// Package pipeline persists collected product records.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-market/models"
)

// PersistOptions selects the output of Persist.
type PersistOptions struct {
	Format     string
	Dir        string
	Query      string
	DedupeSize int
}

// Persist writes records through a single-worker pipeline so the file keeps
// the order of records. It returns the paths written.
func Persist(records []models.ProductRecord, opts PersistOptions) ([]string, error) {
	writer, paths, err := NewWriter(opts.Format, opts.Dir, opts.Query)
	if err != nil {
		return nil, fmt.Errorf("create writer: %w", err)
	}

	p, err := NewPipeline(writer, Options{DedupeSize: opts.DedupeSize})
	if err != nil {
		writer.Close()
		return nil, err
	}
	p.Start(1)

	processErr := p.Process(records...)
	closeErr := p.Close()
	writerErr := writer.Close()
	if err := errors.Join(processErr, closeErr, writerErr); err != nil {
		return paths, fmt.Errorf("persist records: %w", err)
	}
	if err := writer.Validate(); err != nil {
		return paths, err
	}
	return paths, nil
}
