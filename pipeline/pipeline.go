package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-scrape-market/models"
)

// ErrPipelineClosed is returned when Process is called after Close.
var ErrPipelineClosed = errors.New("pipeline: closed")

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(records []models.ProductRecord) error
	Close() error
	Validate() error
}

// Options sizes the pipeline.
type Options struct {
	BufferSize int
	BatchSize  int
	// DedupeSize bounds the article ids remembered for duplicate
	// suppression; zero disables it.
	DedupeSize int
}

// Stats counts what the workers did with submitted records.
type Stats struct {
	Written    int64
	Duplicates int64
}

// Pipeline batches records to a writer, optionally dropping repeats of an
// article id. After the first write error the remaining records are drained
// and discarded.
type Pipeline struct {
	writer    OutputWriter
	input     chan models.ProductRecord
	batchSize int
	seen      *lru.Cache[string, struct{}]

	workers sync.WaitGroup

	// gate is held for reading while sending so Close never closes input
	// under an in-flight send.
	gate   sync.RWMutex
	closed bool

	errOnce sync.Once
	err     error
	failed  atomic.Bool

	written    atomic.Int64
	duplicates atomic.Int64
}

// NewPipeline builds a pipeline in front of writer.
func NewPipeline(writer OutputWriter, opts Options) (*Pipeline, error) {
	if writer == nil {
		return nil, fmt.Errorf("pipeline: writer is nil")
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 64
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 16
	}

	p := &Pipeline{
		writer:    writer,
		input:     make(chan models.ProductRecord, opts.BufferSize),
		batchSize: opts.BatchSize,
	}
	if opts.DedupeSize > 0 {
		seen, err := lru.New[string, struct{}](opts.DedupeSize)
		if err != nil {
			return nil, fmt.Errorf("dedupe cache: %w", err)
		}
		p.seen = seen
	}
	return p, nil
}

// Start launches worker goroutines. Use one worker to keep input order.
func (p *Pipeline) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.workers.Add(1)
		go p.work()
	}
}

// Process enqueues records for writing.
func (p *Pipeline) Process(records ...models.ProductRecord) error {
	p.gate.RLock()
	defer p.gate.RUnlock()

	if p.closed {
		return ErrPipelineClosed
	}
	if err := p.Err(); err != nil {
		return err
	}
	for _, record := range records {
		p.input <- record
	}
	return nil
}

// Close stops intake, waits for the workers to drain and returns the first
// write error.
func (p *Pipeline) Close() error {
	p.gate.Lock()
	if !p.closed {
		p.closed = true
		close(p.input)
	}
	p.gate.Unlock()

	p.workers.Wait()
	return p.Err()
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	if !p.failed.Load() {
		return nil
	}
	return p.err
}

// Stats returns a snapshot of the counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Written:    p.written.Load(),
		Duplicates: p.duplicates.Load(),
	}
}

func (p *Pipeline) work() {
	defer p.workers.Done()

	batch := make([]models.ProductRecord, 0, p.batchSize)
	flush := func() {
		if len(batch) == 0 || p.failed.Load() {
			batch = batch[:0]
			return
		}
		if err := p.writer.Write(batch); err != nil {
			p.fail(fmt.Errorf("write batch: %w", err))
		} else {
			p.written.Add(int64(len(batch)))
		}
		batch = batch[:0]
	}

	for record := range p.input {
		if p.duplicate(record) {
			continue
		}
		batch = append(batch, record)
		if len(batch) >= p.batchSize {
			flush()
		}
	}
	flush()
}

// duplicate reports whether the record's article id was seen recently.
// Records without an article id always pass.
func (p *Pipeline) duplicate(record models.ProductRecord) bool {
	if p.seen == nil || record.ArticleID == nil {
		return false
	}
	if found, _ := p.seen.ContainsOrAdd(*record.ArticleID, struct{}{}); found {
		p.duplicates.Add(1)
		return true
	}
	return false
}

func (p *Pipeline) fail(err error) {
	p.errOnce.Do(func() {
		p.err = err
		p.failed.Store(true)
	})
}
