// Package indexer feeds index records to a file while the task keeps
// computing the next batch.
package indexer

import (
	"context"
	"errors"
)

// ErrClosed reports use of an indexer after Close.
var ErrClosed = errors.New("indexer is closed")

// Sink receives index record batches. *files.File satisfies it.
type Sink interface {
	SendIndex(ctx context.Context, records []map[string]any) error
}

// Indexer overlaps index submission with record production: each Index call
// hands its batch to a background send and returns once the previous batch
// has been acknowledged. At most one batch is in flight, so a submission
// failure surfaces on the next Index call or on Close, and the task never
// runs unboundedly ahead of the backend.
//
// Indexer is not safe for concurrent use; callers indexing from several
// goroutines must synchronize.
type Indexer struct {
	sink    Sink
	pending chan error
	closed  bool
}

// New builds an indexer writing to sink. The caller must Close it to learn
// the fate of the final batch.
func New(sink Sink) *Indexer {
	return &Indexer{sink: sink}
}

// Index submits a batch. An empty batch is a no-op. The returned error, if
// any, belongs to the PREVIOUS batch; the final batch is checked by Close.
func (ix *Indexer) Index(ctx context.Context, records []map[string]any) error {
	if ix.closed {
		return ErrClosed
	}
	if len(records) == 0 {
		return nil
	}
	if err := ix.wait(); err != nil {
		return err
	}
	ix.pending = make(chan error, 1)
	go func(done chan<- error, batch []map[string]any) {
		done <- ix.sink.SendIndex(ctx, batch)
	}(ix.pending, records)
	return nil
}

// Close waits for the in-flight batch and reports its error. Further Index
// calls fail with ErrClosed.
func (ix *Indexer) Close() error {
	if ix.closed {
		return nil
	}
	ix.closed = true
	return ix.wait()
}

func (ix *Indexer) wait() error {
	if ix.pending == nil {
		return nil
	}
	err := <-ix.pending
	ix.pending = nil
	return err
}
