// Package batch groups individual lookups into the fewest remote requests
// the service's per-request item cap permits. A batched request is
// all-or-nothing: when a chunk's request fails, every item in the chunk is
// marked failed with the same attributed error, and there is no automatic
// per-item fallback or chunk splitting (that would change observable quota
// consumption).
package batch

import (
	"context"

	"github.com/catalogops/oclcrecon/pkg/errors"
)

// SubmitFunc performs one remote request for one chunk. On success the
// implementation is responsible for classifying the chunk's items; on
// failure the orchestrator attributes the error to every item.
type SubmitFunc[T any] func(ctx context.Context, chunk []T) error

// ItemError attributes a failure to one input item.
type ItemError[T any] struct {
	// Index is the item's position in the original input sequence.
	Index int
	Item  T
	Err   error
}

// Clamp bounds the configured batch size to [1, max].
func Clamp(size, max int) int {
	if size < 1 {
		return 1
	}
	if max > 0 && size > max {
		return max
	}
	return size
}

// Chunks partitions items into ordered, non-overlapping chunks of at most
// size items. The chunks share the input's backing array.
func Chunks[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	var chunks [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// Run submits one request per chunk, in input order, and returns the failed
// items in input order. Chunks are dispatched sequentially; when a request
// reports quota exhaustion, the remaining chunks are not submitted and
// every unattempted item is attributed that same error, so the caller
// retains a complete, ordered account of the run.
func Run[T any](ctx context.Context, items []T, size int, submit SubmitFunc[T]) []ItemError[T] {
	var failed []ItemError[T]

	chunks := Chunks(items, size)
	offset := 0
	for i, chunk := range chunks {
		err := submit(ctx, chunk)
		if err != nil {
			chunkErr := &errors.BatchError{ChunkIndex: i, Size: len(chunk), Err: err}
			for j, item := range chunk {
				failed = append(failed, ItemError[T]{Index: offset + j, Item: item, Err: chunkErr})
			}
			if errors.IsQuotaExhausted(err) || errors.IsCredential(err) {
				// Run-level failure: stop submitting, account for the rest.
				rest := offset + len(chunk)
				for j, item := range items[rest:] {
					failed = append(failed, ItemError[T]{Index: rest + j, Item: item, Err: err})
				}
				return failed
			}
		}
		offset += len(chunk)
	}

	return failed
}
