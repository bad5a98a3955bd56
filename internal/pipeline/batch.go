package pipeline

import (
	"sync"
	"sync/atomic"
)

// Batch tracks the units started by one Dispatch call.
type Batch struct {
	pending  sync.WaitGroup
	proposed atomic.Int64
	failed   atomic.Int64
	done     chan struct{}
}

// BatchResult counts terminal outcomes of a finished batch.
type BatchResult struct {
	Proposed int
	Failed   int
}

// Done is closed once every unit of the batch has emitted its terminal event.
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until the batch finishes and returns its counts.
func (b *Batch) Wait() BatchResult {
	<-b.done
	return BatchResult{
		Proposed: int(b.proposed.Load()),
		Failed:   int(b.failed.Load()),
	}
}
