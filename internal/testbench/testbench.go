package testbench

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/i5heu/GoByteQueue/internal/queue"
)

// Config is only about concurrency: how many producers, how many consumers,
// and how large each Append/Drain chunk is.
type Config struct {
	NumProducers int
	NumConsumers int
	ChunkSize    int
}

// Result holds the counters of one timed run.
type Result struct {
	BytesOffered  int64 // bytes passed to Append, including truncated ones
	BytesAppended int64
	BytesDrained  int64
	Elapsed       time.Duration
}

// RunTimedTest spawns producers and consumers that run for the specified
// duration, measuring how many bytes are actually appended/drained in that window.
// Once the context expires, producers stop and consumers drain whatever is
// still queued. Producers never retry truncated bytes; the offered/appended
// gap is the amount dropped at the capacity ceiling.
func RunTimedTest[Q queue.ByteQueueValidationInterface](
	q Q,
	cfg Config,
	testDuration time.Duration,
) Result {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1
	}

	// Create a context that will cancel after testDuration.
	ctx, cancel := context.WithTimeout(context.Background(), testDuration)
	defer cancel()

	var offered, appended, drained int64

	start := time.Now()

	var prodWg, consWg sync.WaitGroup
	prodWg.Add(cfg.NumProducers)
	consWg.Add(cfg.NumConsumers)

	// productionDone will be set to 1 when test duration expires.
	var productionDone int32

	go func() {
		<-ctx.Done()
		atomic.StoreInt32(&productionDone, 1)
	}()

	// Spawn producers.
	for i := 0; i < cfg.NumProducers; i++ {
		go func(id int) {
			defer prodWg.Done()
			chunk := make([]byte, cfg.ChunkSize)
			for j := range chunk {
				chunk[j] = byte(id + j)
			}
			for atomic.LoadInt32(&productionDone) == 0 {
				n := q.Append(chunk)
				atomic.AddInt64(&offered, int64(len(chunk)))
				atomic.AddInt64(&appended, int64(n))
				if n == 0 {
					runtime.Gosched()
				}
			}
		}(i)
	}

	// Spawn consumers.
	for i := 0; i < cfg.NumConsumers; i++ {
		go func() {
			defer consWg.Done()
			buf := make([]byte, cfg.ChunkSize)
			for {
				if atomic.LoadInt32(&productionDone) == 1 {
					// Production is done: take whatever is left and stop.
					_, n := q.DrainAll()
					atomic.AddInt64(&drained, int64(n))
					return
				}
				if n := q.Drain(buf); n > 0 {
					atomic.AddInt64(&drained, int64(n))
				} else {
					runtime.Gosched()
				}
			}
		}()
	}

	<-ctx.Done()
	prodWg.Wait()
	consWg.Wait()

	// Consumers may have exited before the last producer's final Append landed.
	if cfg.NumConsumers > 0 {
		_, n := q.DrainAll()
		drained += int64(n)
	}

	return Result{
		BytesOffered:  atomic.LoadInt64(&offered),
		BytesAppended: atomic.LoadInt64(&appended),
		BytesDrained:  atomic.LoadInt64(&drained),
		Elapsed:       time.Since(start),
	}
}
