package main

import (
	"os"
	"runtime"
	"strconv"
	"sync"
	"testing"
	"time"
)

// getEnvInt reads an integer from an environment variable with a default value.
func getEnvInt(name string, defaultVal int) int {
	if v := os.Getenv(name); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return defaultVal
}

// Test size configuration via environment variables:
//   FIFO_TEST_SIZE      - Bytes streamed per concurrent test (default: 100000)
//   FIFO_CONCURRENCY    - Writer goroutines in the MPMC tests (default: 8)

func getTestSize() int {
	return getEnvInt("FIFO_TEST_SIZE", 100000)
}

func getConcurrency() int {
	return getEnvInt("FIFO_CONCURRENCY", 8)
}

// pattern is the byte expected at stream offset i.
func pattern(i int) byte {
	return byte(i*7 + i>>8)
}

// TestStreamOrderingSingleWriter streams bytes from one writer goroutine to one
// reader goroutine. The writer re-offers whatever was truncated, so the reader
// must see the whole stream exactly once and in order.
func TestStreamOrderingSingleWriter(t *testing.T) {
	withAllQueues(t, []string{"FIFO"}, func(t *testing.T, impl Implementation) {
		const capacity = 64 // small enough to hit the ceiling constantly
		q := impl.newQueue(capacity)
		defer q.Destroy()
		wd := newWatchdog(t, "StreamOrderingSingleWriter")
		wd.Start()
		defer wd.Stop()

		total := getTestSize()
		done := make(chan struct{})
		go func() {
			defer close(done)
			chunk := make([]byte, 13)
			next := 0
			for next < total {
				k := len(chunk)
				if total-next < k {
					k = total - next
				}
				for i := 0; i < k; i++ {
					chunk[i] = pattern(next + i)
				}
				n := q.Append(chunk[:k])
				if n == 0 {
					runtime.Gosched()
				}
				next += n
				wd.Progress()
			}
		}()

		got := 0
		buf := make([]byte, 9)
		for got < total {
			n := q.Drain(buf)
			if n == 0 {
				runtime.Gosched()
				continue
			}
			for i := 0; i < n; i++ {
				if buf[i] != pattern(got) {
					t.Fatalf("FIFO violation at byte %d: expected %d, got %d", got, pattern(got), buf[i])
				}
				got++
			}
			if used := q.UsedSlots(); used > capacity {
				t.Fatalf("UsedSlots=%d exceeds capacity %d", used, capacity)
			}
			wd.Progress()
		}
		<-done

		if q.UsedSlots() != 0 {
			t.Fatalf("Queue not empty after test: UsedSlots=%d", q.UsedSlots())
		}
	})
}

// TestStreamOrderingDrainAll is the same stream with the reader using
// DrainAll only, which is how the device serves a full-drain read.
func TestStreamOrderingDrainAll(t *testing.T) {
	withAllQueues(t, []string{"FIFO"}, func(t *testing.T, impl Implementation) {
		q := impl.newQueue(1024)
		defer q.Destroy()
		wd := newWatchdog(t, "StreamOrderingDrainAll")
		wd.Start()
		defer wd.Stop()

		total := getTestSize()
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			single := make([]byte, 1)
			for next := 0; next < total; {
				single[0] = pattern(next)
				n := q.Append(single)
				if n == 0 {
					select {
					case <-stop:
						return
					default:
						runtime.Gosched()
					}
				}
				next += n
			}
		}()

		got := 0
		deadline := time.Now().Add(30 * time.Second)
		for got < total {
			if time.Now().After(deadline) {
				t.Fatalf("stalled after %d of %d bytes", got, total)
			}
			out, n := q.DrainAll()
			if n == 0 {
				runtime.Gosched()
				continue
			}
			if n != len(out) {
				t.Fatalf("DrainAll count %d does not match %d returned bytes", n, len(out))
			}
			for _, c := range out {
				if c != pattern(got) {
					t.Fatalf("FIFO violation at byte %d", got)
				}
				got++
			}
			wd.Progress()
		}
	})
}

// TestConcurrentWritersNoLostBytes runs several writers against one reader
// on the mutex-guarded backends. Every byte a writer was told was appended must
// be drained exactly once.
func TestConcurrentWritersNoLostBytes(t *testing.T) {
	withAllQueues(t, []string{"MPMC"}, func(t *testing.T, impl Implementation) {
		q := impl.newQueue(256)
		defer q.Destroy()
		wd := newWatchdog(t, "ConcurrentWritersNoLostBytes")
		wd.Start()
		defer wd.Stop()

		writers := getConcurrency()
		perWriter := getTestSize() / writers

		var appended [256]int64
		var mu sync.Mutex
		var wg sync.WaitGroup
		wg.Add(writers)
		for w := 0; w < writers; w++ {
			go func(id byte) {
				defer wg.Done()
				chunk := []byte{id, id, id, id}
				var local int64
				for sent := 0; sent < perWriter; {
					n := q.Append(chunk)
					local += int64(n)
					sent += len(chunk)
					if n == 0 {
						runtime.Gosched()
					}
				}
				mu.Lock()
				appended[id] += local
				mu.Unlock()
				wd.Progress()
			}(byte(w))
		}

		var drained [256]int64
		stop := make(chan struct{})
		readerDone := make(chan struct{})
		go func() {
			defer close(readerDone)
			buf := make([]byte, 32)
			for {
				n := q.Drain(buf)
				for _, c := range buf[:n] {
					drained[c]++
				}
				if n == 0 {
					select {
					case <-stop:
						return
					default:
						runtime.Gosched()
					}
				}
				wd.Progress()
			}
		}()

		wg.Wait()
		close(stop)
		<-readerDone
		out, _ := q.DrainAll()
		for _, c := range out {
			drained[c]++
		}

		for w := 0; w < writers; w++ {
			if appended[w] != drained[w] {
				t.Fatalf("writer %d: appended %d bytes, drained %d", w, appended[w], drained[w])
			}
		}
	})
}
