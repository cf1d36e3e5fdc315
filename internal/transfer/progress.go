package transfer

import "sync"

// FileSpec names one file of a transfer and its expected size.
type FileSpec struct {
	Name      string
	SizeBytes int64
}

// ProgressFunc receives cumulative bytes transferred across the whole
// set, and the set's total. Values are monotonically non-decreasing and
// never exceed the total.
type ProgressFunc func(done, total int64)

// tracker owns all progress accounting for one executor invocation.
// Chunked progress sources may report more bytes than a file holds or
// keep reporting after completion; the clamping lives here, in one
// place, so callers only ever see monotonic cumulative values.
type tracker struct {
	mu       sync.Mutex
	total    int64
	done     int64
	expected map[string]int64
	perFile  map[string]int64
	emit     ProgressFunc
}

func newTracker(files []FileSpec, emit ProgressFunc) *tracker {
	t := &tracker{
		expected: make(map[string]int64, len(files)),
		perFile:  make(map[string]int64, len(files)),
		emit:     emit,
	}

	for _, f := range files {
		t.expected[f.Name] = f.SizeBytes
		t.total += f.SizeBytes
	}

	return t
}

// sink returns the per-file increment callback handed to transport
// clients.
func (t *tracker) sink(name string) func(int64) {
	return func(inc int64) {
		t.add(name, inc)
	}
}

func (t *tracker) add(name string, inc int64) {
	if inc <= 0 {
		return
	}

	t.mu.Lock()

	expected, ok := t.expected[name]
	if !ok {
		t.mu.Unlock()
		return
	}

	current := t.perFile[name]
	if current >= expected {
		// File already complete; late increments are ignored.
		t.mu.Unlock()
		return
	}

	if current+inc > expected {
		inc = expected - current
	}

	t.perFile[name] = current + inc
	t.done += inc

	done, total := t.done, t.total
	emit := t.emit
	t.mu.Unlock()

	if emit != nil {
		emit(done, total)
	}
}
