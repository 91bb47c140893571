package monitor

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"cpumon/internal/domain"
)

const (
	MaxThreshold = 100
	// MaxWriteSize caps how much of a control-plane write is parsed.
	MaxWriteSize = 2048
)

// ThresholdStore maps processor ids 0..n, n being the average, to an
// alert threshold in percent. Zero disables the alert.
type ThresholdStore struct {
	mu     sync.RWMutex
	values []uint64
}

func NewThresholdStore(numProcessors int) (*ThresholdStore, error) {
	if numProcessors < 1 {
		return nil, domain.ErrInvalidProcessorCount
	}

	return &ThresholdStore{values: make([]uint64, numProcessors+1)}, nil
}

func (s *ThresholdStore) NumProcessors() int {
	return len(s.values) - 1
}

func (s *ThresholdStore) Get(id int) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id < 0 || id >= len(s.values) {
		return 0
	}
	return s.values[id]
}

// Set stores value at id when both are in range and reports whether it did.
func (s *ThresholdStore) Set(id int, value int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id < 0 || id >= len(s.values) || value < 0 || value > MaxThreshold {
		return false
	}

	s.values[id] = uint64(value)
	return true
}

// Write parses "<id> <value>" from p and applies it. Unparsable or out of
// range requests are dropped; the full length of p is always reported as
// consumed.
func (s *ThresholdStore) Write(p []byte) (int, error) {
	buf := p
	if len(buf) > MaxWriteSize {
		buf = buf[:MaxWriteSize]
	}

	if id, value, ok := parseRequest(string(buf)); ok {
		s.Set(id, value)
	}

	return len(p), nil
}

// parseRequest reads two signed decimal integers, each preceded by optional
// whitespace. Scanning of a number stops at the first non-digit, so "1 50x"
// is 1 and 50 while "1 0x32" is 1 and 0. Anything after the second number
// is ignored.
func parseRequest(in string) (int, int, bool) {
	id, pos, ok := scanDecimal(in, 0)
	if !ok {
		return 0, 0, false
	}

	value, _, ok := scanDecimal(in, pos)
	if !ok {
		return 0, 0, false
	}

	return id, value, true
}

func scanDecimal(in string, pos int) (int, int, bool) {
	for pos < len(in) && isSpace(in[pos]) {
		pos++
	}

	start := pos
	if pos < len(in) && (in[pos] == '+' || in[pos] == '-') {
		pos++
	}

	digits := pos
	for pos < len(in) && in[pos] >= '0' && in[pos] <= '9' {
		pos++
	}
	if pos == digits {
		return 0, start, false
	}

	n, err := strconv.Atoi(in[start:pos])
	if err != nil {
		return 0, start, false
	}

	return n, pos, true
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// Render returns the whole table, one line per processor and the average last.
func (s *ThresholdStore) Render() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b strings.Builder
	avg := len(s.values) - 1
	for id := 0; id < avg; id++ {
		fmt.Fprintf(&b, "CPU %d threshold: %d %%.\n", id, s.values[id])
	}
	fmt.Fprintf(&b, "CPU %d (average usage) threshold: %d %%.\n", avg, s.values[avg])

	return b.String()
}

// ReadAt copies the rendered table starting at byte off. It returns
// 0, io.EOF once off reaches the end.
func (s *ThresholdStore) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("threshold read: negative offset %d", off)
	}

	data := s.Render()
	if off >= int64(len(data)) {
		return 0, io.EOF
	}

	n := copy(p, data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

var (
	_ io.Writer   = (*ThresholdStore)(nil)
	_ io.ReaderAt = (*ThresholdStore)(nil)
)
