package monitor

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpumon/internal/domain"
)

func newStore(t *testing.T, n int) *ThresholdStore {
	t.Helper()

	s, err := NewThresholdStore(n)
	require.NoError(t, err)
	return s
}

func TestNewThresholdStoreRejectsEmpty(t *testing.T) {
	_, err := NewThresholdStore(0)
	assert.ErrorIs(t, err, domain.ErrInvalidProcessorCount)
}

func TestThresholdRenderStartsDisabled(t *testing.T) {
	s := newStore(t, 4)

	want := "CPU 0 threshold: 0 %.\n" +
		"CPU 1 threshold: 0 %.\n" +
		"CPU 2 threshold: 0 %.\n" +
		"CPU 3 threshold: 0 %.\n" +
		"CPU 4 (average usage) threshold: 0 %.\n"
	assert.Equal(t, want, s.Render())

	lines := strings.Split(strings.TrimSuffix(s.Render(), "\n"), "\n")
	assert.Len(t, lines, 5)
	assert.Contains(t, lines[4], "(average usage)")
}

func TestThresholdWriteThenRead(t *testing.T) {
	s := newStore(t, 4)

	n, err := s.Write([]byte("2 50"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Contains(t, s.Render(), "CPU 2 threshold: 50 %.\n")

	n, err = s.Write([]byte("2 150"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, uint64(50), s.Get(2))
	assert.Contains(t, s.Render(), "CPU 2 threshold: 50 %.\n")
}

func TestThresholdWriteValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		id      int
		want    uint64
		applied bool
	}{
		{"average id accepted", "4 80\n", 4, 80, true},
		{"zero disables", "1 0", 1, 0, true},
		{"upper bound accepted", "0 100", 0, 100, true},
		{"extra whitespace", "  3\t 7 \n", 3, 7, true},
		{"trailing text ignored", "3 7 junk", 3, 7, true},
		{"id past average", "5 10", 5, 0, false},
		{"negative id", "-1 10", 0, 0, false},
		{"negative value", "1 -5", 1, 0, false},
		{"value over 100", "1 101", 1, 0, false},
		{"single number", "1", 1, 0, false},
		{"garbage", "cpu one fifty", 0, 0, false},
		{"empty", "", 0, 0, false},
		{"explicit plus sign", "+2 +30", 2, 30, true},
		{"hex value stops at x", "1 0x32", 1, 0, true},
		{"binary value stops at b", "1 0b11", 1, 0, true},
		{"underscore value stops at _", "1 1_0", 1, 1, true},
		{"digits then junk", "1 50x", 1, 50, true},
		{"junk glued to id", "1x 50", 1, 0, false},
		{"hex id", "0x1 50", 0, 0, false},
		{"overflow", "1 99999999999999999999", 1, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t, 4)
			s.Set(tt.id, 20)
			before := s.Render()

			n, err := s.Write([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, len(tt.input), n)

			if tt.applied {
				assert.Equal(t, tt.want, s.Get(tt.id))
			} else {
				assert.Equal(t, before, s.Render())
			}
		})
	}
}

func TestThresholdWriteCapsInput(t *testing.T) {
	s := newStore(t, 2)

	input := strings.Repeat(" ", MaxWriteSize) + "1 60"
	n, err := s.Write([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, len(input), n)
	assert.Equal(t, uint64(0), s.Get(1))
}

func TestThresholdReadAtPages(t *testing.T) {
	s := newStore(t, 3)
	s.Set(1, 25)
	full := s.Render()

	var got []byte
	var off int64
	buf := make([]byte, 7)
	for {
		n, err := s.ReadAt(buf, off)
		got = append(got, buf[:n]...)
		off += int64(n)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}

	assert.Equal(t, full, string(got))

	n, err := s.ReadAt(buf, off)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)

	_, err = s.ReadAt(buf, -1)
	assert.Error(t, err)
}

func TestThresholdReadAtWithSectionReader(t *testing.T) {
	s := newStore(t, 2)
	s.Set(2, 90)

	data, err := io.ReadAll(io.NewSectionReader(s, 0, 1<<20))
	require.NoError(t, err)
	assert.Equal(t, s.Render(), string(data))
	assert.True(t, strings.HasSuffix(string(data), "CPU 2 (average usage) threshold: 90 %.\n"))
}
