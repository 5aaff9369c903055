package stack

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLIFO(t *testing.T) {
	s := Wrap(make([]Word, 16))
	words := []Word{7, 99, 0, 0xDEAD, 42, 1 << 20}
	for _, w := range words {
		require.True(t, s.Push(w))
	}
	for i := len(words) - 1; i >= 0; i-- {
		v, ok := s.Pop()
		require.True(t, ok)
		assert.Equal(t, words[i], v)
	}
	assert.True(t, s.IsEmpty())
}

func TestPushOverflow(t *testing.T) {
	s := Wrap(make([]Word, 2))
	require.True(t, s.Push(1))
	require.True(t, s.Push(2))
	assert.False(t, s.Push(3), "push at capacity must fail")
	assert.Equal(t, uint(2), s.Depth(), "failed push must not change depth")

	v, ok := s.Pop()
	require.True(t, ok)
	assert.Equal(t, Word(2), v, "rejected word must not have been stored")
}

func TestUnderflow(t *testing.T) {
	s := Wrap(make([]Word, 4))

	_, ok := s.Pop()
	assert.False(t, ok)
	assert.Equal(t, uint(0), s.Depth())

	_, ok = s.Peek(0)
	assert.False(t, ok)

	_, ok = s.Slot(0)
	assert.False(t, ok)

	assert.False(t, s.Drop(1))
	assert.Equal(t, uint(0), s.Depth())

	// Partially filled: peek/drop past depth still fail without effect.
	require.True(t, s.Push(10))
	require.True(t, s.Push(20))
	_, ok = s.Peek(2)
	assert.False(t, ok)
	assert.False(t, s.Drop(3))
	assert.Equal(t, uint(2), s.Depth())
}

func TestPeek(t *testing.T) {
	s := Wrap(make([]Word, 8))
	for _, w := range []Word{100, 200, 300, 400} {
		require.True(t, s.Push(w))
	}
	tests := []struct {
		n    uint
		want Word
	}{
		{0, 400},
		{1, 300},
		{2, 200},
		{3, 100},
	}
	for _, tt := range tests {
		v, ok := s.Peek(tt.n)
		require.True(t, ok)
		assert.Equal(t, tt.want, v)
		assert.Equal(t, uint(4), s.Depth(), "peek must never change depth")
	}
}

func TestSlotPatch(t *testing.T) {
	s := Wrap(make([]Word, 8))
	require.True(t, s.Push3(1, 5, 2)) // a loop counter at slot 1

	p, ok := s.Slot(1)
	require.True(t, ok)
	assert.Equal(t, Word(5), *p)
	*p = 4
	assert.Equal(t, uint(3), s.Depth(), "in-place patch must not change depth")

	v, ok := s.Peek(1)
	require.True(t, ok)
	assert.Equal(t, Word(4), v)
}

func TestDrop(t *testing.T) {
	s := Wrap(make([]Word, 8))
	for i := Word(1); i <= 5; i++ {
		require.True(t, s.Push(i))
	}
	require.True(t, s.Drop(3))
	assert.Equal(t, uint(2), s.Depth())
	v, ok := s.Pop()
	require.True(t, ok)
	assert.Equal(t, Word(2), v)

	// drop(depth) empties the stack, drop(0) is a no-op
	require.True(t, s.Drop(0))
	assert.Equal(t, uint(1), s.Depth())
	require.True(t, s.Drop(1))
	assert.True(t, s.IsEmpty())
}

func TestWrapZeroCapacity(t *testing.T) {
	s := Wrap(nil)
	assert.True(t, s.IsEmpty())
	assert.False(t, s.Push(1), "push on a zero-capacity stack must fail immediately")
	assert.True(t, s.IsEmpty())
	assert.Equal(t, uint(0), s.Capacity())
}

func TestRoundTrip(t *testing.T) {
	s := Wrap(make([]Word, 4))
	require.True(t, s.Push2(11, 22))
	for _, v := range []Word{0, 1, ^Word(0), 12345} {
		before := s.Depth()
		require.True(t, s.Push(v))
		got, ok := s.Pop()
		require.True(t, ok)
		assert.Equal(t, v, got)
		assert.Equal(t, before, s.Depth())
	}
}

func TestPeakTracking(t *testing.T) {
	s := Wrap(make([]Word, 8))
	assert.Equal(t, uint(0), s.Peak())

	require.True(t, s.Push3(1, 2, 3))
	assert.Equal(t, uint(3), s.Peak())

	// Peak is monotone across pops and drops.
	s.Pop()
	s.Pop()
	assert.Equal(t, uint(3), s.Peak())
	require.True(t, s.Push(4))
	assert.Equal(t, uint(3), s.Peak())
	require.True(t, s.Push2(5, 6))
	assert.Equal(t, uint(4), s.Peak())
	require.True(t, s.Drop(4))
	assert.Equal(t, uint(4), s.Peak())

	// Clear starts a fresh high-water-mark epoch.
	s.Clear()
	assert.Equal(t, uint(0), s.Peak())
	assert.Equal(t, uint(0), s.Depth())
	require.True(t, s.Push(7))
	assert.Equal(t, uint(1), s.Peak())
}

// Slots beyond depth are deliberately left stale: pop and clear never
// zero storage. Wrapping our own buffer lets the test observe that.
func TestStaleSlotsUntouched(t *testing.T) {
	buf := make([]Word, 4)
	s := Wrap(buf)
	require.True(t, s.Push2(0xAAAA, 0xBBBB))
	v, ok := s.Pop()
	require.True(t, ok)
	require.Equal(t, Word(0xBBBB), v)
	assert.Equal(t, Word(0xBBBB), buf[1], "pop must not zero the vacated slot")

	s.Clear()
	assert.Equal(t, Word(0xAAAA), buf[0], "clear must not touch storage")
	assert.Equal(t, Word(0xBBBB), buf[1])
}

func TestEndToEndScenario(t *testing.T) {
	const (
		a Word = 0xA
		b Word = 0xB
		c Word = 0xC
		d Word = 0xD
		e Word = 0xE
	)
	s := Wrap(make([]Word, 4))

	require.True(t, s.Push(a))
	assert.Equal(t, uint(1), s.Depth())
	require.True(t, s.Push(b))
	assert.Equal(t, uint(2), s.Depth())
	require.True(t, s.Push2(c, d))
	assert.Equal(t, uint(4), s.Depth())
	assert.Equal(t, uint(4), s.Peak())

	assert.False(t, s.Push(e), "overflow")
	assert.Equal(t, uint(4), s.Depth())

	v, ok := s.Pop()
	require.True(t, ok)
	assert.Equal(t, d, v)
	assert.Equal(t, uint(3), s.Depth())

	require.True(t, s.Drop(2))
	assert.Equal(t, uint(1), s.Depth())

	v, ok = s.Pop()
	require.True(t, ok)
	assert.Equal(t, a, v)
	assert.Equal(t, uint(0), s.Depth())
	assert.Equal(t, uint(4), s.Peak())
}

func TestLive(t *testing.T) {
	s := Wrap(make([]Word, 8))
	require.True(t, s.Push3(1, 2, 3))
	assert.Equal(t, []Word{1, 2, 3}, s.Live())
	s.Pop()
	assert.Equal(t, []Word{1, 2}, s.Live())
	s.Clear()
	assert.Empty(t, s.Live())
}

// stubProvider implements Provider on a plain allocation, recording
// recycled buffers so ownership tests can see them come back.
type stubProvider struct {
	fail     bool
	recycled [][]Word
}

func (sp *stubProvider) Reserve(n uint) ([]Word, error) {
	if sp.fail {
		return nil, errors.New("out of storage")
	}
	return make([]Word, n), nil
}

func (sp *stubProvider) Recycle(buf []Word) {
	sp.recycled = append(sp.recycled, buf)
}

func TestAllocateAndRelease(t *testing.T) {
	sp := &stubProvider{}
	s, err := Allocate(sp, 4)
	require.NoError(t, err)
	assert.Equal(t, uint(4), s.Capacity())
	require.True(t, s.Push2(1, 2))

	s.Release()
	require.Len(t, sp.recycled, 1)
	assert.Equal(t, uint(0), s.Capacity())
	assert.True(t, s.IsEmpty())

	// A second Release must not hand the buffer back again.
	s.Release()
	assert.Len(t, sp.recycled, 1)
}

func TestAllocateFailure(t *testing.T) {
	sp := &stubProvider{fail: true}
	s, err := Allocate(sp, 4)
	assert.Nil(t, s)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllocation)
}
