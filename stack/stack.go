// Package stack implements the bounded continuation stack of the moss
// evaluator. The evaluator keeps no native recursion: every suspended
// computation is a run of machine words on one of these stacks, so all
// operations are O(1), allocation-free, and report failure as a value
// rather than panicking.
//
// A Stack stores opaque Words; what a word encodes (tag, heap reference,
// literal) is entirely the caller's business. Slots at indices
// [depth, capacity) may hold stale words from earlier operations and are
// never zeroed. A Stack is single-owner: no internal locking exists, and
// sharing one across goroutines without external synchronization is a
// caller error.
package stack

import (
	"errors"
	"fmt"
)

// Word is a fixed-width unsigned integer sized to the platform's native
// unit. The stack never interprets it.
type Word uint

// ErrAllocation is wrapped by Allocate when the storage provider cannot
// supply the requested capacity.
var ErrAllocation = errors.New("stack storage allocation failed")

// Provider supplies the contiguous word buffer a pooled stack uses.
// Reserve returns exclusive access to at least n words or an error on
// exhaustion; Recycle returns a buffer previously handed out by Reserve.
type Provider interface {
	Reserve(n uint) ([]Word, error)
	Recycle(buf []Word)
}

// Stack is a fixed-capacity LIFO of Words. The zero value is an empty
// stack of capacity zero; useful stacks come from Wrap or Allocate.
//
// A Stack built by Wrap borrows its buffer and must not outlive the
// buffer's owner. It has no release operation: only PooledStack, whose
// storage is owned, can be released.
type Stack struct {
	words []Word
	depth uint
	peak  uint
}

// Wrap builds a stack on a caller-owned buffer. It always succeeds; the
// capacity is len(buf). The stack borrows buf and never frees it.
func Wrap(buf []Word) *Stack {
	return &Stack{words: buf}
}

// PooledStack is a Stack whose storage was drawn from a Provider and is
// returned to it by Release.
type PooledStack struct {
	Stack
	provider Provider
}

// Allocate draws capacity words from p and builds a stack on them. The
// provider must already be initialized; exhaustion is reported as an
// error wrapping ErrAllocation.
func Allocate(p Provider, capacity uint) (*PooledStack, error) {
	buf, err := p.Reserve(capacity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAllocation, err)
	}
	return &PooledStack{Stack: Stack{words: buf}, provider: p}, nil
}

// Release returns the stack's storage to its provider. The stack is
// unusable afterwards (capacity zero). Calling Release twice is a no-op
// the second time.
func (s *PooledStack) Release() {
	if s.words == nil {
		return
	}
	s.provider.Recycle(s.words)
	s.words = nil
	s.depth = 0
	s.peak = 0
}

// Clear resets depth and peak to zero, starting a fresh high-water-mark
// epoch. Storage contents are left untouched.
func (s *Stack) Clear() {
	s.depth = 0
	s.peak = 0
}

// IsEmpty reports whether depth is zero.
func (s *Stack) IsEmpty() bool {
	return s.depth == 0
}

// Depth is the count of words currently stored.
func (s *Stack) Depth() uint {
	return s.depth
}

// Capacity is the fixed maximum word count, set at construction.
func (s *Stack) Capacity() uint {
	return uint(len(s.words))
}

// Peak is the highest depth observed since construction or the last
// Clear. It is a capacity-planning signal for tooling, not a bound on
// behavior.
func (s *Stack) Peak() uint {
	return s.peak
}

// Live returns the [0, depth) slice of the backing storage, bottom
// first. It exists for external scanners (a garbage collector walking
// live continuation state, or a fingerprinting tool); the view is
// invalidated by any mutating operation and must not be retained.
func (s *Stack) Live() []Word {
	return s.words[:s.depth]
}

// Push stores w at the top of the stack. It reports false on overflow
// (depth == capacity) and leaves the stack unchanged.
func (s *Stack) Push(w Word) bool {
	if s.depth == uint(len(s.words)) {
		return false
	}
	s.words[s.depth] = w
	s.depth++
	if s.depth > s.peak {
		s.peak = s.depth
	}
	return true
}

// Pop removes and returns the top word. It reports false on underflow
// (empty stack) and leaves the stack unchanged.
func (s *Stack) Pop() (Word, bool) {
	if s.depth == 0 {
		return 0, false
	}
	s.depth--
	return s.words[s.depth], true
}

// Peek returns the word n slots down from the top (0 = top) without
// changing depth. It reports false if n >= depth.
func (s *Stack) Peek(n uint) (Word, bool) {
	if n >= s.depth {
		return 0, false
	}
	return s.words[s.depth-1-n], true
}

// Slot returns a pointer to the word n slots down from the top (0 =
// top), for patching live continuation state in place without a
// pop/push round trip. It reports false if n >= depth. The pointer is
// invalidated by Release and must not be retained across it.
func (s *Stack) Slot(n uint) (*Word, bool) {
	if n >= s.depth {
		return nil, false
	}
	return &s.words[s.depth-1-n], true
}

// Drop discards the top n words. It reports false if n > depth and
// leaves the stack unchanged.
func (s *Stack) Drop(n uint) bool {
	if n > s.depth {
		return false
	}
	s.depth -= n
	return true
}
