// Package mempool provides the shared word pool that evaluator stacks
// draw their backing storage from. The pool is created once, at runtime
// startup, with a fixed word count; it never grows, so the worst-case
// memory of everything built on it is statically boundable.
//
// Like the stacks themselves, a Pool is owned by one execution context:
// there is no internal locking.
package mempool

import (
	"errors"
	"fmt"
	"sort"

	"github.com/moss-lang/moss/stack"
)

// ErrExhausted is returned by Reserve when no contiguous run of free
// words is large enough for the request.
var ErrExhausted = errors.New("memory pool exhausted")

type extent struct {
	base uint
	size uint
}

// Pool is a fixed arena of words carved into extents by first fit.
// Freed extents are coalesced with free neighbors, so a fully recycled
// pool can always satisfy a full-size reservation again.
type Pool struct {
	arena    []stack.Word
	free     []extent // sorted by base, no two adjacent
	live     map[*stack.Word]extent
	avail    uint
	minAvail uint
}

// NewPool creates a pool of the given word count.
func NewPool(words uint) *Pool {
	p := &Pool{
		arena:    make([]stack.Word, words),
		live:     make(map[*stack.Word]extent),
		avail:    words,
		minAvail: words,
	}
	if words > 0 {
		p.free = []extent{{base: 0, size: words}}
	}
	return p
}

// Reserve hands out exclusive access to a contiguous run of n words.
// Exhaustion is reported as an error wrapping ErrExhausted, never a
// panic. A reservation of zero words returns a nil buffer.
func (p *Pool) Reserve(n uint) ([]stack.Word, error) {
	if n == 0 {
		return nil, nil
	}
	for i, e := range p.free {
		if e.size < n {
			continue
		}
		buf := p.arena[e.base : e.base+n : e.base+n]
		if e.size == n {
			p.free = append(p.free[:i], p.free[i+1:]...)
		} else {
			p.free[i] = extent{base: e.base + n, size: e.size - n}
		}
		p.live[&buf[0]] = extent{base: e.base, size: n}
		p.avail -= n
		if p.avail < p.minAvail {
			p.minAvail = p.avail
		}
		return buf, nil
	}
	return nil, fmt.Errorf("%w: %d words requested, %d free", ErrExhausted, n, p.avail)
}

// Recycle returns a buffer previously handed out by Reserve. Passing a
// buffer this pool did not hand out is a programming error and panics:
// silently accepting it would corrupt the extent bookkeeping.
func (p *Pool) Recycle(buf []stack.Word) {
	if len(buf) == 0 {
		return
	}
	e, ok := p.live[&buf[0]]
	if !ok {
		panic("mempool: recycle of a buffer this pool does not own")
	}
	delete(p.live, &buf[0])
	p.insertFree(e)
	p.avail += e.size
}

// insertFree puts e back into the free list, coalescing with adjacent
// free extents.
func (p *Pool) insertFree(e extent) {
	i := sort.Search(len(p.free), func(i int) bool { return p.free[i].base > e.base })
	p.free = append(p.free, extent{})
	copy(p.free[i+1:], p.free[i:])
	p.free[i] = e
	if i+1 < len(p.free) && p.free[i].base+p.free[i].size == p.free[i+1].base {
		p.free[i].size += p.free[i+1].size
		p.free = append(p.free[:i+1], p.free[i+2:]...)
	}
	if i > 0 && p.free[i-1].base+p.free[i-1].size == p.free[i].base {
		p.free[i-1].size += p.free[i].size
		p.free = append(p.free[:i], p.free[i+1:]...)
	}
}

// Capacity is the pool's fixed total word count.
func (p *Pool) Capacity() uint {
	return uint(len(p.arena))
}

// Available is the current count of free words (not necessarily
// contiguous).
func (p *Pool) Available() uint {
	return p.avail
}

// MinAvailable is the lowest Available has ever been: the pool's
// low-water mark, for provisioning the arena size.
func (p *Pool) MinAvailable() uint {
	return p.minAvail
}

// Extents is the number of live reservations.
func (p *Pool) Extents() int {
	return len(p.live)
}
