package stack

// Bulk frame operations. The evaluator moves whole continuation frames
// (2-5 contiguous words) with these helpers.
//
// PushK and PopK are NOT atomic. Every sub-operation is attempted in
// order regardless of earlier failures, and the result is the AND of the
// individual results. A failing PushK may therefore have committed
// anywhere from 0 to K-1 words; a failing PopK leaves the outputs of its
// failed sub-pops holding whatever stale values they already held.
// Callers must treat a failed bulk push as fatal to the evaluation in
// progress (a partially written frame is not a resumable continuation)
// and must not read any output of a failed bulk pop. PushFrame is the
// checked, all-or-nothing alternative.

// Push2 pushes w0 then w1. See the partial-commit contract above.
func (s *Stack) Push2(w0, w1 Word) bool {
	ok0 := s.Push(w0)
	ok1 := s.Push(w1)
	return ok0 && ok1
}

// Push3 pushes w0, w1, w2 in order.
func (s *Stack) Push3(w0, w1, w2 Word) bool {
	ok0 := s.Push(w0)
	ok1 := s.Push(w1)
	ok2 := s.Push(w2)
	return ok0 && ok1 && ok2
}

// Push4 pushes w0..w3 in order.
func (s *Stack) Push4(w0, w1, w2, w3 Word) bool {
	ok0 := s.Push(w0)
	ok1 := s.Push(w1)
	ok2 := s.Push(w2)
	ok3 := s.Push(w3)
	return ok0 && ok1 && ok2 && ok3
}

// Push5 pushes w0..w4 in order.
func (s *Stack) Push5(w0, w1, w2, w3, w4 Word) bool {
	ok0 := s.Push(w0)
	ok1 := s.Push(w1)
	ok2 := s.Push(w2)
	ok3 := s.Push(w3)
	ok4 := s.Push(w4)
	return ok0 && ok1 && ok2 && ok3 && ok4
}

// popInto pops the top word into *out, leaving *out untouched on
// underflow.
func (s *Stack) popInto(out *Word) bool {
	v, ok := s.Pop()
	if ok {
		*out = v
	}
	return ok
}

// Pop2 pops the top word into *r0 and the next into *r1.
func (s *Stack) Pop2(r0, r1 *Word) bool {
	ok0 := s.popInto(r0)
	ok1 := s.popInto(r1)
	return ok0 && ok1
}

// Pop3 pops three words, top first.
func (s *Stack) Pop3(r0, r1, r2 *Word) bool {
	ok0 := s.popInto(r0)
	ok1 := s.popInto(r1)
	ok2 := s.popInto(r2)
	return ok0 && ok1 && ok2
}

// Pop4 pops four words, top first.
func (s *Stack) Pop4(r0, r1, r2, r3 *Word) bool {
	ok0 := s.popInto(r0)
	ok1 := s.popInto(r1)
	ok2 := s.popInto(r2)
	ok3 := s.popInto(r3)
	return ok0 && ok1 && ok2 && ok3
}

// Pop5 pops five words, top first.
func (s *Stack) Pop5(r0, r1, r2, r3, r4 *Word) bool {
	ok0 := s.popInto(r0)
	ok1 := s.popInto(r1)
	ok2 := s.popInto(r2)
	ok3 := s.popInto(r3)
	ok4 := s.popInto(r4)
	return ok0 && ok1 && ok2 && ok3 && ok4
}

// PushFrame pushes all of ws or none of it: remaining capacity is
// checked up front, and on overflow the stack is left unchanged. It is
// the recoverable alternative to PushK for callers that want to unwind
// cleanly instead of treating overflow as fatal.
func (s *Stack) PushFrame(ws ...Word) bool {
	if uint(len(ws)) > uint(len(s.words))-s.depth {
		return false
	}
	copy(s.words[s.depth:], ws)
	s.depth += uint(len(ws))
	if s.depth > s.peak {
		s.peak = s.depth
	}
	return true
}
