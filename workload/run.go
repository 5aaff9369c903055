package workload

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/moss-lang/moss/mempool"
	"github.com/moss-lang/moss/stack"
)

// Runner holds the provisioned pool and stacks for one workload run.
// Stack operation failures (overflow, underflow) are surfaced to the
// script as False/None results, not errors, so traces can probe the
// failure paths deliberately.
type Runner struct {
	Pool   *mempool.Pool
	stacks map[string]*stack.Stack
	pooled []*stack.PooledStack
	script string
}

// NewRunner provisions the pool and every stack a spec declares. Stacks
// are allocated in name order so pool layout is deterministic run to
// run.
func NewRunner(spec *Spec) (*Runner, error) {
	words := spec.Pool.Words
	if words == 0 {
		for _, ss := range spec.Stacks {
			if !ss.Borrowed {
				words += ss.Capacity
			}
		}
	}
	r := &Runner{
		Pool:   mempool.NewPool(words),
		stacks: make(map[string]*stack.Stack),
		script: spec.Trace.Script,
	}

	names := make([]string, 0, len(spec.Stacks))
	for name := range spec.Stacks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ss := spec.Stacks[name]
		if ss.Borrowed {
			r.stacks[name] = stack.Wrap(make([]stack.Word, ss.Capacity))
			log.Debug().Str("stack", name).Uint("capacity", ss.Capacity).Msg("NewRunner: wrapped borrowed stack")
			continue
		}
		ps, err := stack.Allocate(r.Pool, ss.Capacity)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("allocating stack %q: %w", name, err)
		}
		r.pooled = append(r.pooled, ps)
		r.stacks[name] = &ps.Stack
		log.Debug().Str("stack", name).Uint("capacity", ss.Capacity).Uint("pool_available", r.Pool.Available()).Msg("NewRunner: allocated pooled stack")
	}
	return r, nil
}

// Close releases every pooled stack back to the pool.
func (r *Runner) Close() {
	for _, ps := range r.pooled {
		ps.Release()
	}
	r.pooled = nil
}

// Stack returns a provisioned stack by name.
func (r *Runner) Stack(name string) (*stack.Stack, bool) {
	s, ok := r.stacks[name]
	return s, ok
}

// Run executes the workload script. filename is used for positions and
// as the source path when src is nil; src may be a string or []byte for
// in-memory scripts.
func (r *Runner) Run(filename string, src any) error {
	thread := &starlark.Thread{
		Name: "workload",
		Print: func(_ *starlark.Thread, msg string) {
			log.Info().Str("script", filename).Msg(msg)
		},
	}
	opts := syntax.FileOptions{
		While:           true,
		TopLevelControl: true,
		GlobalReassign:  true,
	}
	_, err := starlark.ExecFileOptions(&opts, thread, filename, src, r.predeclared())
	return err
}

func (r *Runner) predeclared() starlark.StringDict {
	dict := starlark.StringDict{
		"push":       r.pushK(1),
		"push2":      r.pushK(2),
		"push3":      r.pushK(3),
		"push4":      r.pushK(4),
		"push5":      r.pushK(5),
		"pop":        r.popK(1),
		"pop2":       r.popK(2),
		"pop3":       r.popK(3),
		"pop4":       r.popK(4),
		"pop5":       r.popK(5),
		"push_frame": starlark.NewBuiltin("push_frame", r.pushFrameFn),
		"peek":       starlark.NewBuiltin("peek", r.peekFn),
		"patch":      starlark.NewBuiltin("patch", r.patchFn),
		"drop":       starlark.NewBuiltin("drop", r.dropFn),
		"clear":      starlark.NewBuiltin("clear", r.clearFn),
		"depth":      starlark.NewBuiltin("depth", r.statFn(func(s *stack.Stack) uint { return s.Depth() })),
		"capacity":   starlark.NewBuiltin("capacity", r.statFn(func(s *stack.Stack) uint { return s.Capacity() })),
		"peak":       starlark.NewBuiltin("peak", r.statFn(func(s *stack.Stack) uint { return s.Peak() })),
		"is_empty":   starlark.NewBuiltin("is_empty", r.isEmptyFn),
	}
	return dict
}

type builtinFn = func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error)

// lookup resolves the stack-name argument every builtin takes first.
func (r *Runner) lookup(b *starlark.Builtin, v starlark.Value) (*stack.Stack, error) {
	name, ok := starlark.AsString(v)
	if !ok {
		return nil, fmt.Errorf("%s: stack name must be a string, got %s", b.Name(), v.Type())
	}
	s, ok := r.stacks[name]
	if !ok {
		return nil, fmt.Errorf("%s: unknown stack %q", b.Name(), name)
	}
	return s, nil
}

func asWord(b *starlark.Builtin, v starlark.Value) (stack.Word, error) {
	i, ok := v.(starlark.Int)
	if !ok {
		return 0, fmt.Errorf("%s: word must be an int, got %s", b.Name(), v.Type())
	}
	u, ok := i.Uint64()
	if !ok {
		return 0, fmt.Errorf("%s: word %v out of range", b.Name(), v)
	}
	return stack.Word(u), nil
}

func asIndex(b *starlark.Builtin, v starlark.Value) (uint, error) {
	w, err := asWord(b, v)
	return uint(w), err
}

func (r *Runner) pushK(k int) *starlark.Builtin {
	name := "push"
	if k > 1 {
		name = fmt.Sprintf("push%d", k)
	}
	fn := func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(kwargs) > 0 {
			return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
		}
		if len(args) != k+1 {
			return nil, fmt.Errorf("%s: got %d arguments, want %d", b.Name(), len(args), k+1)
		}
		s, err := r.lookup(b, args[0])
		if err != nil {
			return nil, err
		}
		var ws [5]stack.Word
		for i := 0; i < k; i++ {
			if ws[i], err = asWord(b, args[i+1]); err != nil {
				return nil, err
			}
		}
		var ok bool
		switch k {
		case 1:
			ok = s.Push(ws[0])
		case 2:
			ok = s.Push2(ws[0], ws[1])
		case 3:
			ok = s.Push3(ws[0], ws[1], ws[2])
		case 4:
			ok = s.Push4(ws[0], ws[1], ws[2], ws[3])
		case 5:
			ok = s.Push5(ws[0], ws[1], ws[2], ws[3], ws[4])
		}
		if !ok {
			log.Trace().Str("op", b.Name()).Uint("depth", s.Depth()).Uint("capacity", s.Capacity()).Msg("workload: overflow")
		}
		return starlark.Bool(ok), nil
	}
	return starlark.NewBuiltin(name, fn)
}

func (r *Runner) popK(k int) *starlark.Builtin {
	name := "pop"
	if k > 1 {
		name = fmt.Sprintf("pop%d", k)
	}
	fn := func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var sname string
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &sname); err != nil {
			return nil, err
		}
		s, err := r.lookup(b, args[0])
		if err != nil {
			return nil, err
		}
		var ws [5]stack.Word
		var ok bool
		switch k {
		case 1:
			ws[0], ok = s.Pop()
		case 2:
			ok = s.Pop2(&ws[0], &ws[1])
		case 3:
			ok = s.Pop3(&ws[0], &ws[1], &ws[2])
		case 4:
			ok = s.Pop4(&ws[0], &ws[1], &ws[2], &ws[3])
		case 5:
			ok = s.Pop5(&ws[0], &ws[1], &ws[2], &ws[3], &ws[4])
		}
		if !ok {
			// Some outputs may be stale; none are exposed.
			log.Trace().Str("op", b.Name()).Uint("depth", s.Depth()).Msg("workload: underflow")
			return starlark.None, nil
		}
		if k == 1 {
			return starlark.MakeUint64(uint64(ws[0])), nil
		}
		out := make(starlark.Tuple, k)
		for i := 0; i < k; i++ {
			out[i] = starlark.MakeUint64(uint64(ws[i]))
		}
		return out, nil
	}
	return starlark.NewBuiltin(name, fn)
}

func (r *Runner) pushFrameFn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	if len(args) < 1 {
		return nil, fmt.Errorf("%s: missing stack name", b.Name())
	}
	s, err := r.lookup(b, args[0])
	if err != nil {
		return nil, err
	}
	ws := make([]stack.Word, len(args)-1)
	for i := range ws {
		if ws[i], err = asWord(b, args[i+1]); err != nil {
			return nil, err
		}
	}
	return starlark.Bool(s.PushFrame(ws...)), nil
}

func (r *Runner) peekFn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var sname string
	var nv starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &sname, &nv); err != nil {
		return nil, err
	}
	s, err := r.lookup(b, args[0])
	if err != nil {
		return nil, err
	}
	n, err := asIndex(b, nv)
	if err != nil {
		return nil, err
	}
	v, ok := s.Peek(n)
	if !ok {
		return starlark.None, nil
	}
	return starlark.MakeUint64(uint64(v)), nil
}

func (r *Runner) patchFn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var sname string
	var nv, wv starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 3, &sname, &nv, &wv); err != nil {
		return nil, err
	}
	s, err := r.lookup(b, args[0])
	if err != nil {
		return nil, err
	}
	n, err := asIndex(b, nv)
	if err != nil {
		return nil, err
	}
	w, err := asWord(b, wv)
	if err != nil {
		return nil, err
	}
	p, ok := s.Slot(n)
	if !ok {
		return starlark.Bool(false), nil
	}
	*p = w
	return starlark.Bool(true), nil
}

func (r *Runner) dropFn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var sname string
	var nv starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &sname, &nv); err != nil {
		return nil, err
	}
	s, err := r.lookup(b, args[0])
	if err != nil {
		return nil, err
	}
	n, err := asIndex(b, nv)
	if err != nil {
		return nil, err
	}
	return starlark.Bool(s.Drop(n)), nil
}

func (r *Runner) clearFn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var sname string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &sname); err != nil {
		return nil, err
	}
	s, err := r.lookup(b, args[0])
	if err != nil {
		return nil, err
	}
	s.Clear()
	return starlark.None, nil
}

func (r *Runner) statFn(get func(*stack.Stack) uint) builtinFn {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var sname string
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &sname); err != nil {
			return nil, err
		}
		s, err := r.lookup(b, args[0])
		if err != nil {
			return nil, err
		}
		return starlark.MakeUint64(uint64(get(s))), nil
	}
}

func (r *Runner) isEmptyFn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var sname string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &sname); err != nil {
		return nil, err
	}
	s, err := r.lookup(b, args[0])
	if err != nil {
		return nil, err
	}
	return starlark.Bool(s.IsEmpty()), nil
}
