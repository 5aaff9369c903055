package workload

import (
	"encoding/binary"
	"io"
	"os"
	"sort"

	"github.com/dgryski/go-farm"
	"github.com/google/uuid"
	"github.com/shamaton/msgpack/v2"

	"github.com/moss-lang/moss/stack"
)

// Report is the capacity-planning output of one workload run: per-stack
// high-water marks plus pool usage. It is tooling output for operators
// re-provisioning capacities; the stacks themselves have no
// serialization contract.
type Report struct {
	RunID  string
	Script string
	Stacks []StackReport
	Pool   PoolReport
}

type StackReport struct {
	Name     string
	Capacity uint
	Depth    uint
	Peak     uint
	// Fingerprint hashes the live words left on the stack, so two runs
	// of the same trace can be checked for identical final state.
	Fingerprint uint64
}

type PoolReport struct {
	Capacity     uint
	Available    uint
	MinAvailable uint
}

// Fingerprint hashes the live region [0, depth) of a stack. Words are
// encoded little-endian so the hash is stable across runs on the same
// platform.
func Fingerprint(s *stack.Stack) uint64 {
	live := s.Live()
	buf := make([]byte, 8*len(live))
	for i, w := range live {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(w))
	}
	return farm.Hash64(buf)
}

// Report builds the capacity report for the runner's current state.
func (r *Runner) Report() *Report {
	rep := &Report{
		RunID:  uuid.NewString(),
		Script: r.script,
		Pool: PoolReport{
			Capacity:     r.Pool.Capacity(),
			Available:    r.Pool.Available(),
			MinAvailable: r.Pool.MinAvailable(),
		},
	}
	names := make([]string, 0, len(r.stacks))
	for name := range r.stacks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := r.stacks[name]
		rep.Stacks = append(rep.Stacks, StackReport{
			Name:        name,
			Capacity:    s.Capacity(),
			Depth:       s.Depth(),
			Peak:        s.Peak(),
			Fingerprint: Fingerprint(s),
		})
	}
	return rep
}

func (rep *Report) Serialize(w io.Writer) error {
	return msgpack.MarshalWrite(w, rep)
}

func (rep *Report) Deserialize(r io.Reader) error {
	return msgpack.UnmarshalRead(r, rep)
}

// WriteFile writes the report in msgpack form.
func (rep *Report) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := rep.Serialize(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func LoadReportFromFile(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rep := &Report{}
	if err := rep.Deserialize(f); err != nil {
		return nil, err
	}
	return rep, nil
}
