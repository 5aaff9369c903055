// Package workload replays recorded evaluator stack traces against real
// stacks and reports the observed high-water marks. Peak depth exists so
// an operator can re-provision tighter capacities after a representative
// run; this package is the tooling that produces that signal.
package workload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Spec describes one workload: the shared pool, the stacks drawn from it
// (or borrowed), and the Starlark trace script that drives them.
type Spec struct {
	Pool   PoolSpec             `toml:""`
	Stacks map[string]StackSpec `toml:",omitempty"`
	Trace  TraceSpec            `toml:""`
}

type PoolSpec struct {
	// Words is the pool's fixed size. Zero means "just enough for the
	// pooled stacks declared below".
	Words uint `toml:",omitempty"`
}

type StackSpec struct {
	Capacity uint `toml:",omitempty"`
	// Borrowed stacks wrap their own buffer instead of drawing from the
	// pool, matching a statically provisioned build of the evaluator.
	Borrowed bool `toml:",omitempty"`
}

type TraceSpec struct {
	Script string `toml:",omitempty"`
}

func parseSpec(f io.Reader) (*Spec, error) {
	var out Spec
	_, err := toml.NewDecoder(f).Decode(&out)
	return &out, err
}

// LoadSpecFromFile reads a TOML workload spec. A missing trace script
// path defaults to the spec filename with a .star extension, resolved
// relative to the spec file.
func LoadSpecFromFile(path string) (*Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	s, err := parseSpec(f)
	if err != nil {
		return nil, err
	}
	if len(s.Stacks) == 0 {
		return nil, fmt.Errorf("workload spec %s declares no stacks", path)
	}
	if s.Trace.Script == "" {
		parts := strings.Split(fi.Name(), ".")
		parts = parts[:len(parts)-1]
		parts = append(parts, "star")
		s.Trace.Script = strings.Join(parts, ".")
	}
	filedir := filepath.Dir(path)
	s.Trace.Script = filepath.Clean(filepath.Join(filedir, s.Trace.Script))
	return s, nil
}
