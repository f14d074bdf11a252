// Package filter matches captured frames against a classic BPF program
// before they reach the dissection engine.
package filter

import (
	"fmt"
	"strings"

	"golang.org/x/net/bpf"

	"firestige.xyz/strix/pkg/codec"
)

// Filter runs a classic BPF program over raw frame bytes.
type Filter struct {
	vm *bpf.VM
}

// Compile parses a program in the numeric form emitted by tcpdump -ddd: an
// instruction count on the first line, then one "opcode jt jf k" quad per
// line. An empty program is rejected; use a nil *Filter to match everything.
func Compile(program string) (*Filter, error) {
	lines := nonEmptyLines(program)
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: empty BPF program", codec.ErrConfig)
	}

	var count int
	if _, err := fmt.Sscanf(lines[0], "%d", &count); err != nil {
		return nil, fmt.Errorf("%w: BPF program must start with an instruction count: %v",
			codec.ErrConfig, err)
	}
	lines = lines[1:]
	if len(lines) != count {
		return nil, fmt.Errorf("%w: BPF program declares %d instructions, has %d",
			codec.ErrConfig, count, len(lines))
	}

	raw := make([]bpf.RawInstruction, count)
	for i, line := range lines {
		ins := &raw[i]
		if _, err := fmt.Sscanf(line, "%d %d %d %d", &ins.Op, &ins.Jt, &ins.Jf, &ins.K); err != nil {
			return nil, fmt.Errorf("%w: BPF instruction %d %q: %v", codec.ErrConfig, i, line, err)
		}
	}

	prog, allDecoded := bpf.Disassemble(raw)
	if !allDecoded {
		return nil, fmt.Errorf("%w: BPF program contains unknown opcodes", codec.ErrConfig)
	}
	vm, err := bpf.NewVM(prog)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid BPF program: %v", codec.ErrConfig, err)
	}
	return &Filter{vm: vm}, nil
}

// Match reports whether the frame passes the program. A nil filter matches
// everything.
func (f *Filter) Match(frame []byte) (bool, error) {
	if f == nil {
		return true, nil
	}
	n, err := f.vm.Run(frame)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
