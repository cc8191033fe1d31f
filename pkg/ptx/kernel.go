package ptx

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
)

// BasicBlock is a labelled straight-line run of instructions as laid out by
// the front-end. Edges are derived by the dataflow package.
type BasicBlock struct {
	Label        string         `json:"label"`
	Instructions []*Instruction `json:"instructions"`
}

type Kernel struct {
	Name   string        `json:"name"`
	Blocks []*BasicBlock `json:"blocks"`
}

// LoadKernel decodes a JSON kernel description and validates it.
func LoadKernel(r io.Reader) (*Kernel, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var k Kernel
	if err := dec.Decode(&k); err != nil {
		return nil, fmt.Errorf("failed to decode kernel: %w", err)
	}
	if err := k.Validate(); err != nil {
		return nil, err
	}
	return &k, nil
}

// Validate checks every instruction plus the block structure: labels must be
// unique and every branch must name an existing block.
func (k *Kernel) Validate() error {
	if k.Name == "" {
		return fmt.Errorf("kernel has no name")
	}
	if len(k.Blocks) == 0 {
		return fmt.Errorf("kernel '%s' has no blocks", k.Name)
	}
	labels := make(map[string]bool, len(k.Blocks))
	for _, b := range k.Blocks {
		if b.Label == "" {
			return fmt.Errorf("kernel '%s': unlabelled block", k.Name)
		}
		if labels[b.Label] {
			return fmt.Errorf("kernel '%s': duplicate block label '%s'", k.Name, b.Label)
		}
		labels[b.Label] = true
	}
	for _, b := range k.Blocks {
		for n, inst := range b.Instructions {
			if err := inst.Validate(); err != nil {
				return fmt.Errorf("kernel '%s' block '%s' instruction %d: %w", k.Name, b.Label, n, err)
			}
			if inst.Opcode == OpBra && !labels[inst.D.Identifier] {
				return fmt.Errorf("kernel '%s' block '%s': branch to unknown label '%s'", k.Name, b.Label, inst.D.Identifier)
			}
		}
	}
	return nil
}

// Registers maps every register the kernel mentions to its declared type.
func (k *Kernel) Registers() map[RegisterID]DataType {
	regs := make(map[RegisterID]DataType)
	for _, b := range k.Blocks {
		for _, inst := range b.Instructions {
			for _, op := range inst.Defs() {
				regs[op.Reg] = op.Type
			}
			for _, op := range inst.Uses() {
				if _, ok := regs[op.Reg]; !ok {
					regs[op.Reg] = op.Type
				}
			}
		}
	}
	return regs
}

// Fingerprint hashes the canonical encoding of k. Two kernels with the same
// fingerprint translate to the same program.
func (k *Kernel) Fingerprint() uint64 {
	data, err := json.Marshal(k)
	if err != nil {
		return 0
	}
	return xxhash.Sum64(data)
}
