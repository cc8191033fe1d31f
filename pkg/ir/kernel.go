package ir

import (
	"fmt"
	"sort"
)

type Block struct {
	Label        string
	Instructions []*Instruction
}

// Terminated reports whether b already ends in a br or ret.
func (b *Block) Terminated() bool {
	if len(b.Instructions) == 0 { return false }
	return b.Instructions[len(b.Instructions)-1].Terminator()
}

// EndsWithRet reports whether the last instruction of b is a ret.
func (b *Block) EndsWithRet() bool {
	if len(b.Instructions) == 0 { return false }
	return b.Instructions[len(b.Instructions)-1].Op == OpRet
}

type TypeDecl struct {
	Name string
	Type Type
}

// Declaration is an external function the kernel calls.
type Declaration struct {
	Name   string
	Return Type
	Params []Type
}

type Param struct {
	Name    string
	Type    Type
	NoAlias bool
}

type Function struct {
	Name       string
	Return     Type
	Params     []Param
	Attributes []string
}

// OpcodeStat counts, per source opcode, how many source instructions were
// lowered and how many target instructions they produced.
type OpcodeStat struct {
	Opcode  string
	Source  int
	Emitted int
}

type Kernel struct {
	Name         string
	Types        []TypeDecl
	Declarations []Declaration
	Function     Function
	Blocks       []*Block
	Stats        []OpcodeStat
}

func (k *Kernel) FindBlock(label string) *Block {
	for _, b := range k.Blocks {
		if b.Label == label { return b }
	}
	return nil
}

func (k *Kernel) FindDeclaration(name string) *Declaration {
	for i := range k.Declarations {
		if k.Declarations[i].Name == name { return &k.Declarations[i] }
	}
	return nil
}

// InstructionCount returns the number of target instructions in k.
func (k *Kernel) InstructionCount() int {
	n := 0
	for _, b := range k.Blocks {
		n += len(b.Instructions)
	}
	return n
}

// Validate checks every instruction and the block structure of k: labels
// are unique, each block is terminated and branches name existing blocks.
func (k *Kernel) Validate() error {
	labels := make(map[string]bool, len(k.Blocks))
	for _, b := range k.Blocks {
		if labels[b.Label] { return fmt.Errorf("duplicate block label '%s'", b.Label) }
		labels[b.Label] = true
	}
	for _, b := range k.Blocks {
		for i, inst := range b.Instructions {
			if err := inst.Validate(); err != nil {
				return fmt.Errorf("block '%s' instruction %d: %w", b.Label, i, err)
			}
			if inst.Op == OpBr {
				if !labels[inst.Label] { return fmt.Errorf("block '%s': branch to unknown label '%s'", b.Label, inst.Label) }
				if inst.False != "" && !labels[inst.False] { return fmt.Errorf("block '%s': branch to unknown label '%s'", b.Label, inst.False) }
			}
		}
		if !b.Terminated() { return fmt.Errorf("block '%s' is not terminated", b.Label) }
	}
	return nil
}

// SortStats orders Stats by descending emitted count, then by opcode.
func (k *Kernel) SortStats() {
	sort.Slice(k.Stats, func(i, j int) bool {
		if k.Stats[i].Emitted != k.Stats[j].Emitted { return k.Stats[i].Emitted > k.Stats[j].Emitted }
		return k.Stats[i].Opcode < k.Stats[j].Opcode
	})
}
