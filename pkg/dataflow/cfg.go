package dataflow

import (
	"fmt"
	"io"
	"strings"

	"github.com/xplshn/ptxlower/pkg/ptx"
)

type block struct {
	index        int
	label        string
	instructions []*ptx.Instruction
	phis         []Phi
	origins      []ptx.RegisterID
	preds        []*block
	targets      []*block
	fall         *block
}

func (b *block) Label() string                    { return b.label }
func (b *block) Instructions() []*ptx.Instruction { return b.instructions }
func (b *block) Phis() []Phi                      { return b.phis }
func (b *block) Predecessors() []Block            { return wrap(b.preds) }
func (b *block) Targets() []Block                 { return wrap(b.targets) }

func (b *block) Fallthrough() Block {
	if b.fall == nil { return nil }
	return b.fall
}

// successors returns the distinct targets followed by the fallthrough.
func (b *block) successors() []*block {
	succs := make([]*block, 0, len(b.targets)+1)
	add := func(s *block) {
		for _, x := range succs {
			if x == s { return }
		}
		succs = append(succs, s)
	}
	for _, t := range b.targets {
		add(t)
	}
	if b.fall != nil { add(b.fall) }
	return succs
}

func (b *block) predIndex(p *block) int {
	for i, x := range b.preds {
		if x == p { return i }
	}
	return -1
}

func wrap(bs []*block) []Block {
	out := make([]Block, len(bs))
	for i, b := range bs {
		out[i] = b
	}
	return out
}

// CFG is the concrete Graph built from a ptx.Kernel. It owns private copies
// of the kernel's instructions, which ToSSA rewrites in place.
type CFG struct {
	name   string
	blocks []*block
	types  map[ptx.RegisterID]ptx.DataType
	defs   map[ptx.RegisterID]*block
	origin map[ptx.RegisterID]ptx.RegisterID
	inSSA  bool
}

// EntryLabel names the empty block Build inserts when the first block of a
// kernel is itself a branch target.
const EntryLabel = "$ptxlower.entry"

// Build derives the control-flow graph of k. A block falls through to its
// layout successor unless it ends in an unguarded bra or exit.
func Build(k *ptx.Kernel) (*CFG, error) {
	if err := k.Validate(); err != nil { return nil, err }

	g := &CFG{name: k.Name, types: k.Registers()}
	byLabel := make(map[string]*block, len(k.Blocks))
	for i, kb := range k.Blocks {
		b := &block{index: i, label: kb.Label}
		for _, inst := range kb.Instructions {
			b.instructions = append(b.instructions, inst.Clone())
		}
		g.blocks = append(g.blocks, b)
		byLabel[b.label] = b
	}

	for i, b := range g.blocks {
		for _, inst := range b.instructions {
			if inst.Opcode != ptx.OpBra { continue }
			t, ok := byLabel[inst.D.Identifier]
			if !ok { return nil, fmt.Errorf("%w: '%s'", ErrUnknownLabel, inst.D.Identifier) }
			b.targets = append(b.targets, t)
		}
		if i+1 < len(g.blocks) && !endsUnconditionally(b) { b.fall = g.blocks[i+1] }
	}

	g.link()
	if len(g.blocks[0].preds) > 0 {
		entry := &block{label: EntryLabel, fall: g.blocks[0]}
		g.blocks = append([]*block{entry}, g.blocks...)
		for i, b := range g.blocks {
			b.index = i
			b.preds = nil
		}
		g.link()
	}
	g.collectDefs()
	return g, nil
}

func (g *CFG) link() {
	for _, b := range g.blocks {
		for _, s := range b.successors() {
			s.preds = append(s.preds, b)
		}
	}
}

func endsUnconditionally(b *block) bool {
	if len(b.instructions) == 0 { return false }
	last := b.instructions[len(b.instructions)-1]
	if last.PG.Condition != ptx.PT { return false }
	return last.Opcode == ptx.OpBra || last.Opcode == ptx.OpExit
}

func (g *CFG) Name() string { return g.name }

func (g *CFG) Blocks() []Block { return wrap(g.blocks) }

// Type returns the declared type of register id. Renamed registers inherit
// the type of the register they replace.
func (g *CFG) Type(id ptx.RegisterID) ptx.DataType { return g.types[id] }

// Origin returns the kernel register that the SSA name id was created for.
func (g *CFG) Origin(id ptx.RegisterID) ptx.RegisterID {
	if o, ok := g.origin[id]; ok { return o }
	return id
}

func (g *CFG) Producer(b Block, r Register) (Block, error) {
	if b == nil { return nil, ErrUnknownLabel }
	if own, ok := b.(*block); !ok || own.index >= len(g.blocks) || g.blocks[own.index] != own {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownLabel, b.Label())
	}
	p, ok := g.defs[r.ID]
	if !ok { return nil, fmt.Errorf("%w: %s", ErrNoProducer, r) }
	return p, nil
}

// collectDefs records the first block defining each register.
func (g *CFG) collectDefs() {
	g.defs = make(map[ptx.RegisterID]*block)
	record := func(id ptx.RegisterID, b *block) {
		if _, ok := g.defs[id]; !ok { g.defs[id] = b }
	}
	for _, b := range g.blocks {
		for _, phi := range b.phis {
			record(phi.D.ID, b)
		}
		for _, inst := range b.instructions {
			for _, d := range inst.Defs() {
				record(d.Reg, b)
			}
		}
	}
}

// Dump writes a readable listing of the graph, including phis once the
// graph is in SSA form.
func (g *CFG) Dump(w io.Writer) {
	fmt.Fprintf(w, "kernel %s\n", g.name)
	for _, b := range g.blocks {
		fmt.Fprintf(w, "%s:", b.label)
		if len(b.preds) > 0 {
			names := make([]string, len(b.preds))
			for i, p := range b.preds {
				names[i] = p.label
			}
			fmt.Fprintf(w, "\t\t; preds = %s", strings.Join(names, ", "))
		}
		fmt.Fprintln(w)
		for _, phi := range b.phis {
			srcs := make([]string, len(phi.S))
			for i, s := range phi.S {
				srcs[i] = fmt.Sprintf("[%s, %s]", s, b.preds[i].label)
			}
			fmt.Fprintf(w, "\t%s = phi.%s %s\n", phi.D, phi.D.Type, strings.Join(srcs, " "))
		}
		for _, inst := range b.instructions {
			fmt.Fprintf(w, "\t%s", inst)
			if inst.Guarded() && len(inst.Defs()) > 0 && inst.Defs()[0].Prior != nil {
				fmt.Fprintf(w, "\t; prior %%r%d", *inst.Defs()[0].Prior)
			}
			fmt.Fprintln(w)
		}
	}
}
