// Package dataflow builds the control-flow graph of a kernel and converts it
// to SSA form. The translator only sees the Graph and Block interfaces.
package dataflow

import (
	"errors"
	"fmt"

	"github.com/xplshn/ptxlower/pkg/ptx"
)

var (
	ErrNoProducer   = errors.New("register has no producer")
	ErrUnknownLabel = errors.New("unknown block")
)

// Register is a typed virtual register.
type Register struct {
	ID   ptx.RegisterID
	Type ptx.DataType
}

func (r Register) String() string { return fmt.Sprintf("%%r%d", r.ID) }

// Phi merges one source per predecessor. S is aligned with the Predecessors
// of the block that owns the phi.
type Phi struct {
	D Register
	S []Register
}

type Block interface {
	Label() string
	Instructions() []*ptx.Instruction
	Phis() []Phi
	Predecessors() []Block
	Targets() []Block
	// Fallthrough returns nil when control cannot fall into the next block.
	Fallthrough() Block
}

type Graph interface {
	ToSSA() error
	// Blocks lists the blocks in layout order.
	Blocks() []Block
	// Producer returns the block defining r as seen from b, or ErrNoProducer.
	Producer(b Block, r Register) (Block, error)
}
