// Package translator lowers kernels of the virtual GPU instruction set to
// the target IR. A translation is a single pass over the SSA form of the
// kernel; predication becomes selects and barriers become numbered returns
// that an external scheduler resumes.
package translator

import (
	"fmt"

	"github.com/xplshn/ptxlower/pkg/dataflow"
	"github.com/xplshn/ptxlower/pkg/ir"
	"github.com/xplshn/ptxlower/pkg/ptx"
)

// InitLabel names the block that gives registers without a producer a
// defined value.
const InitLabel = "$ptxlower.init"

const functionPrefix = "@_Z_ptxlower_"

// Translate builds the graph of k and lowers it. See TranslateGraph.
func Translate(k *ptx.Kernel, opts ...Option) (*ir.Kernel, error) {
	g, err := buildGraph(k)
	if err != nil { return nil, err }
	return TranslateGraph(k.Name, g, opts...)
}

func buildGraph(k *ptx.Kernel) (*dataflow.CFG, error) {
	g, err := dataflow.Build(k)
	if err != nil { return nil, invalid(err) }
	return g, nil
}

// TranslateGraph lowers the kernel described by g. On error no kernel is
// returned; the partial output is discarded.
func TranslateGraph(name string, g dataflow.Graph, opts ...Option) (*ir.Kernel, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return translate(name, g, o)
}

func translate(name string, g dataflow.Graph, o options) (*ir.Kernel, error) {
	if err := g.ToSSA(); err != nil { return nil, fmt.Errorf("converting %s to SSA: %w", name, err) }
	if len(g.Blocks()) == 0 { return nil, fmt.Errorf("%w: kernel %s has no blocks", ErrInvalidInstruction, name) }

	ctx := newContext(name, g, o)
	ctx.kernel.Types = contextDecls()
	ctx.kernel.Function = ir.Function{
		Name:       functionPrefix + name,
		Return:     ir.Elem(ir.I32),
		Params:     []ir.Param{{Name: contextName, Type: contextPointer().Type, NoAlias: true}},
		Attributes: []string{"nounwind"},
	}
	if o.declareAll {
		for _, d := range fixedIntrinsics {
			ctx.declare(d.Name, d.Return, d.Params...)
		}
	}

	ctx.translateBlocks()
	if ctx.err != nil { return nil, fmt.Errorf("translating %s: %w", name, ctx.err) }
	ctx.initializeRegisters()
	if ctx.err != nil { return nil, fmt.Errorf("translating %s: %w", name, ctx.err) }

	if o.verify {
		if err := ctx.kernel.Validate(); err != nil { return nil, fmt.Errorf("translating %s: %w", name, invalid(err)) }
	}
	ctx.collectStats()
	return ctx.kernel, nil
}

// initializeRegisters prepends a block defining every register that was
// read without a producer, then branches to the kernel body.
func (ctx *Context) initializeRegisters() {
	if len(ctx.uninit) == 0 { return }
	body := ctx.kernel.Blocks
	ctx.kernel.Blocks = nil
	ctx.startBlock(InitLabel)
	for _, r := range ctx.uninit {
		d := ctx.register(r.ID, r.Type)
		ctx.selectTo(d, ir.ConstBool(true), ir.Zero(d.Type), ir.Zero(d.Type))
	}
	ctx.addInstr(&ir.Instruction{Op: ir.OpBr, Label: body[0].Label})
	ctx.kernel.Blocks = append(ctx.kernel.Blocks, body...)
}
