package translator

import (
	"fmt"

	"github.com/xplshn/ptxlower/pkg/dataflow"
	"github.com/xplshn/ptxlower/pkg/ir"
	"github.com/xplshn/ptxlower/pkg/ptx"
)

// translateBlocks lowers every block of the graph in layout order. Each
// source block becomes exactly one target block with the same label.
func (ctx *Context) translateBlocks() {
	for _, b := range ctx.graph.Blocks() {
		ctx.srcBlock = b
		ctx.startBlock(b.Label())
		ctx.translatePhis(b)
		for _, inst := range b.Instructions() {
			if ctx.err != nil { return }
			ctx.lower(inst)
		}
		if ctx.err != nil { return }
		ctx.endBlock(b)
	}
	ctx.srcBlock = nil
}

func (ctx *Context) translatePhis(b dataflow.Block) {
	preds := b.Predecessors()
	for _, phi := range b.Phis() {
		if len(phi.S) != len(preds) {
			ctx.fail(fmt.Errorf("%w: phi for %s in '%s' has %d sources for %d predecessors",
				ErrInvalidInstruction, phi.D, b.Label(), len(phi.S), len(preds)))
			return
		}
		inst := &ir.Instruction{Op: ir.OpPhi, D: ctx.register(phi.D.ID, phi.D.Type)}
		for i, s := range phi.S {
			src := dataflow.Register{ID: s.ID, Type: phi.D.Type}
			ctx.requireProducer(src)
			inst.Incoming = append(inst.Incoming, ir.Incoming{
				Value: ctx.register(s.ID, phi.D.Type),
				Label: preds[i].Label(),
			})
		}
		ctx.addInstr(inst)
	}
}

// endBlock closes a block the source left open: it falls through when it
// can and returns zero otherwise.
func (ctx *Context) endBlock(b dataflow.Block) {
	if len(b.Targets()) > 0 && ctx.block.Terminated() { return }
	if f := b.Fallthrough(); f != nil {
		ctx.addInstr(&ir.Instruction{Op: ir.OpBr, Label: f.Label()})
		return
	}
	if ctx.block.EndsWithRet() { return }
	ctx.fail(ctx.yield(0))
}

// lowerBra branches to the block's first target when the guard holds and
// to its fallthrough otherwise. A negated guard swaps the two.
func (ctx *Context) lowerBra(inst *ptx.Instruction) error {
	taken := inst.D.Identifier
	if ts := ctx.srcBlock.Targets(); len(ts) > 0 { taken = ts[0].Label() }
	next := taken
	if f := ctx.srcBlock.Fallthrough(); f != nil { next = f.Label() }
	if inst.PG.Condition == ptx.InvPred { taken, next = next, taken }
	ctx.addInstr(&ir.Instruction{Op: ir.OpBr, A: ctx.guard(inst.PG), Label: taken, False: next})
	return nil
}

// lowerBar suspends the thread. The runtime resumes it at the instruction
// after the barrier once every thread of the CTA has arrived.
func (ctx *Context) lowerBar(inst *ptx.Instruction) error {
	if inst.Guarded() { return unsupported("predicated bar") }
	id := ctx.nextContinuation()
	ctx.diagnose(DiagBarrier, "barrier yields continuation %d", id)
	return ctx.yield(id)
}

// lowerExit ends the thread with continuation 0 whatever its guard.
func (ctx *Context) lowerExit(*ptx.Instruction) error { return ctx.yield(0) }
