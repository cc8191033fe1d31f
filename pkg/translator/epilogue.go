package translator

import (
	"github.com/xplshn/ptxlower/pkg/ir"
	"github.com/xplshn/ptxlower/pkg/ptx"
)

// destination is where the lowering of inst computes the value of d. A
// guarded instruction computes into a temporary that the epilogue merges.
func (ctx *Context) destination(inst *ptx.Instruction, d ptx.Operand) ir.Operand {
	r := ctx.register(d.Reg, d.Type)
	if inst.Guarded() { return ctx.newTemp(r.Type) }
	return r
}

// prior is the value a guarded write of d leaves in place when the guard is
// false.
func (ctx *Context) prior(d ptx.Operand) ir.Operand {
	if d.Prior != nil { return ctx.register(*d.Prior, d.Type) }
	return ctx.register(d.Reg, d.Type)
}

// epilogue merges value into the register d under the guard of inst.
//
//	NPT      d = select false, prior, prior
//	Pred     d = select p, value, prior
//	InvPred  d = select p, prior, value
func (ctx *Context) epilogue(inst *ptx.Instruction, d ptx.Operand, value ir.Operand) {
	if !inst.Guarded() { return }
	dst := ctx.register(d.Reg, d.Type)
	old := ctx.prior(d)
	cond := ctx.guard(inst.PG)
	switch inst.PG.Condition {
	case ptx.NPT:
		ctx.selectTo(dst, cond, old, old)
	case ptx.Pred:
		ctx.selectTo(dst, cond, value, old)
	case ptx.InvPred:
		ctx.selectTo(dst, cond, old, value)
	}
}

// guardedTo merges value with old under the guard of inst into d. It is
// the epilogue for values that do not live in a source register.
func (ctx *Context) guardedTo(inst *ptx.Instruction, d, value, old ir.Operand) {
	cond := ctx.guard(inst.PG)
	switch inst.PG.Condition {
	case ptx.NPT: ctx.selectTo(d, cond, old, old)
	case ptx.InvPred: ctx.selectTo(d, cond, old, value)
	default: ctx.selectTo(d, cond, value, old)
	}
}
