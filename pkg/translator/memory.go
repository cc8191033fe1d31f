package translator

import (
	"github.com/xplshn/ptxlower/pkg/ir"
	"github.com/xplshn/ptxlower/pkg/ptx"
)

// address turns the address operand of a ld or st into a pointer to t.
// Symbols go through the memory base of the instruction's space; registers
// are offset and cast.
func (ctx *Context) address(inst *ptx.Instruction, op ptx.Operand, vec int) ir.Operand {
	if op.Mode == ptx.Address {
		return ctx.translateOperand(op, inst.Space, vec)
	}
	addr := ctx.operand(op)
	if op.Offset != 0 && ctx.err == nil {
		addr = ctx.binary(ir.OpAdd, addr, ir.ConstInt(addr.Type.Primitive, op.Offset))
	}
	return ctx.cast(ir.OpIntToPtr, addr, ctx.pointerTo(inst.Type, vec))
}

func (ctx *Context) lowerLd(inst *ptx.Instruction) error {
	vec := inst.D.Width()
	ptr := ctx.address(inst, inst.A, vec)
	if inst.Volatile { ctx.diagnose(DiagVolatile, "volatile load from %s", inst.A) }
	load := &ir.Instruction{Op: ir.OpLoad, A: ptr, Align: inst.D.Bytes(), Volatile: inst.Volatile}

	if vec == 1 {
		load.D = ctx.destination(inst, inst.D)
		ctx.addInstr(load)
		ctx.epilogue(inst, inst.D, load.D)
		return nil
	}

	load.D = ctx.newTemp(ir.Vec(ctx.typeOf(inst.Type).Primitive, vec))
	ctx.addInstr(load)
	for i, lane := range inst.D.Array {
		d := ctx.destination(inst, lane)
		ctx.addInstr(&ir.Instruction{Op: ir.OpExtractElement, D: d, A: load.D, B: i32(i)})
		ctx.epilogue(inst, lane, d)
	}
	return nil
}

// lowerSt stores A through the address in D. Vector sources are packed
// lane by lane.
func (ctx *Context) lowerSt(inst *ptx.Instruction) error {
	if inst.Guarded() { return unsupported("predicated st") }
	vec := inst.A.Width()
	t := ctx.typeOf(inst.Type)
	ptr := ctx.address(inst, inst.D, vec)

	var value ir.Operand
	if vec == 1 {
		value = ctx.source(inst.A, t)
	} else {
		value = ir.Undef(ir.Vec(t.Primitive, vec))
		for i, lane := range inst.A.Array {
			next := ctx.newTemp(value.Type)
			ctx.addInstr(&ir.Instruction{Op: ir.OpInsertElement, D: next, A: value, B: ctx.source(lane, t), C: i32(i)})
			value = next
		}
	}
	if inst.Volatile { ctx.diagnose(DiagVolatile, "volatile store to %s", inst.D) }
	ctx.addInstr(&ir.Instruction{Op: ir.OpStore, A: value, B: ptr, Align: inst.A.Bytes(), Volatile: inst.Volatile})
	return nil
}

// atomicAddress reduces the address operand of atom and red to an i64.
func (ctx *Context) atomicAddress(inst *ptx.Instruction) ir.Operand {
	a := ctx.translateOperand(inst.A, inst.Space, 1)
	switch {
	case ctx.err != nil:
		return a
	case a.Type.IsPointer():
		return ctx.cast(ir.OpPtrToInt, a, ir.Elem(ir.I64))
	case inst.A.Offset != 0:
		a = ctx.binary(ir.OpAdd, a, ir.ConstInt(a.Type.Primitive, inst.A.Offset))
	}
	if a.Type.Primitive != ir.I64 { return ctx.extend(a, ir.Elem(ir.I64), false) }
	return a
}

func (ctx *Context) atomicArgs(inst *ptx.Instruction) []ir.Operand {
	t := ctx.typeOf(inst.Type)
	args := []ir.Operand{i32(int(inst.Space)), i32(int(inst.Atomic)), ctx.atomicAddress(inst), ctx.source(inst.B, t)}
	if inst.Atomic == ptx.AtomCas { args = append(args, ctx.source(inst.C, t)) }
	return args
}

func (ctx *Context) lowerAtom(inst *ptx.Instruction) error {
	t := ctx.typeOf(inst.Type)
	name := "@atom." + t.Primitive.Suffix()
	if inst.Atomic == ptx.AtomCas { name = "@atom.cas." + t.Primitive.Suffix() }
	args := ctx.atomicArgs(inst)
	d := ctx.destination(inst, inst.D)
	ctx.callTo(d, name, t, args...)
	ctx.epilogue(inst, inst.D, d)
	return nil
}

func (ctx *Context) lowerRed(inst *ptx.Instruction) error {
	if inst.Guarded() { return unsupported("predicated red") }
	t := ctx.typeOf(inst.Type)
	ctx.callVoid("@reduction."+t.Primitive.Suffix(), ctx.atomicArgs(inst)...)
	return nil
}
