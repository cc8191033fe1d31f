package translator

import (
	"fmt"

	"github.com/xplshn/ptxlower/pkg/ir"
	"github.com/xplshn/ptxlower/pkg/ptx"
)

func (ctx *Context) register(id ptx.RegisterID, t ptx.DataType) ir.Operand {
	return ir.Value(fmt.Sprintf("%%r%d", id), ctx.typeOf(t))
}

// translateOperand lowers a scalar source operand. Address operands resolve
// through the memory base of space when it has one, else to the global
// symbol itself.
func (ctx *Context) translateOperand(op ptx.Operand, space ptx.AddressSpace, vec int) ir.Operand {
	if op.IsVector() {
		ctx.fail(unsupported("vector operand %s in this position", op))
		return ir.Operand{}
	}
	switch op.Mode {
	case ptx.Register, ptx.Indirect:
		return ctx.register(op.Reg, op.Type)
	case ptx.Immediate:
		t := ctx.typeOf(op.Type)
		if isFloat(op.Type) { return ir.ConstFloat(t.Primitive, op.Float) }
		return ir.ConstInt(t.Primitive, int64(op.Imm))
	case ptx.Address:
		if base, ok := ctx.loadMemoryBase(space, op.Type, op.Offset, vec); ok { return base }
		return ctx.symbolAddress(op, vec)
	case ptx.Special:
		return ctx.loadSpecialRegister(op.Special)
	}
	ctx.fail(unsupported("%s operand", op.Mode))
	return ir.Operand{}
}

func (ctx *Context) operand(op ptx.Operand) ir.Operand { return ctx.translateOperand(op, ptx.SpaceNone, 1) }

// source lowers op for use as a value of type t. Constants are retyped and
// special registers are resized, since both carry a fixed type of their own.
func (ctx *Context) source(op ptx.Operand, t ir.Type) ir.Operand {
	v := ctx.operand(op)
	if ctx.err != nil || v.Type.Equal(t) { return v }
	switch {
	case v.Constant && t.IsFloat() && v.Type.IsFloat():
		return ir.ConstFloat(t.Primitive, v.Float)
	case v.Constant && t.IsFloat():
		return ir.ConstFloat(t.Primitive, float64(v.Int))
	case v.Constant && t.IsInt() && v.Type.IsInt():
		if v.Type.Primitive == ir.I1 && v.Bool { return ir.ConstInt(t.Primitive, 1) }
		return ir.ConstInt(t.Primitive, v.Int)
	case op.Mode == ptx.Special && t.IsInt():
		return ctx.resize(v, t)
	}
	return v
}

// resize zero-extends or truncates an integer value to t.
func (ctx *Context) resize(v ir.Operand, t ir.Type) ir.Operand {
	switch {
	case v.Type.Equal(t): return v
	case v.Constant: return ir.ConstInt(t.Primitive, v.Int)
	case v.Type.Primitive.Bits() < t.Primitive.Bits(): return ctx.cast(ir.OpZExt, v, t)
	default: return ctx.cast(ir.OpTrunc, v, t)
	}
}

// symbolAddress is the fallback for address operands outside the context
// spaces: the symbol is used directly, offset in bytes when needed.
func (ctx *Context) symbolAddress(op ptx.Operand, vec int) ir.Operand {
	ptr := ir.Value("@"+op.Identifier, ctx.pointerTo(op.Type, vec))
	if op.Offset == 0 { return ptr }
	raw := ctx.cast(ir.OpBitcast, ptr, ir.Ptr(ir.I8))
	moved := ctx.newTemp(ir.Ptr(ir.I8))
	ctx.addInstr(&ir.Instruction{Op: ir.OpGetElementPtr, D: moved, A: raw, Args: []ir.Operand{ir.ConstInt(ir.I64, op.Offset)}})
	return ctx.cast(ir.OpBitcast, moved, ptr.Type)
}

func (ctx *Context) pointerTo(t ptx.DataType, vec int) ir.Type {
	p := ctx.typeOf(t).Primitive
	if vec > 1 { return ir.VecPtr(p, vec) }
	return ir.Ptr(p)
}

// guard returns the i1 value a predicated instruction is conditioned on.
func (ctx *Context) guard(pg ptx.Operand) ir.Operand {
	switch pg.Condition {
	case ptx.PT: return ir.ConstBool(true)
	case ptx.NPT: return ir.ConstBool(false)
	}
	return ctx.register(pg.Reg, ptx.Predicate)
}

// predicate lowers a predicate source operand, negating it when it is
// written with a leading '!'.
func (ctx *Context) predicate(op ptx.Operand) ir.Operand {
	v := ctx.operand(op)
	if op.Condition == ptx.InvPred { return ctx.binary(ir.OpXor, v, ir.ConstBool(true)) }
	return v
}
