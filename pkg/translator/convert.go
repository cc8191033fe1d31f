package translator

import (
	"github.com/xplshn/ptxlower/pkg/ir"
	"github.com/xplshn/ptxlower/pkg/ptx"
)

// sourceType is the type an operand is read as. Special registers read as
// u16, the clock as u32.
func sourceType(op ptx.Operand) ptx.DataType {
	if op.Mode == ptx.Special {
		if op.Special == ptx.Clock { return ptx.U32 }
		return ptx.U16
	}
	return op.Type
}

// conversion picks the cast from one source type to another.
func conversion(from, to ptx.DataType) (ir.Op, error) {
	if from == ptx.F16 || to == ptx.F16 {
		if from == to { return ir.OpBitcast, nil }
		return ir.OpInvalid, unsupported("conversion from %s to %s", from, to)
	}
	fromBits, toBits := from.Bits(), to.Bits()
	switch {
	case isFloat(from) && isFloat(to):
		switch {
		case fromBits < toBits: return ir.OpFPExt, nil
		case fromBits > toBits: return ir.OpFPTrunc, nil
		}
		return ir.OpBitcast, nil
	case isFloat(from):
		if to.IsSigned() { return ir.OpFPToSI, nil }
		return ir.OpFPToUI, nil
	case isFloat(to):
		if from.IsSigned() { return ir.OpSIToFP, nil }
		return ir.OpUIToFP, nil
	}
	switch {
	case fromBits < toBits:
		if from.IsSigned() { return ir.OpSExt, nil }
		return ir.OpZExt, nil
	case fromBits > toBits:
		return ir.OpTrunc, nil
	}
	return ir.OpBitcast, nil
}

func (ctx *Context) lowerCvt(inst *ptx.Instruction) error {
	from := sourceType(inst.A)
	op, err := conversion(from, inst.Type)
	if err != nil { return err }
	a := ctx.source(inst.A, ctx.typeOf(from))
	ctx.finish(inst, op, a, ir.Operand{})
	return nil
}

// lowerMov copies A into D. Addresses become integers; moves between types
// behave like cvt.
func (ctx *Context) lowerMov(inst *ptx.Instruction) error {
	if inst.A.IsVector() || inst.D.IsVector() { return unsupported("vector mov") }
	if inst.A.Mode == ptx.Address {
		ptr := ctx.operand(inst.A)
		ctx.finish(inst, ir.OpPtrToInt, ptr, ir.Operand{})
		return nil
	}
	if sourceType(inst.A) == inst.Type {
		ctx.finish(inst, ir.OpBitcast, ctx.source(inst.A, ctx.typeOf(inst.Type)), ir.Operand{})
		return nil
	}
	return ctx.lowerCvt(inst)
}
