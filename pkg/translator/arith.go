package translator

import (
	"fmt"

	"github.com/xplshn/ptxlower/pkg/ir"
	"github.com/xplshn/ptxlower/pkg/ptx"
)

// operands lowers A and B as values of the instruction type.
func (ctx *Context) operands(inst *ptx.Instruction) (ir.Type, ir.Operand, ir.Operand) {
	t := ctx.typeOf(inst.Type)
	return t, ctx.source(inst.A, t), ctx.source(inst.B, t)
}

// finish computes the final value of inst straight into its destination and
// runs the epilogue.
func (ctx *Context) finish(inst *ptx.Instruction, op ir.Op, a, b ir.Operand) {
	d := ctx.destination(inst, inst.D)
	ctx.emitTo(d, op, a, b)
	ctx.epilogue(inst, inst.D, d)
}

func (ctx *Context) lowerAbs(inst *ptx.Instruction) error {
	t := ctx.typeOf(inst.Type)
	a := ctx.source(inst.A, t)
	zero := ir.Zero(t)
	var negative, negated ir.Operand
	if isFloat(inst.Type) {
		negative = ctx.compare(ir.OpFCmp, ir.Olt, a, zero)
		negated = ctx.binary(ir.OpFSub, zero, a)
	} else {
		negative = ctx.compare(ir.OpICmp, ir.Slt, a, zero)
		negated = ctx.binary(ir.OpSub, zero, a)
	}
	d := ctx.destination(inst, inst.D)
	ctx.selectTo(d, negative, negated, a)
	ctx.epilogue(inst, inst.D, d)
	return nil
}

func (ctx *Context) lowerNeg(inst *ptx.Instruction) error {
	t := ctx.typeOf(inst.Type)
	op := ir.OpSub
	if isFloat(inst.Type) { op = ir.OpFSub }
	ctx.finish(inst, op, ir.Zero(t), ctx.source(inst.A, t))
	return nil
}

func (ctx *Context) lowerNot(inst *ptx.Instruction) error {
	t := ctx.typeOf(inst.Type)
	ctx.finish(inst, ir.OpXor, ctx.source(inst.A, t), ir.ConstInt(t.Primitive, -1))
	return nil
}

func (ctx *Context) lowerCNot(inst *ptx.Instruction) error {
	t := ctx.typeOf(inst.Type)
	isZero := ctx.compare(ir.OpICmp, ir.Eq, ctx.source(inst.A, t), ir.Zero(t))
	d := ctx.destination(inst, inst.D)
	ctx.selectTo(d, isZero, ir.ConstInt(t.Primitive, 1), ir.Zero(t))
	ctx.epilogue(inst, inst.D, d)
	return nil
}

func (ctx *Context) lowerAdd(inst *ptx.Instruction) error {
	return ctx.lowerAddSub(inst, ir.OpAdd, ir.OpFAdd)
}

func (ctx *Context) lowerSub(inst *ptx.Instruction) error {
	return ctx.lowerAddSub(inst, ir.OpSub, ir.OpFSub)
}

func (ctx *Context) lowerAddSub(inst *ptx.Instruction, intOp, floatOp ir.Op) error {
	if !isFloat(inst.Type) {
		if inst.Modifier.Has(ptx.ModSat) { return unsupported("%s.sat on integers", inst.Opcode) }
		if inst.Modifier.Has(ptx.ModCarry) { return ctx.lowerCarry(inst, intOp, false) }
		_, a, b := ctx.operands(inst)
		ctx.finish(inst, intOp, a, b)
		return nil
	}
	_, a, b := ctx.operands(inst)
	if !inst.Modifier.Has(ptx.ModSat) {
		ctx.finish(inst, floatOp, a, b)
		return nil
	}
	d := ctx.destination(inst, inst.D)
	ctx.saturate(d, ctx.binary(floatOp, a, b))
	ctx.epilogue(inst, inst.D, d)
	return nil
}

// saturate clamps v into [0, 1] and leaves the result in d.
func (ctx *Context) saturate(d, v ir.Operand) {
	zero := ir.Zero(v.Type)
	low := ctx.compare(ir.OpFCmp, ir.UleF, v, zero)
	if !ctx.opts.clampSat {
		ctx.selectTo(d, low, zero, v)
		return
	}
	clamped := ctx.selectValue(low, zero, v)
	one := ir.ConstFloat(v.Type.Primitive, 1)
	high := ctx.compare(ir.OpFCmp, ir.Ogt, clamped, one)
	ctx.selectTo(d, high, one, clamped)
}

func (ctx *Context) lowerAddC(inst *ptx.Instruction) error { return ctx.lowerCarry(inst, ir.OpAdd, true) }
func (ctx *Context) lowerSubC(inst *ptx.Instruction) error { return ctx.lowerCarry(inst, ir.OpSub, true) }

// lowerCarry computes a + b (or a - b) one size wider than the instruction
// type so the carry bit survives. carryIn adds the most recent carry-out;
// the cc modifier publishes a new one.
func (ctx *Context) lowerCarry(inst *ptx.Instruction, op ir.Op, carryIn bool) error {
	if carryIn && ctx.lastCC.Name == "" {
		return fmt.Errorf("%w: %s without a preceding carry-out", ErrInvalidInstruction, inst.Opcode)
	}
	t, a, b := ctx.operands(inst)
	wide := ctx.widened(t)
	signed := inst.Type.IsSigned()
	sum := ctx.binary(op, ctx.extend(a, wide, signed), ctx.extend(b, wide, signed))
	if carryIn {
		sum = ctx.binary(op, sum, ctx.resize(ctx.lastCC, wide))
	}

	d := ctx.destination(inst, inst.D)
	ctx.emitTo(d, ir.OpTrunc, sum, ir.Operand{})
	ctx.epilogue(inst, inst.D, d)

	if !inst.Modifier.Has(ptx.ModCarry) { return nil }
	shifted := ctx.binary(ir.OpLShr, sum, ir.ConstInt(wide.Primitive, int64(t.Primitive.Bits())))
	one := ir.ConstInt(wide.Primitive, 1)
	cc := ctx.newCC()
	switch {
	case inst.Guarded():
		old := ctx.lastCC
		if old.Name == "" { old = ir.ConstInt(ir.I64, 0) }
		ctx.guardedTo(inst, cc, ctx.resize(ctx.binary(ir.OpAnd, shifted, one), cc.Type), old)
	case wide.Equal(cc.Type):
		ctx.emitTo(cc, ir.OpAnd, shifted, one)
	default:
		ctx.emitTo(cc, ir.OpZExt, ctx.binary(ir.OpAnd, shifted, one), ir.Operand{})
	}
	ctx.lastCC = cc
	return nil
}

// extend sign- or zero-extends v to t. Values already of type t pass
// through.
func (ctx *Context) extend(v ir.Operand, t ir.Type, signed bool) ir.Operand {
	if v.Type.Equal(t) { return v }
	if v.Constant { return ir.ConstInt(t.Primitive, v.Int) }
	if signed { return ctx.cast(ir.OpSExt, v, t) }
	return ctx.cast(ir.OpZExt, v, t)
}

func (ctx *Context) lowerMul(inst *ptx.Instruction) error {
	if isFloat(inst.Type) {
		if inst.Modifier.Has(ptx.ModSat) { return unsupported("mul.sat on floats") }
		if r := inst.Modifier.Rounding(); r != 0 {
			ctx.callVoid("@setRoundingMode", i32(int(r)))
		}
		_, a, b := ctx.operands(inst)
		ctx.finish(inst, ir.OpFMul, a, b)
		return nil
	}
	return ctx.lowerIntMul(inst, false)
}

func (ctx *Context) lowerMul24(inst *ptx.Instruction) error {
	if inst.Modifier.Has(ptx.ModHi) { return unsupported("mul24.hi") }
	_, a, b := ctx.operands(inst)
	ctx.finish(inst, ir.OpMul, a, b)
	return nil
}

func (ctx *Context) lowerMad(inst *ptx.Instruction) error {
	if isFloat(inst.Type) { return ctx.lowerFloatMad(inst) }
	return ctx.lowerIntMul(inst, true)
}

func (ctx *Context) lowerMad24(inst *ptx.Instruction) error {
	if inst.Modifier.Has(ptx.ModHi) { return unsupported("mad24.hi") }
	return ctx.lowerIntMul(inst, true)
}

// lowerIntMul handles the integer mul and mad family. Operands are
// extended to twice the instruction width, so wide keeps the full product,
// hi keeps its upper half and lo truncates.
func (ctx *Context) lowerIntMul(inst *ptx.Instruction, accumulate bool) error {
	hi := inst.Modifier.Has(ptx.ModHi)
	wideMode := inst.Modifier.Has(ptx.ModWide)
	if hi && !ctx.opts.mulHi { return unsupported("%s.hi", inst.Opcode) }
	if hi && wideMode { return unsupported("%s.hi.wide", inst.Opcode) }

	t, a, b := ctx.operands(inst)
	if !hi && !wideMode && !accumulate {
		ctx.finish(inst, ir.OpMul, a, b)
		return nil
	}

	signed := inst.Type.IsSigned()
	wide := ctx.widened(t)
	aw, bw := ctx.extend(a, wide, signed), ctx.extend(b, wide, signed)
	if wideMode && !accumulate {
		ctx.finish(inst, ir.OpMul, aw, bw)
		return nil
	}
	product := ctx.binary(ir.OpMul, aw, bw)

	finalOp, finalA, finalB := ir.OpTrunc, product, ir.Operand{}
	if accumulate {
		cType := t
		if wideMode { cType = wide }
		c := ctx.extend(ctx.source(inst.C, cType), wide, signed)
		if wideMode {
			finalOp, finalA, finalB = ir.OpAdd, product, c
		} else {
			finalA = ctx.binary(ir.OpAdd, product, c)
		}
	}

	if hi {
		shift := ir.OpLShr
		if signed { shift = ir.OpAShr }
		finalA = ctx.binary(shift, finalA, ir.ConstInt(wide.Primitive, int64(t.Primitive.Bits())))
		finalOp, finalB = ir.OpTrunc, ir.Operand{}
	}

	d := ctx.destination(inst, inst.D)
	ctx.emitTo(d, finalOp, finalA, finalB)
	ctx.epilogue(inst, inst.D, d)
	return nil
}

// lowerFloatMad evaluates a * b + c at double the precision and rounds
// once. It approximates a fused multiply-add.
func (ctx *Context) lowerFloatMad(inst *ptx.Instruction) error {
	if inst.Modifier.Has(ptx.ModSat) { return unsupported("mad.sat on floats") }
	t, a, b := ctx.operands(inst)
	wide := ctx.widened(t)
	c := ctx.source(inst.C, t)
	product := ctx.binary(ir.OpFMul, ctx.cast(ir.OpFPExt, a, wide), ctx.cast(ir.OpFPExt, b, wide))
	sum := ctx.binary(ir.OpFAdd, product, ctx.cast(ir.OpFPExt, c, wide))
	d := ctx.destination(inst, inst.D)
	ctx.emitTo(d, ir.OpFPTrunc, sum, ir.Operand{})
	ctx.epilogue(inst, inst.D, d)
	ctx.diagnose(DiagApproxMad, "mad.%s is evaluated as %s multiply and add", inst.Type, wide)
	return nil
}

func (ctx *Context) lowerDiv(inst *ptx.Instruction) error {
	_, a, b := ctx.operands(inst)
	switch {
	case isFloat(inst.Type): ctx.finish(inst, ir.OpFDiv, a, b)
	case inst.Type.IsSigned(): ctx.finish(inst, ir.OpSDiv, a, b)
	default: ctx.finish(inst, ir.OpUDiv, a, b)
	}
	return nil
}

func (ctx *Context) lowerRem(inst *ptx.Instruction) error {
	if isFloat(inst.Type) { return unsupported("rem on floats") }
	_, a, b := ctx.operands(inst)
	if inst.Type.IsSigned() {
		ctx.finish(inst, ir.OpSRem, a, b)
	} else {
		ctx.finish(inst, ir.OpURem, a, b)
	}
	return nil
}

func (ctx *Context) lowerRcp(inst *ptx.Instruction) error {
	if !isFloat(inst.Type) { return unsupported("rcp.%s", inst.Type) }
	t := ctx.typeOf(inst.Type)
	ctx.finish(inst, ir.OpFDiv, ir.ConstFloat(t.Primitive, 1), ctx.source(inst.A, t))
	return nil
}

func (ctx *Context) lowerMin(inst *ptx.Instruction) error {
	return ctx.lowerMinMax(inst, ir.Olt, ir.Slt, ir.Ult)
}

func (ctx *Context) lowerMax(inst *ptx.Instruction) error {
	return ctx.lowerMinMax(inst, ir.Ogt, ir.Sgt, ir.Ugt)
}

func (ctx *Context) lowerMinMax(inst *ptx.Instruction, float, signed, unsigned ir.Predicate) error {
	_, a, b := ctx.operands(inst)
	var pick ir.Operand
	switch {
	case isFloat(inst.Type): pick = ctx.compare(ir.OpFCmp, float, a, b)
	case inst.Type.IsSigned(): pick = ctx.compare(ir.OpICmp, signed, a, b)
	default: pick = ctx.compare(ir.OpICmp, unsigned, a, b)
	}
	d := ctx.destination(inst, inst.D)
	ctx.selectTo(d, pick, a, b)
	ctx.epilogue(inst, inst.D, d)
	return nil
}

// lowerSad computes c + |a - b|.
func (ctx *Context) lowerSad(inst *ptx.Instruction) error {
	if isFloat(inst.Type) { return unsupported("sad on floats") }
	t, a, b := ctx.operands(inst)
	less := ir.Ult
	if inst.Type.IsSigned() { less = ir.Slt }
	lt := ctx.compare(ir.OpICmp, less, a, b)
	ba := ctx.binary(ir.OpSub, b, a)
	ab := ctx.binary(ir.OpSub, a, b)
	diff := ctx.selectValue(lt, ba, ab)
	ctx.finish(inst, ir.OpAdd, diff, ctx.source(inst.C, t))
	return nil
}

func (ctx *Context) lowerAnd(inst *ptx.Instruction) error { return ctx.lowerBitwise(inst, ir.OpAnd) }
func (ctx *Context) lowerOr(inst *ptx.Instruction) error  { return ctx.lowerBitwise(inst, ir.OpOr) }
func (ctx *Context) lowerXor(inst *ptx.Instruction) error { return ctx.lowerBitwise(inst, ir.OpXor) }

func (ctx *Context) lowerBitwise(inst *ptx.Instruction, op ir.Op) error {
	_, a, b := ctx.operands(inst)
	ctx.finish(inst, op, a, b)
	return nil
}

func (ctx *Context) lowerShl(inst *ptx.Instruction) error { return ctx.lowerShift(inst, ir.OpShl) }

// lowerShr shifts arithmetically for signed types only.
func (ctx *Context) lowerShr(inst *ptx.Instruction) error {
	if inst.Type.IsSigned() { return ctx.lowerShift(inst, ir.OpAShr) }
	return ctx.lowerShift(inst, ir.OpLShr)
}

// lowerShift brings the shift amount, a 32-bit value, to the width of the
// shifted operand.
func (ctx *Context) lowerShift(inst *ptx.Instruction, op ir.Op) error {
	t := ctx.typeOf(inst.Type)
	a := ctx.source(inst.A, t)
	amount := ctx.operand(inst.B)
	if ctx.err == nil && !amount.Type.Equal(t) { amount = ctx.resize(amount, t) }
	ctx.finish(inst, op, a, amount)
	return nil
}
