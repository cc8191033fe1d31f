package translator

import (
	"github.com/xplshn/ptxlower/pkg/ir"
	"github.com/xplshn/ptxlower/pkg/ptx"
)

var floatPredicates = map[ptx.CmpOp]ir.Predicate{
	ptx.CmpEq: ir.Oeq, ptx.CmpNe: ir.One,
	ptx.CmpLt: ir.Olt, ptx.CmpLo: ir.Olt,
	ptx.CmpLe: ir.Ole, ptx.CmpLs: ir.Ole,
	ptx.CmpGt: ir.Ogt, ptx.CmpHi: ir.Ogt,
	ptx.CmpGe: ir.Oge, ptx.CmpHs: ir.Oge,
	ptx.CmpEqu: ir.Ueq, ptx.CmpNeu: ir.Une,
	ptx.CmpLtu: ir.UltF, ptx.CmpLeu: ir.UleF,
	ptx.CmpGtu: ir.UgtF, ptx.CmpGeu: ir.UgeF,
	ptx.CmpNum: ir.Ord, ptx.CmpNan: ir.Uno,
}

var signedPredicates = map[ptx.CmpOp]ir.Predicate{
	ptx.CmpEq: ir.Eq, ptx.CmpNe: ir.Ne,
	ptx.CmpLt: ir.Slt, ptx.CmpLo: ir.Slt,
	ptx.CmpLe: ir.Sle, ptx.CmpLs: ir.Sle,
	ptx.CmpGt: ir.Sgt, ptx.CmpHi: ir.Sgt,
	ptx.CmpGe: ir.Sge, ptx.CmpHs: ir.Sge,
}

var unsignedPredicates = map[ptx.CmpOp]ir.Predicate{
	ptx.CmpEq: ir.Eq, ptx.CmpNe: ir.Ne,
	ptx.CmpLt: ir.Ult, ptx.CmpLo: ir.Ult,
	ptx.CmpLe: ir.Ule, ptx.CmpLs: ir.Ule,
	ptx.CmpGt: ir.Ugt, ptx.CmpHi: ir.Ugt,
	ptx.CmpGe: ir.Uge, ptx.CmpHs: ir.Uge,
}

// comparison picks the compare instruction and predicate for cmp over
// operands of type t. lo, ls, hi and hs always compare unsigned when
// unsigned comparisons are enabled.
func (ctx *Context) comparison(cmp ptx.CmpOp, t ptx.DataType) (ir.Op, ir.Predicate, error) {
	if isFloat(t) {
		if p, ok := floatPredicates[cmp]; ok { return ir.OpFCmp, p, nil }
		return ir.OpInvalid, ir.PredInvalid, unsupported("float comparison %s", cmp)
	}
	if t == ptx.F16 { return ir.OpInvalid, ir.PredInvalid, unsupported("f16 comparison") }
	table := signedPredicates
	if ctx.opts.unsignedCompare {
		switch cmp {
		case ptx.CmpLo, ptx.CmpLs, ptx.CmpHi, ptx.CmpHs:
			table = unsignedPredicates
		default:
			if t.IsUnsigned() || t == ptx.Predicate || (t >= ptx.B8 && t <= ptx.B64) {
				table = unsignedPredicates
			}
		}
	}
	if p, ok := table[cmp]; ok { return ir.OpICmp, p, nil }
	return ir.OpInvalid, ir.PredInvalid, unsupported("integer comparison %s", cmp)
}

// compareType is the type the operands of a set or setp are compared in.
func compareType(inst *ptx.Instruction) ptx.DataType {
	if inst.Opcode == ptx.OpSet && inst.A.Type.Valid() { return inst.A.Type }
	return inst.Type
}

// compareInto evaluates the comparison of inst into d.
func (ctx *Context) compareInto(inst *ptx.Instruction, d ir.Operand) error {
	ct := compareType(inst)
	op, pred, err := ctx.comparison(inst.Cmp, ct)
	if err != nil { return err }
	t := ctx.typeOf(ct)
	ctx.compareTo(d, op, pred, ctx.source(inst.A, t), ctx.source(inst.B, t))
	return nil
}

func boolOp(b ptx.BoolOp) ir.Op {
	switch b {
	case ptx.BoolAnd: return ir.OpAnd
	case ptx.BoolOr: return ir.OpOr
	default: return ir.OpXor
	}
}

// lowerSet writes all ones (1.0 for floats) into D when the comparison,
// optionally combined with C, holds and zero otherwise.
func (ctx *Context) lowerSet(inst *ptx.Instruction) error {
	result := ctx.newTemp(ir.Elem(ir.I1))
	if err := ctx.compareInto(inst, result); err != nil { return err }
	if inst.BoolOp != ptx.BoolNone {
		result = ctx.binary(boolOp(inst.BoolOp), result, ctx.predicate(inst.C))
	}

	dt := inst.D.Type
	t := ctx.typeOf(dt)
	yes, no := ir.ConstInt(t.Primitive, -1), ir.Zero(t)
	if isFloat(dt) { yes = ir.ConstFloat(t.Primitive, 1) }
	d := ctx.destination(inst, inst.D)
	ctx.selectTo(d, result, yes, no)
	ctx.epilogue(inst, inst.D, d)
	return nil
}

// lowerSetP writes the comparison to D and its negation to PQ, each
// combined with C when a boolean operator is present.
func (ctx *Context) lowerSetP(inst *ptx.Instruction) error {
	hasPQ := inst.PQ.Mode == ptx.Register
	d := ctx.destination(inst, inst.D)

	if inst.BoolOp == ptx.BoolNone {
		if err := ctx.compareInto(inst, d); err != nil { return err }
		ctx.epilogue(inst, inst.D, d)
		if hasPQ {
			q := ctx.destination(inst, inst.PQ)
			ctx.emitTo(q, ir.OpXor, d, ir.ConstBool(true))
			ctx.epilogue(inst, inst.PQ, q)
		}
		return nil
	}

	t := ctx.newTemp(ir.Elem(ir.I1))
	if err := ctx.compareInto(inst, t); err != nil { return err }
	c := ctx.predicate(inst.C)
	op := boolOp(inst.BoolOp)
	ctx.emitTo(d, op, c, t)
	ctx.epilogue(inst, inst.D, d)
	if hasPQ {
		notT := ctx.binary(ir.OpXor, t, ir.ConstBool(true))
		q := ctx.destination(inst, inst.PQ)
		ctx.emitTo(q, op, c, notT)
		ctx.epilogue(inst, inst.PQ, q)
	}
	return nil
}

func (ctx *Context) lowerSelP(inst *ptx.Instruction) error {
	_, a, b := ctx.operands(inst)
	d := ctx.destination(inst, inst.D)
	ctx.selectTo(d, ctx.predicate(inst.C), a, b)
	ctx.epilogue(inst, inst.D, d)
	return nil
}

// lowerSlct picks A when C >= 0 and B otherwise.
func (ctx *Context) lowerSlct(inst *ptx.Instruction) error {
	ct := inst.C.Type
	var pick ir.Operand
	switch {
	case isFloat(ct):
		c := ctx.source(inst.C, ctx.typeOf(ct))
		pick = ctx.compare(ir.OpFCmp, ir.Oge, c, ir.Zero(c.Type))
	case ct.IsSigned():
		c := ctx.source(inst.C, ctx.typeOf(ct))
		pick = ctx.compare(ir.OpICmp, ir.Sge, c, ir.Zero(c.Type))
	default:
		return unsupported("slct with a %s selector", ct)
	}
	_, a, b := ctx.operands(inst)
	d := ctx.destination(inst, inst.D)
	ctx.selectTo(d, pick, a, b)
	ctx.epilogue(inst, inst.D, d)
	return nil
}
