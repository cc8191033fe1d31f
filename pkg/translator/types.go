package translator

import (
	"github.com/xplshn/ptxlower/pkg/ir"
	"github.com/xplshn/ptxlower/pkg/ptx"
)

// translateType maps a source data type to its target primitive. f16 is
// carried as an opaque 16-bit integer.
func translateType(t ptx.DataType) (ir.Primitive, error) {
	switch t {
	case ptx.Predicate: return ir.I1, nil
	case ptx.B8, ptx.U8, ptx.S8: return ir.I8, nil
	case ptx.B16, ptx.U16, ptx.S16, ptx.F16: return ir.I16, nil
	case ptx.B32, ptx.U32, ptx.S32: return ir.I32, nil
	case ptx.B64, ptx.U64, ptx.S64: return ir.I64, nil
	case ptx.F32: return ir.F32, nil
	case ptx.F64: return ir.F64, nil
	}
	return ir.PrimInvalid, unsupported("data type %s", t)
}

// widen returns the next larger primitive of the same family.
func widen(p ir.Primitive) (ir.Primitive, error) {
	switch p {
	case ir.I8: return ir.I16, nil
	case ir.I16: return ir.I32, nil
	case ir.I32: return ir.I64, nil
	case ir.F32: return ir.F64, nil
	case ir.F64: return ir.F128, nil
	}
	return ir.PrimInvalid, unsupported("widening %s", p)
}

// typeOf is translateType as an element type. Failures are recorded on ctx.
func (ctx *Context) typeOf(t ptx.DataType) ir.Type {
	p, err := translateType(t)
	if err != nil {
		ctx.fail(err)
		return ir.Elem(ir.I32)
	}
	return ir.Elem(p)
}

func (ctx *Context) widened(t ir.Type) ir.Type {
	p, err := widen(t.Primitive)
	if err != nil {
		ctx.fail(err)
		return t
	}
	return ir.Elem(p)
}

// isFloat is true for the source float types that have a float target
// primitive. f16 is not one of them.
func isFloat(t ptx.DataType) bool { return t == ptx.F32 || t == ptx.F64 }
