package translator

import (
	"github.com/xplshn/ptxlower/pkg/ir"
)

func (ctx *Context) emitTo(d ir.Operand, op ir.Op, a, b ir.Operand) ir.Operand {
	ctx.addInstr(&ir.Instruction{Op: op, D: d, A: a, B: b})
	return d
}

func (ctx *Context) binary(op ir.Op, a, b ir.Operand) ir.Operand {
	return ctx.emitTo(ctx.newTemp(a.Type), op, a, b)
}

func (ctx *Context) cast(op ir.Op, a ir.Operand, to ir.Type) ir.Operand {
	return ctx.emitTo(ctx.newTemp(to), op, a, ir.Operand{})
}

func (ctx *Context) compareTo(d ir.Operand, op ir.Op, pred ir.Predicate, a, b ir.Operand) ir.Operand {
	ctx.addInstr(&ir.Instruction{Op: op, Predicate: pred, D: d, A: a, B: b})
	return d
}

func (ctx *Context) compare(op ir.Op, pred ir.Predicate, a, b ir.Operand) ir.Operand {
	return ctx.compareTo(ctx.newTemp(ir.Elem(ir.I1)), op, pred, a, b)
}

func (ctx *Context) selectTo(d, cond, x, y ir.Operand) ir.Operand {
	ctx.addInstr(&ir.Instruction{Op: ir.OpSelect, D: d, A: cond, B: x, C: y})
	return d
}

func (ctx *Context) selectValue(cond, x, y ir.Operand) ir.Operand {
	return ctx.selectTo(ctx.newTemp(x.Type), cond, x, y)
}

// callTo emits a call of an external function and declares it. A void call
// passes a zero d.
func (ctx *Context) callTo(d ir.Operand, name string, ret ir.Type, args ...ir.Operand) ir.Operand {
	params := make([]ir.Type, len(args))
	for i, a := range args {
		params[i] = a.Type
	}
	ctx.declare(name, ret, params...)
	ctx.addInstr(&ir.Instruction{Op: ir.OpCall, D: d, Callee: name, Args: args})
	return d
}

func (ctx *Context) callVoid(name string, args ...ir.Operand) {
	ctx.callTo(ir.Operand{Type: ir.Elem(ir.Void)}, name, ir.Elem(ir.Void), args...)
}

func i32(v int) ir.Operand { return ir.ConstInt(ir.I32, int64(v)) }
