package translator

import (
	"github.com/xplshn/ptxlower/pkg/ir"
	"github.com/xplshn/ptxlower/pkg/ptx"
)

var mathIntrinsics = map[ptx.Opcode]string{
	ptx.OpCos:   "@cos",
	ptx.OpSin:   "@sin",
	ptx.OpEx2:   "@ex2",
	ptx.OpLg2:   "@lg2",
	ptx.OpRsqrt: "@rsqrt",
	ptx.OpSqrt:  "@sqrt",
}

// fixedIntrinsics are the helpers whose signature does not depend on the
// instruction. They are all declared up front under WithDeclareAll.
var fixedIntrinsics = []ir.Declaration{
	{Name: "@setRoundingMode", Return: ir.Elem(ir.Void), Params: []ir.Type{ir.Elem(ir.I32)}},
	{Name: "@vote", Return: ir.Elem(ir.I1), Params: []ir.Type{ir.Elem(ir.I1), ir.Elem(ir.I32), ir.Elem(ir.I1)}},
	{Name: "@membarCta", Return: ir.Elem(ir.Void)},
	{Name: "@membarGlobal", Return: ir.Elem(ir.Void)},
	{Name: "@breakpoint", Return: ir.Elem(ir.Void)},
	{Name: "@trap", Return: ir.Elem(ir.Void)},
	{Name: "@pmevent", Return: ir.Elem(ir.Void), Params: []ir.Type{ir.Elem(ir.I32)}},
	{Name: "@clock", Return: ir.Elem(ir.I32)},
}

// lowerMath calls the transcendental helper for the opcode. The ftz form
// has its own entry point and f64 operands select the .f64 overload.
func (ctx *Context) lowerMath(inst *ptx.Instruction) error {
	if !isFloat(inst.Type) { return unsupported("%s.%s", inst.Opcode, inst.Type) }
	name := mathIntrinsics[inst.Opcode]
	if inst.Modifier.Has(ptx.ModFtz) { name += "Ftz" }
	if inst.Type == ptx.F64 { name += ".f64" }

	t := ctx.typeOf(inst.Type)
	a := ctx.source(inst.A, t)
	d := ctx.destination(inst, inst.D)
	ctx.callTo(d, name, t, a)
	ctx.epilogue(inst, inst.D, d)
	return nil
}

func (ctx *Context) lowerTex(inst *ptx.Instruction) error {
	ct := inst.C.Type
	if inst.C.IsVector() && len(inst.C.Array) > 0 { ct = inst.C.Array[0].Type }
	coord := ctx.typeOf(ct)
	args := []ir.Operand{ctx.translateOperand(inst.A, inst.Space, 1)}
	switch inst.Geometry {
	case ptx.Geom1D:
		if inst.C.IsVector() { return unsupported("vector coordinates for tex.1d") }
		args = append(args, ctx.source(inst.C, coord))
	case ptx.Geom2D, ptx.Geom3D:
		n := 2
		if inst.Geometry == ptx.Geom3D { n = 4 }
		if len(inst.C.Array) != n { return unsupported("tex.%s with %d coordinates", inst.Geometry, len(inst.C.Array)) }
		for _, c := range inst.C.Array {
			args = append(args, ctx.source(c, coord))
		}
	default:
		return unsupported("texture geometry %q", inst.Geometry.String())
	}

	t := ctx.typeOf(inst.Type)
	name := "@tex." + inst.Geometry.String() + "." + t.Primitive.Suffix() + "." + coord.Primitive.Suffix()
	sample := ctx.callTo(ctx.newTemp(ir.Vec(t.Primitive, 4)), name, ir.Vec(t.Primitive, 4), args...)
	for i, lane := range inst.D.Array {
		d := ctx.destination(inst, lane)
		ctx.addInstr(&ir.Instruction{Op: ir.OpExtractElement, D: d, A: sample, B: i32(i)})
		ctx.epilogue(inst, lane, d)
	}
	return nil
}

// lowerVote passes the negation of the voted predicate as a flag rather
// than computing it.
func (ctx *Context) lowerVote(inst *ptx.Instruction) error {
	a := ctx.operand(inst.A)
	inverted := ir.ConstBool(inst.A.Condition == ptx.InvPred)
	d := ctx.destination(inst, inst.D)
	if !d.Type.Equal(ir.Elem(ir.I1)) { return unsupported("vote into a %s", inst.D.Type) }
	ctx.callTo(d, "@vote", ir.Elem(ir.I1), a, i32(int(inst.Vote)), inverted)
	ctx.epilogue(inst, inst.D, d)
	return nil
}

func (ctx *Context) lowerMembar(inst *ptx.Instruction) error {
	if inst.Level == ptx.LevelCta {
		ctx.callVoid("@membarCta")
	} else {
		ctx.callVoid("@membarGlobal")
	}
	return nil
}

func (ctx *Context) lowerBrkpt(*ptx.Instruction) error {
	ctx.callVoid("@breakpoint")
	return nil
}

func (ctx *Context) lowerTrap(*ptx.Instruction) error {
	ctx.callVoid("@trap")
	return nil
}

func (ctx *Context) lowerPmevent(inst *ptx.Instruction) error {
	ctx.callVoid("@pmevent", ctx.resize(ctx.operand(inst.A), ir.Elem(ir.I32)))
	return nil
}

func (ctx *Context) lowerCall(*ptx.Instruction) error { return unsupported("call") }

func (ctx *Context) lowerRet(*ptx.Instruction) error { return unsupported("ret") }
