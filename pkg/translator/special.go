package translator

import (
	"github.com/xplshn/ptxlower/pkg/ir"
	"github.com/xplshn/ptxlower/pkg/ptx"
)

const (
	contextType   = "%LLVMContext"
	dimensionType = "%Dimension"
	contextName   = "%__ctaContext"
)

// Member slots of the context structure.
const (
	slotTid = iota
	slotNtid
	slotCtaid
	slotNctaid
	slotLocal
	slotShared
	slotConst
	slotParam
)

func contextDecls() []ir.TypeDecl {
	dim := ir.Named(dimensionType)
	bytePtr := ir.Ptr(ir.I8)
	i64 := ir.Elem(ir.I64)
	return []ir.TypeDecl{
		{Name: dimensionType, Type: ir.Struct(ir.Elem(ir.I16), ir.Elem(ir.I16), ir.Elem(ir.I16))},
		{Name: contextType, Type: ir.Struct(dim, dim, dim, dim, bytePtr, bytePtr, bytePtr, bytePtr, i64, i64, i64, i64)},
	}
}

func contextPointer() ir.Operand { return ir.Value(contextName, ir.NamedPtr(contextType)) }

var dimensions = map[ptx.SpecialRegister][2]int{
	ptx.TidX: {slotTid, 0}, ptx.TidY: {slotTid, 1}, ptx.TidZ: {slotTid, 2},
	ptx.NtidX: {slotNtid, 0}, ptx.NtidY: {slotNtid, 1}, ptx.NtidZ: {slotNtid, 2},
	ptx.CtaIDX: {slotCtaid, 0}, ptx.CtaIDY: {slotCtaid, 1}, ptx.CtaIDZ: {slotCtaid, 2},
	ptx.NctaIDX: {slotNctaid, 0}, ptx.NctaIDY: {slotNctaid, 1}, ptx.NctaIDZ: {slotNctaid, 2},
}

// loadSpecialRegister reads a thread-geometry register out of the context,
// or the clock through @clock.
func (ctx *Context) loadSpecialRegister(s ptx.SpecialRegister) ir.Operand {
	if s == ptx.Clock {
		return ctx.callTo(ctx.newTemp(ir.Elem(ir.I32)), "@clock", ir.Elem(ir.I32))
	}
	pos, ok := dimensions[s]
	if !ok {
		ctx.fail(unsupported("special register %s", s))
		return ir.Operand{}
	}
	addr := ctx.newTemp(ir.Ptr(ir.I16))
	ctx.addInstr(&ir.Instruction{Op: ir.OpGetElementPtr, D: addr, A: contextPointer(), Args: []ir.Operand{i32(0), i32(pos[0]), i32(pos[1])}})
	v := ctx.newTemp(ir.Elem(ir.I16))
	ctx.addInstr(&ir.Instruction{Op: ir.OpLoad, D: v, A: addr})
	return v
}

var memorySlots = map[ptx.AddressSpace]int{
	ptx.SpaceLocal:  slotLocal,
	ptx.SpaceShared: slotShared,
	ptx.SpaceConst:  slotConst,
	ptx.SpaceParam:  slotParam,
}

// loadMemoryBase computes a typed pointer offset bytes into the window of
// space. It reports false for spaces the context does not hold.
func (ctx *Context) loadMemoryBase(space ptx.AddressSpace, t ptx.DataType, offset int64, vec int) (ir.Operand, bool) {
	slot, ok := memorySlots[space]
	if !ok { return ir.Operand{}, false }

	bytePtr := ir.Ptr(ir.I8)
	field := ctx.newTemp(ir.PtrTo(bytePtr))
	ctx.addInstr(&ir.Instruction{Op: ir.OpGetElementPtr, D: field, A: contextPointer(), Args: []ir.Operand{i32(0), i32(slot)}})
	base := ctx.newTemp(bytePtr)
	ctx.addInstr(&ir.Instruction{Op: ir.OpLoad, D: base, A: field})
	moved := ctx.newTemp(bytePtr)
	ctx.addInstr(&ir.Instruction{Op: ir.OpGetElementPtr, D: moved, A: base, Args: []ir.Operand{ir.ConstInt(ir.I64, offset)}})
	return ctx.cast(ir.OpBitcast, moved, ctx.pointerTo(t, vec)), true
}
