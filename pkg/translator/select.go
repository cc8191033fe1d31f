package translator

import (
	"fmt"

	"github.com/xplshn/ptxlower/pkg/dataflow"
	"github.com/xplshn/ptxlower/pkg/ptx"
)

type lowering func(*Context, *ptx.Instruction) error

var lowerings = [ptx.OpcodeCount]lowering{
	ptx.OpAbs:     (*Context).lowerAbs,
	ptx.OpAdd:     (*Context).lowerAdd,
	ptx.OpAddC:    (*Context).lowerAddC,
	ptx.OpAnd:     (*Context).lowerAnd,
	ptx.OpAtom:    (*Context).lowerAtom,
	ptx.OpBar:     (*Context).lowerBar,
	ptx.OpBra:     (*Context).lowerBra,
	ptx.OpBrkpt:   (*Context).lowerBrkpt,
	ptx.OpCall:    (*Context).lowerCall,
	ptx.OpCNot:    (*Context).lowerCNot,
	ptx.OpCos:     (*Context).lowerMath,
	ptx.OpCvt:     (*Context).lowerCvt,
	ptx.OpDiv:     (*Context).lowerDiv,
	ptx.OpEx2:     (*Context).lowerMath,
	ptx.OpExit:    (*Context).lowerExit,
	ptx.OpLd:      (*Context).lowerLd,
	ptx.OpLg2:     (*Context).lowerMath,
	ptx.OpMad24:   (*Context).lowerMad24,
	ptx.OpMad:     (*Context).lowerMad,
	ptx.OpMax:     (*Context).lowerMax,
	ptx.OpMembar:  (*Context).lowerMembar,
	ptx.OpMin:     (*Context).lowerMin,
	ptx.OpMov:     (*Context).lowerMov,
	ptx.OpMul24:   (*Context).lowerMul24,
	ptx.OpMul:     (*Context).lowerMul,
	ptx.OpNeg:     (*Context).lowerNeg,
	ptx.OpNot:     (*Context).lowerNot,
	ptx.OpOr:      (*Context).lowerOr,
	ptx.OpPmevent: (*Context).lowerPmevent,
	ptx.OpRcp:     (*Context).lowerRcp,
	ptx.OpRed:     (*Context).lowerRed,
	ptx.OpRem:     (*Context).lowerRem,
	ptx.OpRet:     (*Context).lowerRet,
	ptx.OpRsqrt:   (*Context).lowerMath,
	ptx.OpSad:     (*Context).lowerSad,
	ptx.OpSelP:    (*Context).lowerSelP,
	ptx.OpSet:     (*Context).lowerSet,
	ptx.OpSetP:    (*Context).lowerSetP,
	ptx.OpShl:     (*Context).lowerShl,
	ptx.OpShr:     (*Context).lowerShr,
	ptx.OpSin:     (*Context).lowerMath,
	ptx.OpSlCt:    (*Context).lowerSlct,
	ptx.OpSqrt:    (*Context).lowerMath,
	ptx.OpSt:      (*Context).lowerSt,
	ptx.OpSub:     (*Context).lowerSub,
	ptx.OpSubC:    (*Context).lowerSubC,
	ptx.OpTex:     (*Context).lowerTex,
	ptx.OpTrap:    (*Context).lowerTrap,
	ptx.OpVote:    (*Context).lowerVote,
	ptx.OpXor:     (*Context).lowerXor,
}

// f16 values are opaque 16-bit payloads; only these opcodes move them.
func carriesHalf(op ptx.Opcode) bool {
	switch op {
	case ptx.OpMov, ptx.OpCvt, ptx.OpLd, ptx.OpSt: return true
	}
	return false
}

// lower selects and runs the lowering of one instruction. Failures are
// recorded on ctx and stop the translation.
func (ctx *Context) lower(inst *ptx.Instruction) {
	if err := inst.Validate(); err != nil {
		ctx.fail(invalid(err))
		return
	}
	if inst.Type == ptx.F16 && !carriesHalf(inst.Opcode) {
		ctx.fail(unsupported("%s on f16", inst.Opcode))
		return
	}
	fn := lowerings[inst.Opcode]
	if fn == nil {
		ctx.fail(unsupported("opcode %s", inst.Opcode))
		return
	}

	for _, u := range inst.Uses() {
		ctx.requireProducer(dataflow.Register{ID: u.Reg, Type: u.Type})
	}
	if inst.Guarded() {
		for _, d := range inst.Defs() {
			if d.Prior != nil { ctx.requireProducer(dataflow.Register{ID: *d.Prior, Type: d.Type}) }
		}
	}

	before := len(ctx.block.Instructions)
	if err := fn(ctx, inst); err != nil {
		ctx.fail(fmt.Errorf("%s: %w", inst, err))
		return
	}
	if ctx.err != nil {
		ctx.err = fmt.Errorf("%s: %w", inst, ctx.err)
		return
	}
	ctx.record(inst.Opcode, len(ctx.block.Instructions)-before)
}
