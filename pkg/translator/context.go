package translator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/xplshn/ptxlower/pkg/dataflow"
	"github.com/xplshn/ptxlower/pkg/ir"
	"github.com/xplshn/ptxlower/pkg/ptx"
)

// Context carries the state of one kernel translation. It is created per
// call and never shared.
type Context struct {
	graph        dataflow.Graph
	opts         options
	kernel       *ir.Kernel
	block        *ir.Block
	srcBlock     dataflow.Block
	tempCount    int
	ccCount      int
	lastCC       ir.Operand
	continuation int
	uninit       []dataflow.Register
	seen         map[ptx.RegisterID]bool
	declared     map[string]int
	stats        map[ptx.Opcode]*ir.OpcodeStat
	err          error
}

func newContext(name string, g dataflow.Graph, opts options) *Context {
	return &Context{
		graph:    g,
		opts:     opts,
		kernel:   &ir.Kernel{Name: name},
		seen:     make(map[ptx.RegisterID]bool),
		declared: make(map[string]int),
		stats:    make(map[ptx.Opcode]*ir.OpcodeStat),
	}
}

// fail records the first error of the translation. Later emission is
// skipped until the caller observes it.
func (ctx *Context) fail(err error) {
	if ctx.err == nil { ctx.err = err }
}

func (ctx *Context) newTemp(t ir.Type) ir.Operand {
	ctx.tempCount++
	return ir.Value(fmt.Sprintf("%%rt%d", ctx.tempCount), t)
}

// newCC names a fresh condition-code pseudo-register.
func (ctx *Context) newCC() ir.Operand {
	ctx.ccCount++
	return ir.Value(fmt.Sprintf("%%rcc%d", ctx.ccCount), ir.Elem(ir.I64))
}

func (ctx *Context) startBlock(label string) {
	ctx.block = &ir.Block{Label: label}
	ctx.kernel.Blocks = append(ctx.kernel.Blocks, ctx.block)
}

func (ctx *Context) addInstr(inst *ir.Instruction) {
	if ctx.err != nil { return }
	if ctx.opts.verify {
		if err := inst.Validate(); err != nil {
			ctx.fail(invalid(err))
			return
		}
	}
	ctx.block.Instructions = append(ctx.block.Instructions, inst)
}

func (ctx *Context) diagnose(kind DiagnosticKind, format string, args ...any) {
	if ctx.opts.diagnostics == nil { return }
	d := Diagnostic{Kind: kind, Kernel: ctx.kernel.Name, Message: fmt.Sprintf(format, args...)}
	if ctx.srcBlock != nil { d.Block = ctx.srcBlock.Label() }
	ctx.opts.diagnostics(d)
}

// declare records a call target. A second reference must agree with the
// first signature.
func (ctx *Context) declare(name string, ret ir.Type, params ...ir.Type) {
	decl := ir.Declaration{Name: name, Return: ret, Params: params}
	if i, ok := ctx.declared[name]; ok {
		if !sameSignature(ctx.kernel.Declarations[i], decl) {
			ctx.fail(unsupported("conflicting signatures for %s", name))
		}
		return
	}
	ctx.declared[name] = len(ctx.kernel.Declarations)
	ctx.kernel.Declarations = append(ctx.kernel.Declarations, decl)
}

func sameSignature(a, b ir.Declaration) bool {
	if !a.Return.Equal(b.Return) || len(a.Params) != len(b.Params) { return false }
	for i := range a.Params {
		if !a.Params[i].Equal(b.Params[i]) { return false }
	}
	return true
}

// yield returns control to the runtime with continuation id. Zero ends the
// kernel; any other id must be the continuation just allocated.
func (ctx *Context) yield(id int) error {
	if id != 0 && id != ctx.continuation {
		return fmt.Errorf("%w: %d (next is %d)", ErrYield, id, ctx.continuation+1)
	}
	ctx.addInstr(&ir.Instruction{Op: ir.OpRet, A: ir.ConstInt(ir.I32, int64(id))})
	return nil
}

func (ctx *Context) nextContinuation() int {
	ctx.continuation++
	return ctx.continuation
}

// requireProducer collects r for the initializer block when nothing in the
// graph defines it.
func (ctx *Context) requireProducer(r dataflow.Register) {
	_, err := ctx.graph.Producer(ctx.srcBlock, r)
	switch {
	case err == nil:
	case errors.Is(err, dataflow.ErrNoProducer):
		if ctx.seen[r.ID] { return }
		ctx.seen[r.ID] = true
		ctx.uninit = append(ctx.uninit, r)
		ctx.diagnose(DiagUninitialized, "register %%r%d is read before it is written", ctx.origin(r.ID))
	default:
		ctx.fail(err)
	}
}

// origin maps an SSA name back to the register the kernel wrote. Graphs
// that do not keep the mapping report names unchanged.
func (ctx *Context) origin(id ptx.RegisterID) ptx.RegisterID {
	if o, ok := ctx.graph.(interface{ Origin(ptx.RegisterID) ptx.RegisterID }); ok { return o.Origin(id) }
	return id
}

func (ctx *Context) record(op ptx.Opcode, emitted int) {
	s, ok := ctx.stats[op]
	if !ok {
		s = &ir.OpcodeStat{Opcode: op.String()}
		ctx.stats[op] = s
	}
	s.Source++
	s.Emitted += emitted
}

func (ctx *Context) collectStats() {
	ops := make([]ptx.Opcode, 0, len(ctx.stats))
	for op := range ctx.stats {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	for _, op := range ops {
		ctx.kernel.Stats = append(ctx.kernel.Stats, *ctx.stats[op])
	}
}
