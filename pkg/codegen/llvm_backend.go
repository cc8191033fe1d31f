package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xplshn/ptxlower/pkg/ir"
)

type llvmBackend struct {
	out    *strings.Builder
	kernel *ir.Kernel
}

// NewLLVMBackend returns a backend printing kernels as LLVM assembly with
// typed pointers.
func NewLLVMBackend() Backend { return &llvmBackend{} }

func (b *llvmBackend) Generate(k *ir.Kernel) (*bytes.Buffer, error) {
	if k == nil { return nil, fmt.Errorf("no kernel to generate") }
	if len(k.Blocks) == 0 { return nil, fmt.Errorf("kernel '%s' has no blocks", k.Name) }

	var sb strings.Builder
	b.out = &sb
	b.kernel = k

	b.genTypes()
	b.genDeclarations()
	if err := b.genFunc(); err != nil { return nil, fmt.Errorf("generating %s: %w", k.Name, err) }
	return bytes.NewBufferString(sb.String()), nil
}

func (b *llvmBackend) genTypes() {
	for _, t := range b.kernel.Types {
		fmt.Fprintf(b.out, "%s = type %s\n", t.Name, t.Type.Body())
	}
	if len(b.kernel.Types) > 0 { b.out.WriteString("\n") }
}

func (b *llvmBackend) genDeclarations() {
	for _, d := range b.kernel.Declarations {
		params := make([]string, len(d.Params))
		for i, p := range d.Params {
			params[i] = p.String()
		}
		fmt.Fprintf(b.out, "declare %s %s(%s)\n", d.Return, d.Name, strings.Join(params, ", "))
	}
	if len(b.kernel.Declarations) > 0 { b.out.WriteString("\n") }
}

func (b *llvmBackend) genFunc() error {
	fn := b.kernel.Function
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		s := p.Type.String()
		if p.NoAlias { s += " noalias" }
		params[i] = s + " " + p.Name
	}
	fmt.Fprintf(b.out, "define %s %s(%s)", fn.Return, fn.Name, strings.Join(params, ", "))
	if len(fn.Attributes) > 0 { b.out.WriteString(" " + strings.Join(fn.Attributes, " ")) }
	b.out.WriteString(" {\n")

	for i, block := range b.kernel.Blocks {
		if i > 0 { b.out.WriteString("\n") }
		fmt.Fprintf(b.out, "%s:\n", block.Label)
		for _, instr := range block.Instructions {
			line, err := b.formatInstr(instr)
			if err != nil { return fmt.Errorf("block '%s': %w", block.Label, err) }
			b.out.WriteString("\t" + line + "\n")
		}
	}
	b.out.WriteString("}\n")
	return nil
}

func (b *llvmBackend) formatInstr(instr *ir.Instruction) (string, error) {
	body, err := b.formatOp(instr)
	if err != nil { return "", err }
	if instr.D.Name == "" || instr.Op == ir.OpStore || instr.Op == ir.OpBr || instr.Op == ir.OpRet {
		return body, nil
	}
	return instr.D.Name + " = " + body, nil
}

func (b *llvmBackend) formatOp(instr *ir.Instruction) (string, error) {
	switch {
	case instr.Op.IsBinary():
		return fmt.Sprintf("%s %s, %s", instr.Op, instr.A, instr.B.Ref()), nil
	case instr.Op.IsCast():
		return fmt.Sprintf("%s %s to %s", instr.Op, instr.A, instr.D.Type), nil
	}

	switch instr.Op {
	case ir.OpICmp, ir.OpFCmp:
		return fmt.Sprintf("%s %s %s, %s", instr.Op, instr.Predicate, instr.A, instr.B.Ref()), nil
	case ir.OpSelect:
		return fmt.Sprintf("select %s, %s, %s", instr.A, instr.B, instr.C), nil
	case ir.OpLoad:
		return fmt.Sprintf("load%s %s, %s%s", volatile(instr), instr.D.Type, instr.A, align(instr)), nil
	case ir.OpStore:
		return fmt.Sprintf("store%s %s, %s%s", volatile(instr), instr.A, instr.B, align(instr)), nil
	case ir.OpGetElementPtr:
		return fmt.Sprintf("getelementptr %s, %s, %s", instr.A.Type.Pointee(), instr.A, joinOperands(instr.Args)), nil
	case ir.OpExtractElement:
		return fmt.Sprintf("extractelement %s, %s", instr.A, instr.B), nil
	case ir.OpInsertElement:
		return fmt.Sprintf("insertelement %s, %s, %s", instr.A, instr.B, instr.C), nil
	case ir.OpCall:
		ret := instr.D.Type
		if instr.D.Name == "" { ret = ir.Elem(ir.Void) }
		return fmt.Sprintf("call %s %s(%s)", ret, instr.Callee, joinOperands(instr.Args)), nil
	case ir.OpBr:
		if instr.A.IsZero() { return "br label %" + instr.Label, nil }
		return fmt.Sprintf("br %s, label %%%s, label %%%s", instr.A, instr.Label, instr.False), nil
	case ir.OpRet:
		if instr.A.IsZero() { return "ret void", nil }
		return "ret " + instr.A.String(), nil
	case ir.OpPhi:
		incoming := make([]string, len(instr.Incoming))
		for i, in := range instr.Incoming {
			incoming[i] = fmt.Sprintf("[ %s, %%%s ]", in.Value.Ref(), in.Label)
		}
		return fmt.Sprintf("phi %s %s", instr.D.Type, strings.Join(incoming, ", ")), nil
	default:
		return "", fmt.Errorf("cannot print %s", instr.Op)
	}
}

func volatile(instr *ir.Instruction) string {
	if instr.Volatile { return " volatile" }
	return ""
}

func align(instr *ir.Instruction) string {
	if instr.Align > 0 { return fmt.Sprintf(", align %d", instr.Align) }
	return ""
}

func joinOperands(ops []ir.Operand) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = op.String()
	}
	return strings.Join(parts, ", ")
}
