package codegen

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/xplshn/ptxlower/pkg/ir"
	"github.com/xplshn/ptxlower/pkg/ptx"
	"github.com/xplshn/ptxlower/pkg/translator"
)

var _ = Describe("LLVM backend", func() {
	var backend Backend

	i32, f32, i1 := ir.Elem(ir.I32), ir.Elem(ir.F32), ir.Elem(ir.I1)

	generate := func(k *ir.Kernel) string {
		buf, err := backend.Generate(k)
		Expect(err).NotTo(HaveOccurred())
		return buf.String()
	}

	lower := func(name string, insts ...*ptx.Instruction) *ir.Kernel {
		k, err := translator.Translate(&ptx.Kernel{Name: name, Blocks: []*ptx.BasicBlock{
			{Label: "entry", Instructions: insts},
		}})
		Expect(err).NotTo(HaveOccurred())
		return k
	}

	single := func(insts ...*ir.Instruction) *ir.Kernel {
		return &ir.Kernel{
			Name:     "k",
			Function: ir.Function{Name: "@k", Return: i32},
			Blocks:   []*ir.Block{{Label: "entry", Instructions: insts}},
		}
	}

	BeforeEach(func() {
		backend = NewLLVMBackend()
	})

	It("should print a complete module", func() {
		out := generate(lower("empty", &ptx.Instruction{Opcode: ptx.OpExit}))

		Expect(out).To(Equal(`%Dimension = type { i16, i16, i16 }
%LLVMContext = type { %Dimension, %Dimension, %Dimension, %Dimension, i8*, i8*, i8*, i8*, i64, i64, i64, i64 }

define i32 @_Z_ptxlower_empty(%LLVMContext* noalias %__ctaContext) nounwind {
entry:
	ret i32 0
}
`))
	})

	It("should print memory base loads through the context", func() {
		out := generate(lower("param",
			&ptx.Instruction{Opcode: ptx.OpLd, Type: ptx.U32, Space: ptx.SpaceParam, D: ptx.Reg(1, ptx.U32), A: ptx.Addr("n", 8, ptx.U32)},
			&ptx.Instruction{Opcode: ptx.OpExit},
		))

		Expect(out).To(ContainSubstring(`entry:
	%rt1 = getelementptr %LLVMContext, %LLVMContext* %__ctaContext, i32 0, i32 7
	%rt2 = load i8*, i8** %rt1
	%rt3 = getelementptr i8, i8* %rt2, i64 8
	%rt4 = bitcast i8* %rt3 to i32*
	%r1 = load i32, i32* %rt4, align 4
	ret i32 0
`))
	})

	It("should declare referenced intrinsics", func() {
		out := generate(lower("clock",
			&ptx.Instruction{Opcode: ptx.OpMov, Type: ptx.U32, D: ptx.Reg(1, ptx.U32), A: ptx.Sreg(ptx.Clock)},
			&ptx.Instruction{Opcode: ptx.OpTrap},
		))

		Expect(out).To(ContainSubstring("declare i32 @clock()\ndeclare void @trap()\n\n"))
		Expect(out).To(ContainSubstring("\tcall void @trap()\n"))
	})

	It("should print phis, comparisons and branches", func() {
		k := single(&ir.Instruction{Op: ir.OpBr, Label: "loop"})
		k.Blocks = append(k.Blocks, &ir.Block{Label: "loop", Instructions: []*ir.Instruction{
			{Op: ir.OpPhi, D: ir.Value("%r3", i32), Incoming: []ir.Incoming{
				{Value: ir.ConstInt(ir.I32, 0), Label: "entry"},
				{Value: ir.Value("%r4", i32), Label: "loop"},
			}},
			{Op: ir.OpAdd, D: ir.Value("%r4", i32), A: ir.Value("%r3", i32), B: ir.ConstInt(ir.I32, 1)},
			{Op: ir.OpICmp, Predicate: ir.Slt, D: ir.Value("%r2", i1), A: ir.Value("%r4", i32), B: ir.ConstInt(ir.I32, 10)},
			{Op: ir.OpBr, A: ir.Value("%r2", i1), Label: "loop", False: "done"},
		}})

		out := generate(k)

		Expect(out).To(ContainSubstring(`entry:
	br label %loop

loop:
	%r3 = phi i32 [ 0, %entry ], [ %r4, %loop ]
	%r4 = add i32 %r3, 1
	%r2 = icmp slt i32 %r4, 10
	br i1 %r2, label %loop, label %done
}
`))
	})

	It("should print vector and float instructions", func() {
		v2 := ir.Vec(ir.F32, 2)
		out := generate(single(
			&ir.Instruction{Op: ir.OpInsertElement, D: ir.Value("%v", v2), A: ir.Undef(v2), B: ir.ConstFloat(ir.F32, 1), C: ir.ConstInt(ir.I32, 0)},
			&ir.Instruction{Op: ir.OpStore, A: ir.Value("%v", v2), B: ir.Value("%p", ir.VecPtr(ir.F32, 2)), Align: 8, Volatile: true},
			&ir.Instruction{Op: ir.OpExtractElement, D: ir.Value("%x", f32), A: ir.Value("%v", v2), B: ir.ConstInt(ir.I32, 1)},
			&ir.Instruction{Op: ir.OpFCmp, Predicate: ir.Uno, D: ir.Value("%n", i1), A: ir.Value("%x", f32), B: ir.Value("%x", f32)},
			&ir.Instruction{Op: ir.OpSelect, D: ir.Value("%y", f32), A: ir.Value("%n", i1), B: ir.ConstFloat(ir.F32, 0), C: ir.Value("%x", f32)},
			&ir.Instruction{Op: ir.OpRet, A: ir.ConstInt(ir.I32, 0)},
		))

		Expect(out).To(ContainSubstring("\t%v = insertelement <2 x float> undef, float 0x3FF0000000000000, i32 0\n"))
		Expect(out).To(ContainSubstring("\tstore volatile <2 x float> %v, <2 x float>* %p, align 8\n"))
		Expect(out).To(ContainSubstring("\t%x = extractelement <2 x float> %v, i32 1\n"))
		Expect(out).To(ContainSubstring("\t%n = fcmp uno float %x, %x\n"))
		Expect(out).To(ContainSubstring("\t%y = select i1 %n, float 0x0000000000000000, float %x\n"))
	})

	It("should print calls with results", func() {
		out := generate(single(
			&ir.Instruction{Op: ir.OpCall, D: ir.Value("%r1", f32), Callee: "@cos", Args: []ir.Operand{ir.Value("%r2", f32)}},
			&ir.Instruction{Op: ir.OpRet, A: ir.ConstInt(ir.I32, 0)},
		))

		Expect(out).To(ContainSubstring("\t%r1 = call float @cos(float %r2)\n"))
	})

	It("should reject kernels it cannot print", func() {
		_, err := backend.Generate(nil)
		Expect(err).To(HaveOccurred())

		_, err = backend.Generate(&ir.Kernel{Name: "k"})
		Expect(err).To(MatchError(ContainSubstring("has no blocks")))

		_, err = backend.Generate(single(&ir.Instruction{Op: ir.OpInvalid}))
		Expect(err).To(MatchError(ContainSubstring("cannot print invalid")))
	})
})
