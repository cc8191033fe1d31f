package ir

import (
	"errors"
	"fmt"
)

var ErrInvalid = errors.New("invalid target instruction")

type Op int

const (
	OpInvalid Op = iota
	OpAdd
	OpSub
	OpMul
	OpSDiv
	OpUDiv
	OpSRem
	OpURem
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
	OpFRem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpLShr
	OpAShr
	OpICmp
	OpFCmp
	OpSelect
	OpTrunc
	OpZExt
	OpSExt
	OpFPTrunc
	OpFPExt
	OpFPToUI
	OpFPToSI
	OpUIToFP
	OpSIToFP
	OpPtrToInt
	OpIntToPtr
	OpBitcast
	OpLoad
	OpStore
	OpGetElementPtr
	OpExtractElement
	OpInsertElement
	OpCall
	OpBr
	OpRet
	OpPhi
	OpCount
)

var opNames = []string{
	OpInvalid: "invalid",
	OpAdd:     "add", OpSub: "sub", OpMul: "mul", OpSDiv: "sdiv", OpUDiv: "udiv",
	OpSRem: "srem", OpURem: "urem", OpFAdd: "fadd", OpFSub: "fsub", OpFMul: "fmul",
	OpFDiv: "fdiv", OpFRem: "frem", OpAnd: "and", OpOr: "or", OpXor: "xor",
	OpShl: "shl", OpLShr: "lshr", OpAShr: "ashr", OpICmp: "icmp", OpFCmp: "fcmp",
	OpSelect: "select", OpTrunc: "trunc", OpZExt: "zext", OpSExt: "sext",
	OpFPTrunc: "fptrunc", OpFPExt: "fpext", OpFPToUI: "fptoui", OpFPToSI: "fptosi",
	OpUIToFP: "uitofp", OpSIToFP: "sitofp", OpPtrToInt: "ptrtoint", OpIntToPtr: "inttoptr",
	OpBitcast: "bitcast", OpLoad: "load", OpStore: "store", OpGetElementPtr: "getelementptr",
	OpExtractElement: "extractelement", OpInsertElement: "insertelement",
	OpCall: "call", OpBr: "br", OpRet: "ret", OpPhi: "phi",
}

func (op Op) String() string {
	if op < 0 || op >= OpCount { return fmt.Sprintf("<op %d>", int(op)) }
	return opNames[op]
}

func (op Op) IsBinary() bool { return op >= OpAdd && op <= OpAShr }
func (op Op) IsCast() bool   { return op >= OpTrunc && op <= OpBitcast }

func (op Op) isFloatArith() bool { return op >= OpFAdd && op <= OpFRem }

type Predicate int

const (
	PredInvalid Predicate = iota
	// integer
	Eq
	Ne
	Ugt
	Uge
	Ult
	Ule
	Sgt
	Sge
	Slt
	Sle
	// float
	False
	Oeq
	Ogt
	Oge
	Olt
	Ole
	One
	Ord
	Ueq
	UgtF
	UgeF
	UltF
	UleF
	Une
	Uno
	True
)

var predicateNames = []string{
	PredInvalid: "<invalid>",
	Eq:          "eq", Ne: "ne", Ugt: "ugt", Uge: "uge", Ult: "ult", Ule: "ule",
	Sgt: "sgt", Sge: "sge", Slt: "slt", Sle: "sle",
	False: "false", Oeq: "oeq", Ogt: "ogt", Oge: "oge", Olt: "olt", Ole: "ole", One: "one",
	Ord: "ord", Ueq: "ueq", UgtF: "ugt", UgeF: "uge", UltF: "ult", UleF: "ule", Une: "une",
	Uno: "uno", True: "true",
}

func (p Predicate) String() string {
	if p < 0 || int(p) >= len(predicateNames) { return fmt.Sprintf("<pred %d>", int(p)) }
	return predicateNames[p]
}

func (p Predicate) IsInt() bool   { return p >= Eq && p <= Sle }
func (p Predicate) IsFloat() bool { return p >= False && p <= True }

// Incoming is one (value, predecessor) pair of a phi.
type Incoming struct {
	Value Operand
	Label string
}

// Instruction is a single target instruction. Op selects which slots are
// meaningful:
//
//	binary, icmp, fcmp   D = A op B
//	select               D = A ? B : C
//	casts                D = cast A
//	load                 D = load A
//	store                store A, B
//	getelementptr        D = gep A, Args...
//	extractelement       D = A[B]
//	insertelement        D = A with B at C
//	call                 D = Callee(Args...), D may be zero for void calls
//	br                   br Label, or br A, Label, False
//	ret                  ret A
//	phi                  D = phi Incoming...
type Instruction struct {
	Op        Op
	Predicate Predicate
	D         Operand
	A         Operand
	B         Operand
	C         Operand
	Args      []Operand
	Callee    string
	Label     string
	False     string
	Incoming  []Incoming
	Align     int
	Volatile  bool
}

// Terminator reports whether inst ends a block.
func (inst *Instruction) Terminator() bool { return inst.Op == OpBr || inst.Op == OpRet }

func (inst *Instruction) Validate() error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", ErrInvalid, inst.Op, fmt.Sprintf(format, args...))
	}
	needsResult := func() error {
		if inst.D.Name == "" || inst.D.Constant { return fail("missing result name") }
		return nil
	}
	sameType := func(names string, ops ...Operand) error {
		for _, o := range ops[1:] {
			if !o.Type.Equal(ops[0].Type) {
				return fail("%s type mismatch: %s vs %s", names, ops[0].Type, o.Type)
			}
		}
		return nil
	}

	switch {
	case inst.Op.IsBinary():
		if err := needsResult(); err != nil { return err }
		if err := sameType("operand", inst.D, inst.A, inst.B); err != nil { return err }
		if inst.Op.isFloatArith() && !inst.D.Type.IsFloat() { return fail("non-float type %s", inst.D.Type) }
		if !inst.Op.isFloatArith() && !inst.D.Type.IsInt() { return fail("non-integer type %s", inst.D.Type) }
		return nil

	case inst.Op == OpICmp || inst.Op == OpFCmp:
		if err := needsResult(); err != nil { return err }
		if inst.D.Type.Scalar().Primitive != I1 { return fail("result must be i1") }
		if err := sameType("operand", inst.A, inst.B); err != nil { return err }
		if inst.Op == OpICmp && (!inst.Predicate.IsInt() || inst.A.Type.IsFloat()) { return fail("bad integer comparison %s", inst.Predicate) }
		if inst.Op == OpFCmp && (!inst.Predicate.IsFloat() || !inst.A.Type.IsFloat()) { return fail("bad float comparison %s", inst.Predicate) }
		return nil

	case inst.Op == OpSelect:
		if err := needsResult(); err != nil { return err }
		if !inst.A.Type.Equal(Elem(I1)) { return fail("condition must be i1, got %s", inst.A.Type) }
		return sameType("value", inst.D, inst.B, inst.C)

	case inst.Op.IsCast():
		if err := needsResult(); err != nil { return err }
		return inst.validateCast(fail)

	case inst.Op == OpLoad:
		if err := needsResult(); err != nil { return err }
		if !inst.A.Type.IsPointer() { return fail("address must be a pointer, got %s", inst.A.Type) }
		if !inst.A.Type.Pointee().Equal(inst.D.Type) { return fail("loading %s through %s", inst.D.Type, inst.A.Type) }
		return nil

	case inst.Op == OpStore:
		if !inst.B.Type.IsPointer() { return fail("address must be a pointer, got %s", inst.B.Type) }
		if !inst.B.Type.Pointee().Equal(inst.A.Type) { return fail("storing %s through %s", inst.A.Type, inst.B.Type) }
		return nil

	case inst.Op == OpGetElementPtr:
		if err := needsResult(); err != nil { return err }
		if !inst.A.Type.IsPointer() { return fail("base must be a pointer") }
		if len(inst.Args) == 0 { return fail("no indices") }
		return nil

	case inst.Op == OpExtractElement:
		if err := needsResult(); err != nil { return err }
		if !inst.A.Type.IsVector() { return fail("source must be a vector") }
		return sameType("element", inst.D, inst.A.Type.scalarOperand())

	case inst.Op == OpInsertElement:
		if err := needsResult(); err != nil { return err }
		if !inst.A.Type.IsVector() { return fail("source must be a vector") }
		if err := sameType("vector", inst.D, inst.A); err != nil { return err }
		return sameType("element", inst.B, inst.A.Type.scalarOperand())

	case inst.Op == OpCall:
		if inst.Callee == "" { return fail("missing callee") }
		return nil

	case inst.Op == OpBr:
		if inst.Label == "" { return fail("missing target") }
		if inst.A.IsZero() { return nil }
		if !inst.A.Type.Equal(Elem(I1)) { return fail("condition must be i1") }
		if inst.False == "" { return fail("missing false target") }
		return nil

	case inst.Op == OpRet:
		return nil

	case inst.Op == OpPhi:
		if err := needsResult(); err != nil { return err }
		if len(inst.Incoming) == 0 { return fail("no incoming values") }
		for _, in := range inst.Incoming {
			if in.Label == "" { return fail("incoming value without a label") }
			if !in.Value.Type.Equal(inst.D.Type) { return fail("incoming %s does not match %s", in.Value.Type, inst.D.Type) }
		}
		return nil
	}
	return fail("unknown op")
}

func (t Type) scalarOperand() Operand { return Operand{Type: t.Scalar()} }

func (inst *Instruction) validateCast(fail func(string, ...any) error) error {
	from, to := inst.A.Type, inst.D.Type
	switch inst.Op {
	case OpTrunc, OpZExt, OpSExt:
		if !from.IsInt() || !to.IsInt() { return fail("%s to %s", from, to) }
		if inst.Op == OpTrunc && from.Primitive.Bits() <= to.Primitive.Bits() { return fail("%s does not narrow to %s", from, to) }
		if inst.Op != OpTrunc && from.Primitive.Bits() >= to.Primitive.Bits() { return fail("%s does not widen to %s", from, to) }
	case OpFPTrunc, OpFPExt:
		if !from.IsFloat() || !to.IsFloat() { return fail("%s to %s", from, to) }
		if inst.Op == OpFPTrunc && from.Primitive.Bits() <= to.Primitive.Bits() { return fail("%s does not narrow to %s", from, to) }
		if inst.Op == OpFPExt && from.Primitive.Bits() >= to.Primitive.Bits() { return fail("%s does not widen to %s", from, to) }
	case OpFPToUI, OpFPToSI:
		if !from.IsFloat() || !to.IsInt() { return fail("%s to %s", from, to) }
	case OpUIToFP, OpSIToFP:
		if !from.IsInt() || !to.IsFloat() { return fail("%s to %s", from, to) }
	case OpPtrToInt:
		if !from.IsPointer() || !to.IsInt() { return fail("%s to %s", from, to) }
	case OpIntToPtr:
		if !from.IsInt() || !to.IsPointer() { return fail("%s to %s", from, to) }
	case OpBitcast:
		if from.IsPointer() != to.IsPointer() { return fail("%s to %s", from, to) }
		if !from.IsPointer() && bitWidth(from) != bitWidth(to) { return fail("%s and %s differ in size", from, to) }
	}
	return nil
}

func bitWidth(t Type) int {
	if t.IsVector() { return t.Vector * t.Primitive.Bits() }
	return t.Primitive.Bits()
}
