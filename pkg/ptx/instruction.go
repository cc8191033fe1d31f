package ptx

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalid = errors.New("invalid instruction")

// Instruction is one source-ISA instruction. Operand slots follow the
// assembler layout: D is the destination (or the address of a store), A to C
// are sources, PG is the guard and PQ the optional second predicate
// destination of setp.
type Instruction struct {
	Opcode    Opcode       `json:"opcode"`
	Type      DataType     `json:"type,omitempty"`
	Modifier  Modifier     `json:"modifier,omitempty"`
	Space     AddressSpace `json:"space,omitempty"`
	Geometry  Geometry     `json:"geometry,omitempty"`
	Vec       int          `json:"vec,omitempty"`
	Cmp       CmpOp        `json:"cmp,omitempty"`
	BoolOp    BoolOp       `json:"boolOp,omitempty"`
	Atomic    AtomicOp     `json:"atomic,omitempty"`
	Vote      VoteMode     `json:"vote,omitempty"`
	Level     BarrierLevel `json:"level,omitempty"`
	Volatile  bool         `json:"volatile,omitempty"`
	D         Operand      `json:"d"`
	A         Operand      `json:"a"`
	B         Operand      `json:"b"`
	C         Operand      `json:"c"`
	PG        Operand      `json:"pg"`
	PQ        Operand      `json:"pq"`
}

type arity struct{ a, b, c bool }

var operandArity = map[Opcode]arity{
	OpAbs: {a: true}, OpCNot: {a: true}, OpCos: {a: true}, OpCvt: {a: true},
	OpEx2: {a: true}, OpLg2: {a: true}, OpMov: {a: true}, OpNeg: {a: true},
	OpNot: {a: true}, OpRcp: {a: true}, OpRsqrt: {a: true}, OpSin: {a: true},
	OpSqrt: {a: true}, OpLd: {a: true}, OpVote: {a: true}, OpPmevent: {a: true},
	OpSt: {a: true}, OpTex: {a: true, c: true},
	OpAdd: {a: true, b: true}, OpAddC: {a: true, b: true}, OpAnd: {a: true, b: true},
	OpDiv: {a: true, b: true}, OpMax: {a: true, b: true}, OpMin: {a: true, b: true},
	OpMul: {a: true, b: true}, OpMul24: {a: true, b: true}, OpOr: {a: true, b: true},
	OpRem: {a: true, b: true}, OpSet: {a: true, b: true}, OpSetP: {a: true, b: true},
	OpShl: {a: true, b: true}, OpShr: {a: true, b: true}, OpSub: {a: true, b: true},
	OpSubC: {a: true, b: true}, OpXor: {a: true, b: true}, OpAtom: {a: true, b: true},
	OpRed: {a: true, b: true},
	OpMad: {a: true, b: true, c: true}, OpMad24: {a: true, b: true, c: true},
	OpSad: {a: true, b: true, c: true}, OpSelP: {a: true, b: true, c: true},
	OpSlCt: {a: true, b: true, c: true},
}

// WritesDestination reports whether D is a register written by op.
func (op Opcode) WritesDestination() bool {
	switch op {
	case OpBar, OpBra, OpBrkpt, OpCall, OpExit, OpMembar, OpPmevent, OpRed, OpRet, OpSt, OpTrap:
		return false
	}
	return op > OpInvalid && op < OpcodeCount
}

// Typed reports whether op carries a data type.
func (op Opcode) Typed() bool {
	switch op {
	case OpBar, OpBra, OpBrkpt, OpCall, OpExit, OpMembar, OpRet, OpTrap, OpPmevent:
		return false
	}
	return true
}

func (i *Instruction) Guarded() bool { return i.PG.Condition != PT }

// Validate checks the structural well-formedness of i. It does not decide
// whether i can be lowered.
func (i *Instruction) Validate() error {
	if i.Opcode <= OpInvalid || i.Opcode >= OpcodeCount {
		return fmt.Errorf("%w: unknown opcode %d", ErrInvalid, int(i.Opcode))
	}
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", ErrInvalid, i.Opcode, fmt.Sprintf(format, args...))
	}

	if i.Opcode.Typed() && !i.Type.Valid() {
		return fail("missing data type")
	}

	switch i.PG.Condition {
	case PT, NPT:
	case Pred, InvPred:
		if i.PG.Mode != Register || i.PG.Type != Predicate {
			return fail("guard must be a predicate register")
		}
	default:
		return fail("unknown guard condition %d", int(i.PG.Condition))
	}

	if i.Vec != 0 && i.Vec != 1 && i.Vec != 2 && i.Vec != 4 {
		return fail("unsupported vector width %d", i.Vec)
	}

	slots := operandArity[i.Opcode]
	check := func(name string, op Operand, required bool) error {
		if op.Mode == Invalid && !op.IsVector() {
			if required {
				return fail("missing operand %s", name)
			}
			return nil
		}
		if op.Mode == Label {
			return fail("label operand %s outside a branch", name)
		}
		if err := op.validate(); err != nil {
			return fail("operand %s: %v", name, err)
		}
		return nil
	}

	switch {
	case i.Opcode == OpBra:
		if i.D.Mode != Label || i.D.Identifier == "" {
			return fail("branch target must be a label")
		}
	case i.Opcode.WritesDestination() || i.Opcode == OpSt:
		if err := check("d", i.D, true); err != nil {
			return err
		}
	}

	if err := check("a", i.A, slots.a); err != nil {
		return err
	}
	if err := check("b", i.B, slots.b); err != nil {
		return err
	}
	needC := slots.c || (i.Opcode == OpAtom && i.Atomic == AtomCas)
	if err := check("c", i.C, needC); err != nil {
		return err
	}
	if err := check("pq", i.PQ, false); err != nil {
		return err
	}

	switch i.Opcode {
	case OpSetP:
		if i.D.Type != Predicate {
			return fail("destination must be a predicate")
		}
		if i.PQ.Mode != Invalid && i.PQ.Type != Predicate {
			return fail("second destination must be a predicate")
		}
	case OpSelP:
		if i.C.Type != Predicate {
			return fail("selector must be a predicate")
		}
	case OpTex:
		if i.D.Width() != 4 {
			return fail("texture destination must have four lanes")
		}
	case OpLd:
		if i.Vec > 1 && i.D.Width() != i.Vec {
			return fail("vector width %d does not match destination", i.Vec)
		}
	case OpSt:
		if i.Vec > 1 && i.A.Width() != i.Vec {
			return fail("vector width %d does not match source", i.Vec)
		}
	case OpAtom, OpRed:
		if i.Atomic == AtomNone {
			return fail("missing atomic operation")
		}
		if i.Opcode == OpRed && (i.Atomic == AtomCas || i.Atomic == AtomExch) {
			return fail("reduction cannot %s", i.Atomic)
		}
	case OpSet:
		if i.Cmp == CmpNone {
			return fail("missing comparison")
		}
	}
	if i.Opcode == OpSetP && i.Cmp == CmpNone {
		return fail("missing comparison")
	}
	if i.BoolOp != BoolNone && i.C.Mode == Invalid {
		return fail("boolean operator %s without an operand", i.BoolOp)
	}
	return nil
}

// Clone returns a deep copy of i.
func (i *Instruction) Clone() *Instruction {
	c := *i
	for _, op := range []*Operand{&c.D, &c.A, &c.B, &c.C, &c.PG, &c.PQ} {
		op.cloneArray()
	}
	return &c
}

func (o *Operand) cloneArray() {
	if o.Array != nil {
		o.Array = append([]Operand(nil), o.Array...)
		for i := range o.Array {
			o.Array[i].cloneArray()
		}
	}
	if o.Prior != nil {
		p := *o.Prior
		o.Prior = &p
	}
}

// Defs returns the register operands i writes, in slot order.
func (i *Instruction) Defs() []*Operand {
	var defs []*Operand
	if i.Opcode.WritesDestination() {
		defs = appendRegisters(defs, &i.D)
	}
	if i.Opcode == OpSetP && i.PQ.Mode == Register {
		defs = append(defs, &i.PQ)
	}
	return defs
}

// Uses returns the register operands i reads, including the guard.
func (i *Instruction) Uses() []*Operand {
	var uses []*Operand
	if i.PG.Condition == Pred || i.PG.Condition == InvPred {
		uses = append(uses, &i.PG)
	}
	for _, op := range []*Operand{&i.A, &i.B, &i.C} {
		uses = appendRegisters(uses, op)
	}
	if !i.Opcode.WritesDestination() && i.Opcode != OpBra {
		uses = appendRegisters(uses, &i.D)
	}
	return uses
}

func appendRegisters(list []*Operand, op *Operand) []*Operand {
	if op.IsVector() {
		for k := range op.Array {
			if op.Array[k].IsRegister() {
				list = append(list, &op.Array[k])
			}
		}
		return list
	}
	if op.IsRegister() {
		list = append(list, op)
	}
	return list
}

func (i *Instruction) String() string {
	var sb strings.Builder
	sb.WriteString(i.PG.guardString())
	sb.WriteString(i.Opcode.String())
	if i.Opcode == OpSet || i.Opcode == OpSetP {
		if i.Cmp != CmpNone {
			sb.WriteString("." + i.Cmp.String())
		}
		if i.BoolOp != BoolNone {
			sb.WriteString("." + i.BoolOp.String())
		}
	}
	if i.Opcode == OpAtom || i.Opcode == OpRed {
		if i.Space != SpaceNone {
			sb.WriteString("." + i.Space.String())
		}
		sb.WriteString("." + i.Atomic.String())
	} else if i.Space != SpaceNone {
		sb.WriteString("." + i.Space.String())
	}
	if i.Volatile {
		sb.WriteString(".volatile")
	}
	if i.Opcode == OpVote && i.Vote != VoteNone {
		sb.WriteString("." + i.Vote.String())
	}
	if i.Opcode == OpMembar && i.Level != LevelNone {
		sb.WriteString("." + i.Level.String())
	}
	if i.Geometry != GeomNone {
		sb.WriteString("." + i.Geometry.String())
	}
	if m := i.Modifier.String(); m != "" {
		sb.WriteString("." + m)
	}
	if i.Vec > 1 {
		fmt.Fprintf(&sb, ".v%d", i.Vec)
	}
	if i.Opcode == OpCvt && i.Type.Valid() {
		fmt.Fprintf(&sb, ".%s.%s", i.Type, i.A.Type)
	} else if i.Opcode.Typed() && i.Type.Valid() {
		sb.WriteString("." + i.Type.String())
	}

	var ops []string
	for _, op := range []Operand{i.D, i.PQ, i.A, i.B, i.C} {
		if op.Mode != Invalid || op.IsVector() {
			ops = append(ops, op.String())
		}
	}
	if len(ops) > 0 {
		sb.WriteString(" ")
		sb.WriteString(strings.Join(ops, ", "))
	}
	return sb.String()
}
