package ir

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Primitive int

const (
	PrimInvalid Primitive = iota
	Void
	I1
	I8
	I16
	I32
	I64
	F32
	F64
	F128
)

var primitiveNames = []string{
	PrimInvalid: "<invalid>", Void: "void", I1: "i1", I8: "i8", I16: "i16", I32: "i32", I64: "i64",
	F32: "float", F64: "double", F128: "fp128",
}

func (p Primitive) String() string {
	if p < 0 || int(p) >= len(primitiveNames) { return fmt.Sprintf("<prim %d>", int(p)) }
	return primitiveNames[p]
}

func (p Primitive) IsInt() bool   { return p >= I1 && p <= I64 }
func (p Primitive) IsFloat() bool { return p >= F32 && p <= F128 }

func (p Primitive) Bits() int {
	switch p {
	case I1: return 1
	case I8: return 8
	case I16: return 16
	case I32, F32: return 32
	case I64, F64: return 64
	case F128: return 128
	default: return 0
	}
}

// Suffix is the short spelling used to mangle overloaded intrinsic names.
func (p Primitive) Suffix() string {
	switch p {
	case F32: return "f32"
	case F64: return "f64"
	case F128: return "f128"
	default: return p.String()
	}
}

type Category int

const (
	Element Category = iota
	Vector
	Pointer
	Structure
)

// Type describes a target type. A non-empty Label names a declared
// structure; a Pointer with a Label points at that structure and a Pointer
// with one member points at that member.
type Type struct {
	Category  Category
	Primitive Primitive
	Vector    int
	Members   []Type
	Label     string
}

func Elem(p Primitive) Type          { return Type{Category: Element, Primitive: p, Vector: 1} }
func Vec(p Primitive, n int) Type    { return Type{Category: Vector, Primitive: p, Vector: n} }
func Ptr(p Primitive) Type           { return Type{Category: Pointer, Primitive: p, Vector: 1} }
func VecPtr(p Primitive, n int) Type { return Type{Category: Pointer, Primitive: p, Vector: n} }
func PtrTo(t Type) Type              { return Type{Category: Pointer, Members: []Type{t}} }
func Named(label string) Type        { return Type{Category: Structure, Label: label} }
func NamedPtr(label string) Type     { return Type{Category: Pointer, Label: label} }
func Struct(members ...Type) Type    { return Type{Category: Structure, Members: members} }

func (t Type) IsVector() bool  { return t.Category == Vector }
func (t Type) IsPointer() bool { return t.Category == Pointer }
func (t Type) IsInt() bool     { return (t.Category == Element || t.Category == Vector) && t.Primitive.IsInt() }
func (t Type) IsFloat() bool   { return (t.Category == Element || t.Category == Vector) && t.Primitive.IsFloat() }
func (t Type) IsVoid() bool    { return t.Category == Element && t.Primitive == Void }

// Scalar returns the lane type of a vector, or t itself.
func (t Type) Scalar() Type {
	if t.Category == Vector { return Elem(t.Primitive) }
	return t
}

// Pointee returns the type a pointer refers to.
func (t Type) Pointee() Type {
	switch {
	case t.Category != Pointer: return Type{}
	case t.Label != "": return Named(t.Label)
	case len(t.Members) == 1: return t.Members[0]
	case t.Vector > 1: return Vec(t.Primitive, t.Vector)
	default: return Elem(t.Primitive)
	}
}

func (t Type) Equal(o Type) bool { return t.String() == o.String() }

func (t Type) String() string {
	switch t.Category {
	case Element:
		return t.Primitive.String()
	case Vector:
		return fmt.Sprintf("<%d x %s>", t.Vector, t.Primitive)
	case Pointer:
		if t.Label != "" { return t.Label + "*" }
		if len(t.Members) == 1 { return t.Members[0].String() + "*" }
		if t.Vector > 1 { return fmt.Sprintf("<%d x %s>*", t.Vector, t.Primitive) }
		return t.Primitive.String() + "*"
	case Structure:
		if t.Label != "" { return t.Label }
		return t.Body()
	default:
		return "<invalid>"
	}
}

// Body spells out the member list of a structure, ignoring its label.
func (t Type) Body() string {
	members := make([]string, len(t.Members))
	for i, m := range t.Members {
		members[i] = m.String()
	}
	return "{ " + strings.Join(members, ", ") + " }"
}

// Operand is a named value or a typed literal.
type Operand struct {
	Name     string
	Constant bool
	Int      int64
	Float    float64
	Bool     bool
	Type     Type
}

func Value(name string, t Type) Operand { return Operand{Name: name, Type: t} }

func ConstInt(p Primitive, v int64) Operand {
	if p == I1 { return ConstBool(v != 0) }
	return Operand{Constant: true, Int: v, Type: Elem(p)}
}

func ConstFloat(p Primitive, v float64) Operand {
	return Operand{Constant: true, Float: v, Type: Elem(p)}
}

func ConstBool(v bool) Operand { return Operand{Constant: true, Bool: v, Type: Elem(I1)} }

// Zero returns the null constant of an element type.
func Zero(t Type) Operand {
	if t.IsFloat() { return ConstFloat(t.Primitive, 0) }
	return ConstInt(t.Primitive, 0)
}

func Undef(t Type) Operand { return Operand{Name: "undef", Type: t} }

func (o Operand) IsZero() bool { return o.Name == "" && !o.Constant }

// Ref spells the operand without its type.
func (o Operand) Ref() string {
	if !o.Constant { return o.Name }
	switch {
	case o.Type.Primitive == I1: return strconv.FormatBool(o.Bool)
	case o.Type.IsFloat(): return formatFloat(o.Type.Primitive, o.Float)
	default: return strconv.FormatInt(o.Int, 10)
	}
}

func (o Operand) String() string { return o.Type.String() + " " + o.Ref() }

// formatFloat renders v as a hexadecimal double. Single precision values are
// rounded to float first.
func formatFloat(p Primitive, v float64) string {
	if p == F32 { v = float64(float32(v)) }
	return fmt.Sprintf("0x%016X", math.Float64bits(v))
}
