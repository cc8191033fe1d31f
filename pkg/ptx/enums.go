package ptx

import (
	"fmt"
	"strings"
)

type Opcode int

const (
	OpInvalid Opcode = iota
	OpAbs
	OpAdd
	OpAddC
	OpAnd
	OpAtom
	OpBar
	OpBra
	OpBrkpt
	OpCall
	OpCNot
	OpCos
	OpCvt
	OpDiv
	OpEx2
	OpExit
	OpLd
	OpLg2
	OpMad24
	OpMad
	OpMax
	OpMembar
	OpMin
	OpMov
	OpMul24
	OpMul
	OpNeg
	OpNot
	OpOr
	OpPmevent
	OpRcp
	OpRed
	OpRem
	OpRet
	OpRsqrt
	OpSad
	OpSelP
	OpSet
	OpSetP
	OpShl
	OpShr
	OpSin
	OpSlCt
	OpSqrt
	OpSt
	OpSub
	OpSubC
	OpTex
	OpTrap
	OpVote
	OpXor
	OpcodeCount
)

var opcodeNames = []string{
	OpInvalid: "invalid",
	OpAbs:     "abs", OpAdd: "add", OpAddC: "addc", OpAnd: "and", OpAtom: "atom",
	OpBar: "bar", OpBra: "bra", OpBrkpt: "brkpt", OpCall: "call", OpCNot: "cnot",
	OpCos: "cos", OpCvt: "cvt", OpDiv: "div", OpEx2: "ex2", OpExit: "exit",
	OpLd: "ld", OpLg2: "lg2", OpMad24: "mad24", OpMad: "mad", OpMax: "max",
	OpMembar: "membar", OpMin: "min", OpMov: "mov", OpMul24: "mul24", OpMul: "mul",
	OpNeg: "neg", OpNot: "not", OpOr: "or", OpPmevent: "pmevent", OpRcp: "rcp",
	OpRed: "red", OpRem: "rem", OpRet: "ret", OpRsqrt: "rsqrt", OpSad: "sad",
	OpSelP: "selp", OpSet: "set", OpSetP: "setp", OpShl: "shl", OpShr: "shr",
	OpSin: "sin", OpSlCt: "slct", OpSqrt: "sqrt", OpSt: "st", OpSub: "sub",
	OpSubC: "subc", OpTex: "tex", OpTrap: "trap", OpVote: "vote", OpXor: "xor",
}

func (o Opcode) String() string               { return enumName(o, opcodeNames) }
func (o Opcode) MarshalText() ([]byte, error) { return marshalEnum(o, opcodeNames) }
func (o *Opcode) UnmarshalText(text []byte) error {
	return unmarshalEnum(o, text, opcodeNames, "opcode")
}

// Modifier is the set of instruction suffixes that alter its semantics.
type Modifier uint32

const (
	ModHi Modifier = 1 << iota
	ModLo
	ModWide
	ModSat
	ModFtz
	ModApprox
	ModFull
	ModRn
	ModRz
	ModRm
	ModRp
	ModRni
	ModRzi
	ModRmi
	ModRpi
	ModCarry
	ModUni
)

const RoundingMask = ModRn | ModRz | ModRm | ModRp | ModRni | ModRzi | ModRmi | ModRpi

var modifierNames = []struct {
	bit  Modifier
	name string
}{
	{ModHi, "hi"}, {ModLo, "lo"}, {ModWide, "wide"}, {ModSat, "sat"},
	{ModFtz, "ftz"}, {ModApprox, "approx"}, {ModFull, "full"},
	{ModRn, "rn"}, {ModRz, "rz"}, {ModRm, "rm"}, {ModRp, "rp"},
	{ModRni, "rni"}, {ModRzi, "rzi"}, {ModRmi, "rmi"}, {ModRpi, "rpi"},
	{ModCarry, "cc"}, {ModUni, "uni"},
}

func (m Modifier) Has(bits Modifier) bool { return m&bits == bits }

func (m Modifier) Rounding() Modifier { return m & RoundingMask }

// String renders m as dot-separated suffixes, e.g. "wide.sat".
func (m Modifier) String() string {
	var parts []string
	for _, n := range modifierNames {
		if m&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, ".")
}

func (m Modifier) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Modifier) UnmarshalText(text []byte) error {
	*m = 0
	for _, part := range strings.Split(strings.Trim(string(text), "."), ".") {
		if part == "" {
			continue
		}
		found := false
		for _, n := range modifierNames {
			if n.name == part {
				*m |= n.bit
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown modifier '%s'", part)
		}
	}
	return nil
}

type AddressSpace int

const (
	SpaceNone AddressSpace = iota
	SpaceConst
	SpaceGlobal
	SpaceLocal
	SpaceParam
	SpaceShared
	SpaceTexture
)

var spaceNames = []string{
	SpaceNone: "", SpaceConst: "const", SpaceGlobal: "global", SpaceLocal: "local",
	SpaceParam: "param", SpaceShared: "shared", SpaceTexture: "tex",
}

func (s AddressSpace) String() string               { return enumName(s, spaceNames) }
func (s AddressSpace) MarshalText() ([]byte, error) { return marshalEnum(s, spaceNames) }
func (s *AddressSpace) UnmarshalText(text []byte) error {
	return unmarshalEnum(s, text, spaceNames, "address space")
}

type Geometry int

const (
	GeomNone Geometry = iota
	Geom1D
	Geom2D
	Geom3D
)

var geometryNames = []string{GeomNone: "", Geom1D: "1d", Geom2D: "2d", Geom3D: "3d"}

func (g Geometry) String() string               { return enumName(g, geometryNames) }
func (g Geometry) MarshalText() ([]byte, error) { return marshalEnum(g, geometryNames) }
func (g *Geometry) UnmarshalText(text []byte) error {
	return unmarshalEnum(g, text, geometryNames, "geometry")
}

type CmpOp int

const (
	CmpNone CmpOp = iota
	CmpEq
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
	CmpLo
	CmpLs
	CmpHi
	CmpHs
	CmpEqu
	CmpNeu
	CmpLtu
	CmpLeu
	CmpGtu
	CmpGeu
	CmpNum
	CmpNan
)

var cmpNames = []string{
	CmpNone: "", CmpEq: "eq", CmpNe: "ne", CmpLt: "lt", CmpLe: "le", CmpGt: "gt", CmpGe: "ge",
	CmpLo: "lo", CmpLs: "ls", CmpHi: "hi", CmpHs: "hs",
	CmpEqu: "equ", CmpNeu: "neu", CmpLtu: "ltu", CmpLeu: "leu", CmpGtu: "gtu", CmpGeu: "geu",
	CmpNum: "num", CmpNan: "nan",
}

func (c CmpOp) String() string               { return enumName(c, cmpNames) }
func (c CmpOp) MarshalText() ([]byte, error) { return marshalEnum(c, cmpNames) }
func (c *CmpOp) UnmarshalText(text []byte) error {
	return unmarshalEnum(c, text, cmpNames, "comparison")
}

type BoolOp int

const (
	BoolNone BoolOp = iota
	BoolAnd
	BoolOr
	BoolXor
)

var boolOpNames = []string{BoolNone: "", BoolAnd: "and", BoolOr: "or", BoolXor: "xor"}

func (b BoolOp) String() string               { return enumName(b, boolOpNames) }
func (b BoolOp) MarshalText() ([]byte, error) { return marshalEnum(b, boolOpNames) }
func (b *BoolOp) UnmarshalText(text []byte) error {
	return unmarshalEnum(b, text, boolOpNames, "boolean operator")
}

// AtomicOp is shared by atom and red.
type AtomicOp int

const (
	AtomNone AtomicOp = iota
	AtomAnd
	AtomOr
	AtomXor
	AtomCas
	AtomExch
	AtomAdd
	AtomInc
	AtomDec
	AtomMin
	AtomMax
)

var atomicNames = []string{
	AtomNone: "", AtomAnd: "and", AtomOr: "or", AtomXor: "xor", AtomCas: "cas", AtomExch: "exch",
	AtomAdd: "add", AtomInc: "inc", AtomDec: "dec", AtomMin: "min", AtomMax: "max",
}

func (a AtomicOp) String() string               { return enumName(a, atomicNames) }
func (a AtomicOp) MarshalText() ([]byte, error) { return marshalEnum(a, atomicNames) }
func (a *AtomicOp) UnmarshalText(text []byte) error {
	return unmarshalEnum(a, text, atomicNames, "atomic operation")
}

type VoteMode int

const (
	VoteNone VoteMode = iota
	VoteAll
	VoteAny
	VoteUni
)

var voteNames = []string{VoteNone: "", VoteAll: "all", VoteAny: "any", VoteUni: "uni"}

func (v VoteMode) String() string               { return enumName(v, voteNames) }
func (v VoteMode) MarshalText() ([]byte, error) { return marshalEnum(v, voteNames) }
func (v *VoteMode) UnmarshalText(text []byte) error {
	return unmarshalEnum(v, text, voteNames, "vote mode")
}

type BarrierLevel int

const (
	LevelNone BarrierLevel = iota
	LevelCta
	LevelGlobal
)

var levelNames = []string{LevelNone: "", LevelCta: "cta", LevelGlobal: "gl"}

func (l BarrierLevel) String() string               { return enumName(l, levelNames) }
func (l BarrierLevel) MarshalText() ([]byte, error) { return marshalEnum(l, levelNames) }
func (l *BarrierLevel) UnmarshalText(text []byte) error {
	return unmarshalEnum(l, text, levelNames, "barrier level")
}
