package ptx

import (
	"fmt"
	"strconv"
	"strings"
)

type AddressMode int

const (
	Invalid AddressMode = iota
	Register
	Indirect
	Immediate
	Address
	Label
	Special
)

var addressModeNames = []string{
	Invalid:   "invalid",
	Register:  "register",
	Indirect:  "indirect",
	Immediate: "immediate",
	Address:   "address",
	Label:     "label",
	Special:   "special",
}

func (m AddressMode) String() string               { return enumName(m, addressModeNames) }
func (m AddressMode) MarshalText() ([]byte, error) { return marshalEnum(m, addressModeNames) }
func (m *AddressMode) UnmarshalText(text []byte) error {
	return unmarshalEnum(m, text, addressModeNames, "address mode")
}

// PredCondition is the guard of an instruction. The zero value is PT, an
// unconditionally true guard.
type PredCondition int

const (
	PT PredCondition = iota
	NPT
	Pred
	InvPred
)

var predConditionNames = []string{PT: "pt", NPT: "npt", Pred: "pred", InvPred: "invpred"}

func (c PredCondition) String() string               { return enumName(c, predConditionNames) }
func (c PredCondition) MarshalText() ([]byte, error) { return marshalEnum(c, predConditionNames) }
func (c *PredCondition) UnmarshalText(text []byte) error {
	return unmarshalEnum(c, text, predConditionNames, "predicate condition")
}

type SpecialRegister int

const (
	SpecialNone SpecialRegister = iota
	TidX
	TidY
	TidZ
	NtidX
	NtidY
	NtidZ
	CtaIDX
	CtaIDY
	CtaIDZ
	NctaIDX
	NctaIDY
	NctaIDZ
	LaneID
	WarpID
	WarpSize
	SmID
	NsmID
	GridID
	Clock
	Pm0
	Pm1
	Pm2
	Pm3
)

var specialNames = []string{
	SpecialNone: "",
	TidX:        "tid.x", TidY: "tid.y", TidZ: "tid.z",
	NtidX: "ntid.x", NtidY: "ntid.y", NtidZ: "ntid.z",
	CtaIDX: "ctaid.x", CtaIDY: "ctaid.y", CtaIDZ: "ctaid.z",
	NctaIDX: "nctaid.x", NctaIDY: "nctaid.y", NctaIDZ: "nctaid.z",
	LaneID:   "laneid",
	WarpID:   "warpid",
	WarpSize: "warpsize",
	SmID:     "smid",
	NsmID:    "nsmid",
	GridID:   "gridid",
	Clock:    "clock",
	Pm0:      "pm0", Pm1: "pm1", Pm2: "pm2", Pm3: "pm3",
}

func (s SpecialRegister) String() string               { return "%" + enumName(s, specialNames) }
func (s SpecialRegister) MarshalText() ([]byte, error) { return marshalEnum(s, specialNames) }
func (s *SpecialRegister) UnmarshalText(text []byte) error {
	return unmarshalEnum(s, []byte(strings.TrimPrefix(string(text), "%")), specialNames, "special register")
}

type RegisterID uint32

// Operand is one source-ISA operand. Vector operands list their lanes in
// Array; the mode of a vector operand itself is not interpreted.
type Operand struct {
	Mode       AddressMode     `json:"mode"`
	Type       DataType        `json:"type,omitempty"`
	Vec        int             `json:"vec,omitempty"`
	Reg        RegisterID      `json:"reg,omitempty"`
	Imm        uint64          `json:"imm,omitempty"`
	Float      float64         `json:"float,omitempty"`
	Identifier string          `json:"identifier,omitempty"`
	Offset     int64           `json:"offset,omitempty"`
	Special    SpecialRegister `json:"special,omitempty"`
	Condition  PredCondition   `json:"condition,omitempty"`
	Array      []Operand       `json:"array,omitempty"`

	// Prior names the reaching definition that a guarded write merges with.
	// SSA conversion sets it; it is nil otherwise.
	Prior *RegisterID `json:"-"`
}

func Reg(id RegisterID, t DataType) Operand { return Operand{Mode: Register, Type: t, Reg: id} }

func IndirectReg(id RegisterID, offset int64, t DataType) Operand {
	return Operand{Mode: Indirect, Type: t, Reg: id, Offset: offset}
}

func Imm(t DataType, v uint64) Operand { return Operand{Mode: Immediate, Type: t, Imm: v} }

func ImmFloat(t DataType, v float64) Operand { return Operand{Mode: Immediate, Type: t, Float: v} }

func Addr(symbol string, offset int64, t DataType) Operand {
	return Operand{Mode: Address, Type: t, Identifier: symbol, Offset: offset}
}

func Sreg(s SpecialRegister) Operand {
	t := U16
	if s == Clock {
		t = U32
	}
	return Operand{Mode: Special, Type: t, Special: s}
}

func LabelRef(name string) Operand { return Operand{Mode: Label, Identifier: name} }

func Vector(lanes ...Operand) Operand {
	op := Operand{Mode: Register, Vec: len(lanes), Array: lanes}
	if len(lanes) > 0 {
		op.Type = lanes[0].Type
	}
	return op
}

// Guard returns a guard predicated on register id, negated when inverted is set.
func Guard(id RegisterID, inverted bool) Operand {
	op := Operand{Mode: Register, Type: Predicate, Reg: id, Condition: Pred}
	if inverted {
		op.Condition = InvPred
	}
	return op
}

// Never returns the unconditionally false guard.
func Never() Operand { return Operand{Condition: NPT} }

func (o Operand) Width() int {
	if o.Vec <= 1 {
		return 1
	}
	return o.Vec
}

func (o Operand) IsVector() bool { return o.Vec > 1 }

func (o Operand) Bytes() int { return o.Type.Bytes() * o.Width() }

// IsRegister reports whether o reads or writes a virtual register directly.
func (o Operand) IsRegister() bool {
	return !o.IsVector() && (o.Mode == Register || o.Mode == Indirect)
}

// Lanes returns the scalar operands making up o.
func (o Operand) Lanes() []Operand {
	if o.IsVector() {
		return o.Array
	}
	return []Operand{o}
}

func (o Operand) validate() error {
	if o.IsVector() {
		if len(o.Array) != o.Vec {
			return fmt.Errorf("vector operand declares %d lanes but lists %d", o.Vec, len(o.Array))
		}
		if o.Vec != 2 && o.Vec != 4 {
			return fmt.Errorf("unsupported vector width %d", o.Vec)
		}
		for _, lane := range o.Array {
			if lane.IsVector() {
				return fmt.Errorf("nested vector operand")
			}
			if err := lane.validate(); err != nil {
				return fmt.Errorf("lane %s: %w", lane, err)
			}
		}
		return nil
	}
	switch o.Mode {
	case Register, Indirect, Immediate:
		if !o.Type.Valid() {
			return fmt.Errorf("%s operand has invalid type", o.Mode)
		}
	case Address:
		if o.Identifier == "" {
			return fmt.Errorf("address operand without a symbol")
		}
	case Label:
		if o.Identifier == "" {
			return fmt.Errorf("label operand without a name")
		}
	case Special:
		if o.Special == SpecialNone || int(o.Special) >= len(specialNames) {
			return fmt.Errorf("unknown special register %d", int(o.Special))
		}
	case Invalid:
		return fmt.Errorf("missing operand")
	default:
		return fmt.Errorf("unknown address mode %d", int(o.Mode))
	}
	return nil
}

func (o Operand) String() string {
	if o.IsVector() {
		lanes := make([]string, len(o.Array))
		for i, lane := range o.Array {
			lanes[i] = lane.String()
		}
		return "{" + strings.Join(lanes, ", ") + "}"
	}
	switch o.Mode {
	case Register:
		return fmt.Sprintf("%%r%d", o.Reg)
	case Indirect:
		if o.Offset != 0 {
			return fmt.Sprintf("[%%r%d%+d]", o.Reg, o.Offset)
		}
		return fmt.Sprintf("[%%r%d]", o.Reg)
	case Immediate:
		if o.Type.IsFloat() {
			return strconv.FormatFloat(o.Float, 'g', -1, 64)
		}
		if o.Type.IsSigned() {
			return strconv.FormatInt(int64(o.Imm), 10)
		}
		return strconv.FormatUint(o.Imm, 10)
	case Address:
		if o.Offset != 0 {
			return fmt.Sprintf("[%s%+d]", o.Identifier, o.Offset)
		}
		return "[" + o.Identifier + "]"
	case Label:
		return o.Identifier
	case Special:
		return o.Special.String()
	default:
		return "<invalid>"
	}
}

// guardString renders o as an instruction guard prefix.
func (o Operand) guardString() string {
	switch o.Condition {
	case NPT:
		return "@!pt "
	case Pred:
		return fmt.Sprintf("@%%r%d ", o.Reg)
	case InvPred:
		return fmt.Sprintf("@!%%r%d ", o.Reg)
	default:
		return ""
	}
}
