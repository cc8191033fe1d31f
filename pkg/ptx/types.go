package ptx

import (
	"fmt"
	"strings"
)

type DataType int

const (
	TypeInvalid DataType = iota
	Predicate
	B8
	B16
	B32
	B64
	U8
	U16
	U32
	U64
	S8
	S16
	S32
	S64
	F16
	F32
	F64
)

var dataTypeNames = []string{
	TypeInvalid: "invalid",
	Predicate:   "pred",
	B8:          "b8",
	B16:         "b16",
	B32:         "b32",
	B64:         "b64",
	U8:          "u8",
	U16:         "u16",
	U32:         "u32",
	U64:         "u64",
	S8:          "s8",
	S16:         "s16",
	S32:         "s32",
	S64:         "s64",
	F16:         "f16",
	F32:         "f32",
	F64:         "f64",
}

func (t DataType) String() string { return enumName(t, dataTypeNames) }

func (t DataType) MarshalText() ([]byte, error) { return marshalEnum(t, dataTypeNames) }

func (t *DataType) UnmarshalText(text []byte) error {
	return unmarshalEnum(t, text, dataTypeNames, "data type")
}

func (t DataType) Valid() bool { return t > TypeInvalid && t <= F64 }

func (t DataType) IsFloat() bool { return t == F16 || t == F32 || t == F64 }

func (t DataType) IsSigned() bool { return t >= S8 && t <= S64 }

func (t DataType) IsUnsigned() bool { return t >= U8 && t <= U64 }

// IsInt reports whether t is an integer or untyped-bits type.
func (t DataType) IsInt() bool { return t >= B8 && t <= S64 }

func (t DataType) Bits() int {
	switch t {
	case Predicate:
		return 1
	case B8, U8, S8:
		return 8
	case B16, U16, S16, F16:
		return 16
	case B32, U32, S32, F32:
		return 32
	case B64, U64, S64, F64:
		return 64
	default:
		return 0
	}
}

// Bytes rounds the predicate type up to one byte.
func (t DataType) Bytes() int {
	if t == Predicate {
		return 1
	}
	return t.Bits() / 8
}

func enumName[T ~int](v T, names []string) string {
	if int(v) < 0 || int(v) >= len(names) || names[v] == "" {
		return fmt.Sprintf("<%d>", int(v))
	}
	return names[v]
}

func marshalEnum[T ~int](v T, names []string) ([]byte, error) {
	if int(v) < 0 || int(v) >= len(names) {
		return nil, fmt.Errorf("value %d out of range", int(v))
	}
	return []byte(names[v]), nil
}

func unmarshalEnum[T ~int](v *T, text []byte, names []string, kind string) error {
	s := strings.ToLower(strings.TrimPrefix(string(text), "."))
	if s == "" {
		*v = 0
		return nil
	}
	for i, name := range names {
		if name != "" && name == s {
			*v = T(i)
			return nil
		}
	}
	return fmt.Errorf("unknown %s '%s'", kind, string(text))
}
