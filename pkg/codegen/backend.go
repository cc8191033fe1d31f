package codegen

import (
	"bytes"

	"github.com/xplshn/ptxlower/pkg/ir"
)

// Backend is the interface that all code generation backends must implement.
type Backend interface {
	// Generate takes a translated kernel and produces its textual form as a
	// byte buffer.
	Generate(k *ir.Kernel) (*bytes.Buffer, error)
}
