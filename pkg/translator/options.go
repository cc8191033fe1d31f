package translator

// DiagnosticKind classifies a non-fatal observation made during translation.
type DiagnosticKind int

const (
	DiagUninitialized DiagnosticKind = iota
	DiagBarrier
	DiagApproxMad
	DiagVolatile
)

func (k DiagnosticKind) String() string {
	switch k {
	case DiagUninitialized: return "uninitialized"
	case DiagBarrier: return "barrier"
	case DiagApproxMad: return "approx-mad"
	case DiagVolatile: return "volatile"
	default: return "unknown"
	}
}

type Diagnostic struct {
	Kind    DiagnosticKind
	Kernel  string
	Block   string
	Message string
}

type options struct {
	unsignedCompare bool
	mulHi           bool
	verify          bool
	declareAll      bool
	clampSat        bool
	diagnostics     func(Diagnostic)
}

func defaultOptions() options {
	return options{unsignedCompare: true, mulHi: true, verify: true, clampSat: true}
}

// flags packs the switches that change the produced program.
func (o options) flags() uint8 {
	var f uint8
	for i, on := range []bool{o.unsignedCompare, o.mulHi, o.verify, o.declareAll, o.clampSat} {
		if on { f |= 1 << i }
	}
	return f
}

type Option func(*options)

// WithUnsignedCompare selects unsigned integer predicates for unsigned
// operands and for the lo, ls, hi and hs comparisons.
func WithUnsignedCompare(on bool) Option { return func(o *options) { o.unsignedCompare = on } }

// WithMulHi allows the hi forms of mul and mad.
func WithMulHi(on bool) Option { return func(o *options) { o.mulHi = on } }

// WithVerify validates every emitted instruction.
func WithVerify(on bool) Option { return func(o *options) { o.verify = on } }

// WithDeclareAll declares every fixed-signature intrinsic, referenced or not.
func WithDeclareAll(on bool) Option { return func(o *options) { o.declareAll = on } }

// WithClampSat clamps saturated float results at 1.0 as well as at 0.0.
func WithClampSat(on bool) Option { return func(o *options) { o.clampSat = on } }

func WithDiagnostics(fn func(Diagnostic)) Option { return func(o *options) { o.diagnostics = fn } }
