package config

import (
	"strings"

	"github.com/xplshn/ptxlower/pkg/cli"
	"github.com/xplshn/ptxlower/pkg/translator"
	"github.com/xplshn/ptxlower/pkg/util"
)

type Feature int

const (
	FeatUnsignedCompare Feature = iota
	FeatMulHi
	FeatVerify
	FeatCache
	FeatDeclareAll
	FeatClampSat
	FeatCount
)

type Warning int

const (
	WarnUninitialized Warning = iota
	WarnBarrier
	WarnApproxMad
	WarnVolatile
	WarnExtra
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning
	// CacheSize bounds the translation cache when FeatCache is enabled.
	CacheSize int
}

func NewConfig() *Config {
	cfg := &Config{
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
		CacheSize:  256,
	}

	features := map[Feature]Info{
		FeatUnsignedCompare: {"unsigned-compare", true, "Use unsigned predicates for unsigned integer comparisons."},
		FeatMulHi:           {"mul-hi", true, "Allow the high-half forms of mul and mad."},
		FeatVerify:          {"verify", true, "Validate every emitted instruction and the finished kernel."},
		FeatCache:           {"cache", true, "Reuse translations of identical kernels."},
		FeatDeclareAll:      {"declare-all", false, "Declare every fixed intrinsic, referenced or not."},
		FeatClampSat:        {"clamp-sat", true, "Clamp saturated float results at 1.0 as well as 0.0."},
	}

	warnings := map[Warning]Info{
		WarnUninitialized: {"uninitialized", true, "Warn about registers read without a producer."},
		WarnBarrier:       {"barrier", false, "Warn when a barrier becomes a continuation."},
		WarnApproxMad:     {"approx-mad", true, "Warn when a double-width mad is approximated."},
		WarnVolatile:      {"volatile", false, "Warn about volatile loads and stores."},
		WarnExtra:         {"extra", true, "Enable extra miscellaneous warnings."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}
	return cfg
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// ApplyFlag applies one -F or -W switch, with or without the no- prefix.
// -Wall and -Wno-all toggle every warning. It reports whether the switch
// was recognized.
func (c *Config) ApplyFlag(flag string) bool {
	trimmed := strings.TrimPrefix(flag, "-")
	if len(trimmed) < 2 { return false }
	kind, name := trimmed[0], trimmed[1:]
	enable := !strings.HasPrefix(name, "no-")
	name = strings.TrimPrefix(name, "no-")

	switch kind {
	case 'W':
		if name == "all" {
			for i := Warning(0); i < WarnCount; i++ {
				c.SetWarning(i, enable)
			}
			return true
		}
		w, ok := c.WarningMap[name]
		if ok { c.SetWarning(w, enable) }
		return ok
	case 'F':
		f, ok := c.FeatureMap[name]
		if ok { c.SetFeature(f, enable) }
		return ok
	}
	return false
}

// ApplyFlags applies a whitespace-separated list of switches and returns
// the ones it did not recognize.
func (c *Config) ApplyFlags(flags string) []string {
	var unknown []string
	for _, f := range strings.Fields(flags) {
		if !c.ApplyFlag(f) { unknown = append(unknown, f) }
	}
	return unknown
}

// SetupFlagGroups registers -W<name>/-Wno-<name> and -F<name>/-Fno-<name>
// switches on fs. The returned entries are indexed by Warning and Feature.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) (warnings, features []cli.FlagGroupEntry) {
	warnings = make([]cli.FlagGroupEntry, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		warnings[i] = cli.FlagGroupEntry{Name: info.Name, Prefix: "W", Usage: info.Description, Enabled: new(bool), Disabled: new(bool)}
		*warnings[i].Enabled = info.Enabled
	}
	features = make([]cli.FlagGroupEntry, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		features[i] = cli.FlagGroupEntry{Name: info.Name, Prefix: "F", Usage: info.Description, Enabled: new(bool), Disabled: new(bool)}
		*features[i].Enabled = info.Enabled
	}
	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning", "Available Warnings:", warnings)
	fs.AddFlagGroup("Feature Flags", "Enable or disable translation features", "feature", "Available Features:", features)
	return warnings, features
}

// ApplyFlagGroups copies the parsed switch values back into c. A -no- form
// wins over the positive one.
func (c *Config) ApplyFlagGroups(warnings, features []cli.FlagGroupEntry) {
	for i, entry := range warnings {
		c.SetWarning(Warning(i), *entry.Enabled && !*entry.Disabled)
	}
	for i, entry := range features {
		c.SetFeature(Feature(i), *entry.Enabled && !*entry.Disabled)
	}
}

var diagnosticWarnings = map[translator.DiagnosticKind]Warning{
	translator.DiagUninitialized: WarnUninitialized,
	translator.DiagBarrier:       WarnBarrier,
	translator.DiagApproxMad:     WarnApproxMad,
	translator.DiagVolatile:      WarnVolatile,
}

// WarningFor maps a translator diagnostic onto the switch that gates it.
func WarningFor(kind translator.DiagnosticKind) Warning {
	if w, ok := diagnosticWarnings[kind]; ok { return w }
	return WarnExtra
}

// Options converts the feature switches into translator options. Enabled
// warnings are reported through util.Warn against loc; an empty loc.Kernel
// is filled from the diagnostic.
func (c *Config) Options(loc util.Location) []translator.Option {
	return []translator.Option{
		translator.WithUnsignedCompare(c.IsFeatureEnabled(FeatUnsignedCompare)),
		translator.WithMulHi(c.IsFeatureEnabled(FeatMulHi)),
		translator.WithVerify(c.IsFeatureEnabled(FeatVerify)),
		translator.WithDeclareAll(c.IsFeatureEnabled(FeatDeclareAll)),
		translator.WithClampSat(c.IsFeatureEnabled(FeatClampSat)),
		translator.WithDiagnostics(func(d translator.Diagnostic) {
			w := WarningFor(d.Kind)
			if !c.IsWarningEnabled(w) { return }
			at := loc
			if at.Kernel == "" { at.Kernel = d.Kernel }
			at.Block = d.Block
			util.Warn(at, c.Warnings[w].Name, "%s", d.Message)
		}),
	}
}
