package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

const indentUnit = 4

func indent(level int) string { return strings.Repeat(" ", indentUnit*level) }

type Value interface {
	String() string
	Set(string) error
	Get() any
}

type stringValue struct{ p *string }

func (v *stringValue) Set(s string) error { *v.p = s; return nil }
func (v *stringValue) String() string     { return *v.p }
func (v *stringValue) Get() any           { return *v.p }

type boolValue struct{ p *bool }

// Set treats an empty string as a bare switch.
func (v *boolValue) Set(s string) error {
	if s == "" {
		*v.p = true
		return nil
	}
	val, err := strconv.ParseBool(s)
	if err != nil { return fmt.Errorf("invalid boolean value '%s': %w", s, err) }
	*v.p = val
	return nil
}
func (v *boolValue) String() string { return strconv.FormatBool(*v.p) }
func (v *boolValue) Get() any       { return *v.p }

type intValue struct{ p *int }

func (v *intValue) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil { return fmt.Errorf("invalid integer value '%s': %w", s, err) }
	*v.p = n
	return nil
}
func (v *intValue) String() string { return strconv.Itoa(*v.p) }
func (v *intValue) Get() any       { return *v.p }

type listValue struct{ p *[]string }

func (v *listValue) Set(s string) error { *v.p = append(*v.p, s); return nil }
func (v *listValue) String() string     { return strings.Join(*v.p, ", ") }
func (v *listValue) Get() any           { return *v.p }

type Flag struct {
	Name         string
	Shorthand    string
	Usage        string
	Value        Value
	DefValue     string
	ExpectedType string
}

func (f *Flag) isBool() bool {
	_, ok := f.Value.(*boolValue)
	return ok
}

// FlagGroup is a family of switches sharing a prefix, such as -W<name> and
// -Wno-<name>.
type FlagGroup struct {
	Name                 string
	Description          string
	Flags                []FlagGroupEntry
	GroupType            string
	AvailableFlagsHeader string
}

type FlagGroupEntry struct {
	Name     string
	Prefix   string
	Usage    string
	Enabled  *bool
	Disabled *bool
}

type FlagSet struct {
	name          string
	flags         map[string]*Flag
	shorthands    map[string]*Flag
	specialPrefix map[string]*Flag
	args          []string
	flagGroups    []FlagGroup
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		name:          name,
		flags:         make(map[string]*Flag),
		shorthands:    make(map[string]*Flag),
		specialPrefix: make(map[string]*Flag),
	}
}

func (f *FlagSet) Args() []string { return f.args }

func (f *FlagSet) Lookup(name string) *Flag { return f.flags[name] }

func (f *FlagSet) String(p *string, name, shorthand, value, usage, expectedType string) {
	*p = value
	f.Var(&stringValue{p}, name, shorthand, usage, value, expectedType)
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f.Var(&boolValue{p}, name, shorthand, usage, strconv.FormatBool(value), "")
}

func (f *FlagSet) Int(p *int, name, shorthand string, value int, usage, expectedType string) {
	*p = value
	f.Var(&intValue{p}, name, shorthand, usage, strconv.Itoa(value), expectedType)
}

func (f *FlagSet) List(p *[]string, name, shorthand string, value []string, usage, expectedType string) {
	*p = value
	f.Var(&listValue{p}, name, shorthand, usage, fmt.Sprintf("%v", value), expectedType)
}

// Special registers a prefix flag whose value is glued to it, like -Dname.
func (f *FlagSet) Special(p *[]string, prefix, usage, expectedType string) {
	*p = []string{}
	f.Var(&listValue{p}, prefix, "", usage, "", expectedType)
	f.specialPrefix[prefix] = f.flags[prefix]
}

func (f *FlagSet) AddFlagGroup(name, description, groupType, availableFlagsHeader string, entries []FlagGroupEntry) {
	for i := range entries {
		e := &entries[i]
		if e.Enabled != nil { f.Bool(e.Enabled, e.Prefix+e.Name, "", *e.Enabled, e.Usage) }
		if e.Disabled != nil { f.Bool(e.Disabled, e.Prefix+"no-"+e.Name, "", *e.Disabled, "Disable '"+e.Name+"'") }
	}
	f.flagGroups = append(f.flagGroups, FlagGroup{
		Name:                 name,
		Description:          description,
		Flags:                entries,
		GroupType:            groupType,
		AvailableFlagsHeader: availableFlagsHeader,
	})
}

func (f *FlagSet) Var(value Value, name, shorthand, usage, defValue, expectedType string) {
	if name == "" { panic("flag name cannot be empty") }
	if _, ok := f.flags[name]; ok { panic(fmt.Sprintf("flag redefined: %s", name)) }
	flag := &Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: value, DefValue: defValue, ExpectedType: expectedType}
	f.flags[name] = flag
	if shorthand == "" { return }
	if _, ok := f.shorthands[shorthand]; ok { panic(fmt.Sprintf("shorthand flag redefined: %s", shorthand)) }
	f.shorthands[shorthand] = flag
}

// Parse accepts -name, --name, -name=value, --name=value, -x value, -xvalue
// and the special prefixes. Everything else is a positional argument.
func (f *FlagSet) Parse(arguments []string) error {
	f.args = []string{}
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		switch {
		case arg == "--":
			f.args = append(f.args, arguments[i+1:]...)
			return nil
		case len(arg) < 2 || arg[0] != '-':
			f.args = append(f.args, arg)
			continue
		}

		body := strings.TrimPrefix(strings.TrimPrefix(arg, "-"), "-")
		name, value, hasValue := strings.Cut(body, "=")
		flag, ok := f.flags[name]
		if !ok {
			if strings.HasPrefix(arg, "--") { return fmt.Errorf("unknown flag: %s", arg) }
			if err := f.parseShortFlag(arg, arguments, &i); err != nil { return err }
			continue
		}
		switch {
		case hasValue:
			if err := flag.Value.Set(value); err != nil { return err }
		case flag.isBool():
			if err := flag.Value.Set(""); err != nil { return err }
		default:
			if i+1 >= len(arguments) { return fmt.Errorf("flag needs an argument: %s", arg) }
			i++
			if err := flag.Value.Set(arguments[i]); err != nil { return err }
		}
	}
	return nil
}

func (f *FlagSet) parseShortFlag(arg string, arguments []string, i *int) error {
	for prefix, flag := range f.specialPrefix {
		if strings.HasPrefix(arg, "-"+prefix) && len(arg) > len(prefix)+1 { return flag.Value.Set(arg[len(prefix)+1:]) }
	}

	shorthand := arg[1:2]
	flag, ok := f.shorthands[shorthand]
	if !ok { return fmt.Errorf("unknown flag: %s", arg) }
	if flag.isBool() {
		if len(arg) > 2 { return fmt.Errorf("unknown flag: %s", arg) }
		return flag.Value.Set("")
	}
	value := arg[2:]
	if value == "" {
		if *i+1 >= len(arguments) { return fmt.Errorf("flag needs an argument: -%s", shorthand) }
		*i++
		value = arguments[*i]
	}
	return flag.Value.Set(value)
}

type App struct {
	Name        string
	Synopsis    string
	Description string
	Authors     []string
	Repository  string
	FlagSet     *FlagSet
	Action      func(args []string) error

	Stdout io.Writer
	Stderr io.Writer
}

func NewApp(name string) *App {
	return &App{
		Name:    name,
		FlagSet: NewFlagSet(name),
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

func (a *App) Run(arguments []string) error {
	help := false
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information")

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintf(a.Stderr, "%s: %v\n", a.Name, err)
		fmt.Fprint(a.Stderr, a.usage(terminalWidth()))
		return err
	}
	if help {
		fmt.Fprint(a.Stdout, a.help(terminalWidth()))
		return nil
	}
	if a.Action != nil { return a.Action(a.FlagSet.Args()) }
	return nil
}

func (a *App) usage(width int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Usage: %s %s\n", a.Name, a.Synopsis)
	flags := a.optionFlags()
	if len(flags) > 0 {
		l := a.layout(width)
		fmt.Fprintf(&sb, "\n%s%s\n", indent(1), heading("Options"))
		for _, flag := range flags {
			l.flagLine(&sb, flag)
		}
	}
	fmt.Fprintf(&sb, "\nRun '%s --help' for all available options and flags.\n", a.Name)
	return sb.String()
}

func (a *App) help(width int) string {
	var sb strings.Builder
	l := a.layout(width)

	if len(a.Authors) > 0 { fmt.Fprintf(&sb, "\n%sWritten by %s and contributors\n", indent(1), strings.Join(a.Authors, ", ")) }
	if a.Repository != "" { fmt.Fprintf(&sb, "%sFor more details refer to %s\n", indent(1), a.Repository) }
	if a.Synopsis != "" { fmt.Fprintf(&sb, "\n%s%s\n%s%s %s\n", indent(1), heading("Synopsis"), indent(2), a.Name, a.Synopsis) }
	if a.Description != "" {
		fmt.Fprintf(&sb, "\n%s%s\n", indent(1), heading("Description"))
		for _, line := range wrapText(a.Description, width-len(indent(2))) {
			fmt.Fprintf(&sb, "%s%s\n", indent(2), line)
		}
	}

	if flags := a.optionFlags(); len(flags) > 0 {
		fmt.Fprintf(&sb, "\n%s%s\n", indent(1), heading("Options"))
		for _, flag := range flags {
			l.flagLine(&sb, flag)
		}
	}

	groups := append([]FlagGroup(nil), a.FlagSet.flagGroups...)
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	for _, g := range groups {
		l.group(&sb, g)
	}
	return sb.String()
}

func heading(s string) string { return color.New(color.Bold).Sprint(s) }

// optionFlags lists the plain flags, sorted by name.
func (a *App) optionFlags() []*Flag {
	var flags []*Flag
	for _, flag := range a.FlagSet.flags {
		if _, special := a.FlagSet.specialPrefix[flag.Name]; special || a.isGroupFlag(flag.Name) { continue }
		flags = append(flags, flag)
	}
	sort.Slice(flags, func(i, j int) bool { return flags[i].Name < flags[j].Name })
	return flags
}

func (a *App) isGroupFlag(name string) bool {
	for _, g := range a.FlagSet.flagGroups {
		for _, e := range g.Flags {
			if name == e.Prefix+e.Name || name == e.Prefix+"no-"+e.Name { return true }
		}
	}
	return false
}

func flagString(flag *Flag) string {
	arg := ""
	if !flag.isBool() && flag.ExpectedType != "" { arg = " <" + flag.ExpectedType + ">" }
	if flag.Shorthand != "" { return fmt.Sprintf("-%s%s, --%s%s", flag.Shorthand, arg, flag.Name, arg) }
	return "--" + flag.Name + arg
}

// layout holds the column widths shared by every entry of a help page.
type layout struct {
	width      int
	left       int
	usageWidth int
}

func (a *App) layout(width int) layout {
	l := layout{width: width}
	grow := func(left, usage string) {
		if len(left) > l.left { l.left = len(left) }
		if len(usage) > l.usageWidth { l.usageWidth = len(usage) }
	}
	for _, flag := range a.optionFlags() {
		grow(flagString(flag), flag.Usage)
	}
	for _, g := range a.FlagSet.flagGroups {
		if len(g.Flags) == 0 { continue }
		grow(fmt.Sprintf("-%sno-<%s>", g.Flags[0].Prefix, g.GroupType), "")
		for _, e := range g.Flags {
			grow(e.Name, e.Usage)
		}
	}
	return l
}

func (l layout) entry(sb *strings.Builder, left, usage, right string) {
	avail := l.width - len(indent(2)) - l.left - 1 - 2 - len(right)
	if avail < 10 { avail = 10 }
	lines := wrapText(usage, avail)
	first := ""
	if len(lines) > 0 { first = lines[0] }

	if right == "" {
		fmt.Fprintf(sb, "%s%-*s %s\n", indent(2), l.left, left, first)
	} else {
		fmt.Fprintf(sb, "%s%-*s %-*s  %s\n", indent(2), l.left, left, min(l.usageWidth, avail), first, right)
	}
	for _, line := range lines[min(1, len(lines)):] {
		fmt.Fprintf(sb, "%s%s%s\n", indent(2), strings.Repeat(" ", l.left+1), line)
	}
}

func (l layout) flagLine(sb *strings.Builder, flag *Flag) {
	right := ""
	if !flag.isBool() && flag.DefValue != "" && flag.DefValue != "[]" { right = "|" + flag.DefValue + "|" }
	l.entry(sb, flagString(flag), flag.Usage, right)
}

func (l layout) group(sb *strings.Builder, g FlagGroup) {
	if len(g.Flags) == 0 { return }
	kind := g.GroupType
	if kind == "" { kind = "flag" }
	prefix := g.Flags[0].Prefix

	fmt.Fprintf(sb, "\n%s%s\n", indent(1), heading(g.Name))
	fmt.Fprintf(sb, "%s%-*s Enable a specific %s\n", indent(2), l.left, fmt.Sprintf("-%s<%s>", prefix, kind), kind)
	fmt.Fprintf(sb, "%s%-*s Disable a specific %s\n", indent(2), l.left, fmt.Sprintf("-%sno-<%s>", prefix, kind), kind)
	if g.AvailableFlagsHeader != "" { fmt.Fprintf(sb, "%s%s\n", indent(1), g.AvailableFlagsHeader) }

	entries := append([]FlagGroupEntry(nil), g.Flags...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	for _, e := range entries {
		mark := "|-|"
		if e.Enabled != nil && *e.Enabled && (e.Disabled == nil || !*e.Disabled) { mark = "|x|" }
		l.entry(sb, e.Name, e.Usage, mark)
	}
}

func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) { return 80 }
	width, _, err := term.GetSize(fd)
	if err != nil { return 80 }
	return max(width, 20)
}

func wrapText(text string, maxWidth int) []string {
	words := strings.Fields(text)
	if maxWidth <= 0 || len(words) == 0 { return words }

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) > maxWidth {
			lines = append(lines, line)
			line = w
			continue
		}
		line += " " + w
	}
	return append(lines, line)
}
