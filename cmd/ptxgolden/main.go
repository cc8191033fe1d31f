// ptxgolden translates every kernel under test and compares the output with
// its golden .ll file. A <test>.flags file next to a kernel holds extra -F/-W
// switches for it; a <test>.err file turns the test into an expected failure
// whose error must contain the file's text.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"
	"github.com/olekukonko/tablewriter"
	"github.com/tebeka/atexit"

	"github.com/xplshn/ptxlower/pkg/cli"
	"github.com/xplshn/ptxlower/pkg/codegen"
	"github.com/xplshn/ptxlower/pkg/config"
	"github.com/xplshn/ptxlower/pkg/ir"
	"github.com/xplshn/ptxlower/pkg/ptx"
	"github.com/xplshn/ptxlower/pkg/translator"
	"github.com/xplshn/ptxlower/pkg/util"
)

type Status string

const (
	StatusPass  Status = "PASS"
	StatusFail  Status = "FAIL"
	StatusSkip  Status = "SKIP"
	StatusError Status = "ERROR"
)

type Result struct {
	File        string        `json:"file"`
	Status      Status        `json:"status"`
	Message     string        `json:"message,omitempty"`
	Diff        string        `json:"diff,omitempty"`
	Hash        string        `json:"hash,omitempty"`
	CacheHit    bool          `json:"cache_hit,omitempty"`
	Diagnostics []string      `json:"diagnostics,omitempty"`
	Duration    time.Duration `json:"duration"`
}

type options struct {
	patterns  string
	skip      string
	switches  string
	report    string
	jobs      int
	update    bool
	verbose   bool
	cacheSize int
	noColor   bool
}

var statusColors = map[Status]*color.Color{
	StatusPass:  color.New(color.FgGreen),
	StatusFail:  color.New(color.FgRed, color.Bold),
	StatusSkip:  color.New(color.FgYellow),
	StatusError: color.New(color.FgMagenta, color.Bold),
}

func main() {
	app := cli.NewApp("ptxgolden")
	app.Synopsis = "[options]"
	app.Description = "Runs the golden tests of ptxlower: every kernel is translated in-process and its output compared with the checked-in .ll file."
	app.Authors = []string{"xplshn"}

	var opts options
	fs := app.FlagSet
	fs.String(&opts.patterns, "test-files", "t", "testdata/*.json", "Glob pattern(s) for kernels to test (space-separated).", "glob")
	fs.String(&opts.skip, "skip-files", "", "", "Files to skip (space-separated).", "files")
	fs.String(&opts.switches, "flags", "f", "", "Extra -F/-W switches applied to every test (space-separated).", "switches")
	fs.String(&opts.report, "output", "o", ".golden_results.json", "Output file for the JSON test report.", "file")
	fs.Int(&opts.jobs, "jobs", "j", 4, "Number of parallel test jobs.", "n")
	fs.Int(&opts.cacheSize, "cache-size", "", 256, "Entries in the shared translation cache, 0 to disable it.", "n")
	fs.Bool(&opts.update, "update", "u", false, "Rewrite the golden files from the current output.")
	fs.Bool(&opts.verbose, "verbose", "v", false, "Print the diff of every failing test.")
	fs.Bool(&opts.noColor, "no-color", "", false, "Disable colored output.")

	app.Action = func([]string) error {
		util.SetProgram(app.Name)
		if opts.noColor { util.SetColor(false) }
		setupInterruptHandler()
		return run(opts)
	}

	if err := app.Run(os.Args[1:]); err != nil {
		atexit.Exit(1)
	}
}

// setupInterruptHandler lets atexit handlers run on CTRL+C.
func setupInterruptHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		util.Info("test run cancelled")
		atexit.Exit(1)
	}()
}

func run(opts options) error {
	if unknown := config.NewConfig().ApplyFlags(opts.switches); len(unknown) > 0 {
		util.Fatal("unknown switches: %s", strings.Join(unknown, " "))
	}

	files, err := expandGlobPatterns(opts.patterns)
	if err != nil { util.Fatal("invalid glob pattern(s): %v", err) }
	if len(files) == 0 {
		util.Info("no test files found matching the pattern(s)")
		return nil
	}

	var cache *translator.Cache
	if opts.cacheSize > 0 {
		if cache, err = translator.NewCache(opts.cacheSize); err != nil { util.Fatal("%v", err) }
	}

	skipList := make(map[string]bool)
	for _, f := range strings.Fields(opts.skip) {
		skipList[f] = true
	}

	tasks := make(chan string, len(files))
	results := make(chan *Result, len(files))
	var wg sync.WaitGroup
	for i := 0; i < max(opts.jobs, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				results <- testFile(file, opts, cache)
			}
		}()
	}

	// Identical kernels are tested once.
	seen := make(map[uint64]string)
	for _, file := range files {
		if skipList[file] {
			results <- &Result{File: file, Status: StatusSkip, Message: "explicitly skipped"}
			continue
		}
		sum, err := hashFile(file)
		if err != nil {
			results <- &Result{File: file, Status: StatusError, Message: fmt.Sprintf("failed to hash file: %v", err)}
			continue
		}
		if original, ok := seen[sum]; ok {
			results <- &Result{File: file, Status: StatusSkip, Message: "content is identical to " + original}
			continue
		}
		seen[sum] = file
		tasks <- file
	}
	close(tasks)
	wg.Wait()
	close(results)

	var all []*Result
	for r := range results {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].File < all[j].File })

	printSummary(os.Stdout, all, opts.verbose)
	if err := writeReport(opts.report, all); err != nil {
		util.Warn(util.Location{File: opts.report}, "", "could not write report: %v", err)
	}

	for _, r := range all {
		if r.Status == StatusFail || r.Status == StatusError { atexit.Exit(1) }
	}
	return nil
}

func expandGlobPatterns(patterns string) ([]string, error) {
	unique := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		matches, err := filepath.Glob(pattern)
		if err != nil { return nil, err }
		for _, m := range matches {
			unique[m] = true
		}
	}
	files := make([]string, 0, len(unique))
	for f := range unique {
		files = append(files, f)
	}
	sort.Strings(files)
	return files, nil
}

func hashFile(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil { return 0, err }
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil { return 0, err }
	return h.Sum64(), nil
}

func sidecar(file, ext string) string { return strings.TrimSuffix(file, filepath.Ext(file)) + ext }

// testConfig builds the configuration of one test: the global switches,
// then the ones from its .flags file.
func testConfig(file, switches string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.ApplyFlags(switches)
	data, err := os.ReadFile(sidecar(file, ".flags"))
	switch {
	case errors.Is(err, os.ErrNotExist):
		return cfg, nil
	case err != nil:
		return nil, err
	}
	if unknown := cfg.ApplyFlags(string(data)); len(unknown) > 0 {
		return nil, fmt.Errorf("unknown switches in %s: %s", sidecar(file, ".flags"), strings.Join(unknown, " "))
	}
	return cfg, nil
}

func testFile(file string, opts options, cache *translator.Cache) *Result {
	start := time.Now()
	res := &Result{File: file}
	defer func() { res.Duration = time.Since(start) }()

	cfg, err := testConfig(file, opts.switches)
	if err != nil {
		res.Status, res.Message = StatusError, err.Error()
		return res
	}

	f, err := os.Open(file)
	if err != nil {
		res.Status, res.Message = StatusError, err.Error()
		return res
	}
	k, err := ptx.LoadKernel(f)
	f.Close()
	if err != nil {
		res.Status, res.Message = StatusError, err.Error()
		return res
	}
	res.Hash = fmt.Sprintf("%016x", k.Fingerprint())

	translatorOpts := append(cfg.Options(util.Location{File: file}), translator.WithDiagnostics(func(d translator.Diagnostic) {
		res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("%s: %s", d.Kind, d.Message))
	}))

	text, err := translate(k, cfg, cache, res, translatorOpts)
	if expected, rerr := os.ReadFile(sidecar(file, ".err")); rerr == nil {
		return checkFailure(res, err, strings.TrimSpace(string(expected)))
	}
	if err != nil {
		res.Status, res.Message = StatusFail, err.Error()
		return res
	}

	golden := sidecar(file, ".ll")
	if opts.update {
		if err := os.WriteFile(golden, []byte(text), 0o644); err != nil {
			res.Status, res.Message = StatusError, err.Error()
			return res
		}
		res.Status, res.Message = StatusPass, "golden file updated"
		return res
	}

	want, err := os.ReadFile(golden)
	if err != nil {
		res.Status, res.Message = StatusSkip, "no golden file"
		return res
	}
	if diff := cmp.Diff(string(want), text); diff != "" {
		res.Status, res.Message, res.Diff = StatusFail, "output differs from "+golden, diff
		return res
	}
	res.Status, res.Message = StatusPass, "output matches"
	return res
}

func translate(k *ptx.Kernel, cfg *config.Config, cache *translator.Cache, res *Result, opts []translator.Option) (string, error) {
	var (
		out *ir.Kernel
		err error
	)
	if cache != nil && cfg.IsFeatureEnabled(config.FeatCache) {
		out, res.CacheHit, err = cache.Translate(k, opts...)
	} else {
		out, err = translator.Translate(k, opts...)
	}
	if err != nil { return "", err }
	buf, err := codegen.NewLLVMBackend().Generate(out)
	if err != nil { return "", err }
	return buf.String(), nil
}

func checkFailure(res *Result, err error, expected string) *Result {
	switch {
	case err == nil:
		res.Status, res.Message = StatusFail, "translation succeeded, expected: "+expected
	case !strings.Contains(err.Error(), expected):
		res.Status, res.Message = StatusFail, "unexpected error"
		res.Diff = cmp.Diff(expected, err.Error())
	default:
		res.Status, res.Message = StatusPass, "failed as expected"
	}
	return res
}

func printSummary(w io.Writer, results []*Result, verbose bool) {
	counts := make(map[Status]int)
	var total time.Duration

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Test", "Status", "Time", "Message"})
	table.SetAutoWrapText(false)
	for _, r := range results {
		counts[r.Status]++
		total += r.Duration
		table.Append([]string{r.File, statusColors[r.Status].Sprint(r.Status), formatDuration(r.Duration), r.Message})
	}
	table.SetFooter([]string{
		fmt.Sprintf("%d tests", len(results)),
		fmt.Sprintf("%d/%d/%d/%d", counts[StatusPass], counts[StatusFail], counts[StatusSkip], counts[StatusError]),
		formatDuration(total),
		"pass/fail/skip/error",
	})
	table.Render()

	if !verbose { return }
	for _, r := range results {
		if r.Diff == "" { continue }
		fmt.Fprintf(w, "\n%s %s\n%s", statusColors[r.Status].Sprint("["+string(r.Status)+"]"), r.File, r.Diff)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond { return fmt.Sprintf("%dµs", d.Microseconds()) }
	return fmt.Sprintf("%dms", d.Milliseconds())
}

func writeReport(path string, results []*Result) error {
	byFile := make(map[string]*Result, len(results))
	for _, r := range results {
		byFile[r.File] = r
	}
	data, err := json.MarshalIndent(byFile, "", "  ")
	if err != nil { return err }
	return os.WriteFile(path, data, 0o644)
}
