package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/olekukonko/tablewriter"
	"github.com/tebeka/atexit"

	"github.com/xplshn/ptxlower/pkg/cli"
	"github.com/xplshn/ptxlower/pkg/codegen"
	"github.com/xplshn/ptxlower/pkg/config"
	"github.com/xplshn/ptxlower/pkg/dataflow"
	"github.com/xplshn/ptxlower/pkg/ir"
	"github.com/xplshn/ptxlower/pkg/ptx"
	"github.com/xplshn/ptxlower/pkg/translator"
	"github.com/xplshn/ptxlower/pkg/util"
)

func main() {
	app := cli.NewApp("ptxlower")
	app.Synopsis = "[options] <kernel.json> ..."
	app.Description = "Lowers kernels of the virtual GPU instruction set to LLVM-style IR for execution on a CPU. Barriers become numbered continuations and predication becomes selects."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/ptxlower>"

	var (
		outFile   string
		checkFile string
		jobs      int
		dumpSSA   bool
		printHash bool
		stats     bool
		wall      bool
		noColor   bool
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "-", "Place the output into <file>. With several inputs each kernel goes next to its input.", "file")
	fs.String(&checkFile, "check", "c", "", "Compare the output against a golden <file> instead of writing it.", "file")
	fs.Int(&jobs, "jobs", "j", runtime.NumCPU(), "Translate up to <n> kernels at once.", "n")
	fs.Bool(&dumpSSA, "dump-ssa", "d", false, "Dump the SSA form of each kernel and exit.")
	fs.Bool(&printHash, "hash", "", false, "Print the fingerprint of each kernel and exit.")
	fs.Bool(&stats, "stats", "s", false, "Print per-opcode lowering statistics.")
	fs.Bool(&wall, "Wall", "", false, "Enable all warnings.")
	fs.Bool(&noColor, "no-color", "", false, "Disable colored diagnostics.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		util.SetProgram(app.Name)
		if noColor { util.SetColor(false) }

		// -Wall turns everything on; an explicit -Wno-<name> still wins.
		if wall {
			for _, entry := range warningFlags {
				*entry.Enabled = true
			}
		}
		cfg.ApplyFlagGroups(warningFlags, featureFlags)

		if len(inputFiles) == 0 { util.Fatal("no input files specified.") }
		if checkFile != "" && len(inputFiles) > 1 { util.Fatal("-check takes a single input file.") }

		kernels := loadKernels(inputFiles)

		if printHash {
			for i, k := range kernels {
				fmt.Printf("%016x  %s\n", k.Fingerprint(), inputFiles[i])
			}
			return nil
		}

		if dumpSSA {
			for i, k := range kernels {
				if err := dumpKernel(os.Stdout, k); err != nil {
					util.Error(util.Location{File: inputFiles[i], Kernel: k.Name}, "%v", err)
				}
			}
			return nil
		}

		var loc util.Location
		if len(inputFiles) == 1 { loc.File = inputFiles[0] }

		var cache *translator.Cache
		if cfg.IsFeatureEnabled(config.FeatCache) {
			var err error
			if cache, err = translator.NewCache(cfg.CacheSize); err != nil { util.Fatal("%v", err) }
		}

		lowered, err := translator.TranslateAll(context.Background(), kernels, jobs, cache, cfg.Options(loc)...)
		if err != nil { util.Error(loc, "translation failed: %v", err) }

		backend := codegen.NewLLVMBackend()
		outputs := make([]*bytes.Buffer, len(lowered))
		for i, k := range lowered {
			if outputs[i], err = backend.Generate(k); err != nil {
				util.Error(util.Location{File: inputFiles[i], Kernel: k.Name}, "code generation failed: %v", err)
			}
		}

		if stats { printStats(os.Stderr, lowered) }

		if checkFile != "" {
			golden, err := os.ReadFile(checkFile)
			if err != nil { util.Fatal("could not read golden file '%s': %v", checkFile, err) }
			if diff := cmp.Diff(string(golden), outputs[0].String()); diff != "" {
				util.Error(util.Location{File: checkFile}, "output differs (-want +got):\n%s", diff)
			}
			util.Info("%s matches %s", inputFiles[0], checkFile)
			return nil
		}

		return writeOutputs(outFile, inputFiles, outputs)
	}

	if err := app.Run(os.Args[1:]); err != nil {
		atexit.Exit(1)
	}
}

// loadKernels reads one kernel per file. Kernel names become function names,
// so they must be unique across the inputs.
func loadKernels(paths []string) []*ptx.Kernel {
	kernels := make([]*ptx.Kernel, 0, len(paths))
	seen := make(map[string]string)
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			util.Error(util.Location{File: path}, "could not read file: %v", err)
		}
		k, err := ptx.LoadKernel(f)
		f.Close()
		if err != nil {
			util.Error(util.Location{File: path}, "%v", err)
		}
		if prev, ok := seen[k.Name]; ok {
			util.Error(util.Location{File: path, Kernel: k.Name}, "kernel is already defined in %s", prev)
		}
		seen[k.Name] = path
		kernels = append(kernels, k)
	}
	return kernels
}

func dumpKernel(w io.Writer, k *ptx.Kernel) error {
	g, err := dataflow.Build(k)
	if err != nil { return err }
	if err := g.ToSSA(); err != nil { return err }
	g.Dump(w)
	return nil
}

// outputPath places the translation of input next to it, as <base>.ll.
func outputPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".ll"
}

// writeOutputs writes every translation. Files written by this run are
// removed if a later write fails.
func writeOutputs(outFile string, inputs []string, outputs []*bytes.Buffer) error {
	if len(outputs) == 1 && outFile == "-" {
		_, err := os.Stdout.Write(outputs[0].Bytes())
		return err
	}

	var written []string
	atexit.Register(func() {
		for _, path := range written {
			os.Remove(path)
		}
	})

	for i, out := range outputs {
		path := outputPath(inputs[i])
		if len(outputs) == 1 { path = outFile }
		if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
			util.Error(util.Location{File: path}, "could not write output: %v", err)
		}
		written = append(written, path)
	}
	written = nil
	return nil
}

func printStats(w io.Writer, kernels []*ir.Kernel) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Kernel", "Opcode", "Source", "Emitted"})
	table.SetAutoMergeCells(true)
	table.SetRowLine(false)

	var source, emitted int
	for _, k := range kernels {
		for _, s := range k.Stats {
			table.Append([]string{k.Name, s.Opcode, strconv.Itoa(s.Source), strconv.Itoa(s.Emitted)})
			source += s.Source
			emitted += s.Emitted
		}
	}
	table.SetFooter([]string{"", "Total", strconv.Itoa(source), strconv.Itoa(emitted)})
	table.Render()
}
