// Command conduit is a small CLI over the generator/serialize/fileio
// packages: dump a schema+data file as JSON, save a JSON document as a
// conduit_pair, mmap a .bin file for inspection, and diff two trees.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/sergi/go-diff/diffmatchpatch"

	conduit "github.com/ghackebeil/conduit"
	"github.com/ghackebeil/conduit/fileio"
	"github.com/ghackebeil/conduit/generator"
	"github.com/ghackebeil/conduit/serialize"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	var err error
	switch os.Args[1] {
	case "dump":
		err = runDump(os.Args[2:])
	case "save":
		err = runSave(os.Args[2:])
	case "mmap":
		err = runMmap(os.Args[2:])
	case "diff":
		err = runDiff(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, colorize(color.FgRed, "conduit: "+err.Error()))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: conduit <dump|save|mmap|diff> [flags] <path>")
}

func colorize(c color.Attribute, s string) string {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return s
	}
	return color.New(c).Sprint(s)
}

// runDump loads a conduit_pair and prints it under a chosen emission
// protocol.
func runDump(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	protocol := fs.String("protocol", "conduit", `emission protocol: "json", "conduit" or "base64_json"`)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("dump requires exactly one path")
	}
	n, err := fileio.Load(fs.Arg(0), conduit.DefaultOptions())
	if err != nil {
		return err
	}
	out, err := serialize.ToJSON(n, generator.Protocol(*protocol), serialize.DefaultEmitOptions())
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

// runSave parses a JSON document under a chosen intake protocol and
// writes it as a conduit_pair.
func runSave(args []string) error {
	fs := flag.NewFlagSet("save", flag.ExitOnError)
	protocol := fs.String("protocol", "conduit", `intake protocol: "json", "conduit" or "base64_json"`)
	input := fs.String("in", "", "input JSON file (required)")
	fs.Parse(args)
	if fs.NArg() != 1 || *input == "" {
		return fmt.Errorf(`save requires -in <file.json> and exactly one output path`)
	}
	data, err := os.ReadFile(*input)
	if err != nil {
		return conduit.WrapError(conduit.IoError, *input, err)
	}
	n, err := generator.Generate(data, generator.Protocol(*protocol), conduit.DefaultOptions())
	if err != nil {
		return err
	}
	return fileio.Save(fs.Arg(0), n, serialize.DefaultEmitOptions())
}

// runMmap opens a .bin file with external storage and prints it, leaving
// the mapping open for the process lifetime (a real tool would hand the
// Node to a caller instead of exiting immediately).
func runMmap(args []string) error {
	fs := flag.NewFlagSet("mmap", flag.ExitOnError)
	writable := fs.Bool("writable", false, "map read/write instead of read-only")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("mmap requires exactly one path")
	}
	n, region, err := fileio.OpenMmap(fs.Arg(0), *writable, nil, conduit.DefaultOptions())
	if err != nil {
		return err
	}
	defer region.Close()
	out, err := serialize.ToJSON(n, generator.ProtocolConduit, serialize.DefaultEmitOptions())
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

// runDiff loads two conduit_pairs and prints a textual diff of their pure
// JSON renderings.
func runDiff(args []string) error {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 2 {
		return fmt.Errorf("diff requires exactly two paths")
	}
	a, err := fileio.Load(fs.Arg(0), conduit.DefaultOptions())
	if err != nil {
		return err
	}
	b, err := fileio.Load(fs.Arg(1), conduit.DefaultOptions())
	if err != nil {
		return err
	}
	if a.Equal(b) {
		fmt.Println(colorize(color.FgGreen, "no differences"))
		return nil
	}
	left, err := serialize.ToJSON(a, generator.ProtocolJSON, serialize.DefaultEmitOptions())
	if err != nil {
		return err
	}
	right, err := serialize.ToJSON(b, generator.ProtocolJSON, serialize.DefaultEmitOptions())
	if err != nil {
		return err
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(left, right, false)
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			fmt.Print(colorize(color.FgGreen, d.Text))
		case diffmatchpatch.DiffDelete:
			fmt.Print(colorize(color.FgRed, d.Text))
		default:
			fmt.Print(d.Text)
		}
	}
	fmt.Println()
	return nil
}
