// Command dialc is the dialScript compiler driver: it turns a `.ds` source
// file into a serialized `.dsb` bytecode module, or disassembles an
// existing `.dsb` back to a readable listing. Flag handling and the
// leveled logio.Logger both follow the teacher's own main.go.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dialos/dialscript/bytecode"
	"github.com/dialos/dialscript/compiler"
	"github.com/dialos/dialscript/internal/logio"
	"github.com/dialos/dialscript/parser"
)

func main() {
	var (
		cArray bool
		debug  bool
	)
	flag.BoolVar(&cArray, "c-array", false, "write a C array literal instead of a raw binary")
	flag.BoolVar(&debug, "debug", false, "emit debug-line info into the compiled module")
	flag.Parse()

	log := logio.Logger{}
	log.SetOutput(os.Stderr)
	defer func() { os.Exit(log.ExitCode()) }()

	// flag.Parse stops at the first positional argument, so flags written
	// after <input.ds>/<output.dsb> are picked out here.
	args := make([]string, 0, flag.NArg())
	for _, a := range flag.Args() {
		switch a {
		case "--c-array", "-c-array":
			cArray = true
		case "--debug", "-debug":
			debug = true
		default:
			args = append(args, a)
		}
	}
	if len(args) < 1 {
		log.Errorf("usage: dialc <input.ds> [<output.dsb>] [--c-array] [--debug]")
		return
	}
	input := args[0]

	if strings.HasSuffix(input, ".dsb") {
		log.ErrorIf(disassembleFile(input, os.Stdout))
		return
	}

	output := strings.TrimSuffix(input, ".ds") + ".dsb"
	if len(args) >= 2 {
		output = args[1]
	}
	log.ErrorIf(compileFile(input, output, cArray, debug))
}

func compileFile(input, output string, cArray, debug bool) error {
	src, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("dialc: reading %s: %w", input, err)
	}

	prog, perrs := parser.Parse(string(src))
	if len(perrs) > 0 {
		return fmt.Errorf("dialc: %d parse error(s): %v", len(perrs), perrs)
	}

	var opts []compiler.Option
	if debug {
		opts = append(opts, compiler.WithDebugInfo())
	}
	mod, cerrs := compiler.Compile(prog, opts...)
	if len(cerrs) > 0 {
		return fmt.Errorf("dialc: %d compile error(s): %v", len(cerrs), cerrs)
	}

	data, err := mod.Serialize()
	if err != nil {
		return fmt.Errorf("dialc: serializing module: %w", err)
	}

	if cArray {
		return os.WriteFile(output, []byte(toCArray(data, "dialscript_module")), 0o644)
	}
	return os.WriteFile(output, data, 0o644)
}

func toCArray(data []byte, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "static const unsigned char %s[] = {\n", name)
	for i, by := range data {
		if i%16 == 0 {
			b.WriteString("\t")
		}
		fmt.Fprintf(&b, "0x%02x,", by)
		if i%16 == 15 {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
	}
	b.WriteString("\n};\n")
	fmt.Fprintf(&b, "static const unsigned long %s_len = %d;\n", name, len(data))
	return b.String()
}

func disassembleFile(path string, w *os.File) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("dialc: reading %s: %w", path, err)
	}
	mod, err := bytecode.Deserialize(data)
	if err != nil {
		return fmt.Errorf("dialc: deserializing %s: %w", path, err)
	}
	fmt.Fprint(w, disassemble(mod))
	return nil
}
