package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chazu/intcode/manifest"
	"github.com/chazu/intcode/pkg/driver"
	"github.com/chazu/intcode/pkg/image"
	"github.com/chazu/intcode/pkg/intcode"
)

// readProgram loads the program named by path, or the manifest's program
// when path is empty. "-" reads standard input. format overrides the
// encoding implied by the file name.
func readProgram(g *globalFlags, path, format string) ([]int64, string, error) {
	if path == "" {
		path = g.manifest.ProgramPath()
		if format == "" {
			format = g.manifest.Program.Format
		}
	}
	if path == "" {
		return nil, "", fmt.Errorf("no program given and no [program] path in %s", manifest.FileName)
	}

	name := image.Name(path)
	if g.manifest.Program.Name != "" && path == g.manifest.ProgramPath() {
		name = g.manifest.Program.Name
	}

	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, "", fmt.Errorf("reading stdin: %w", err)
		}
		enc := image.Detect(data)
		if format != "" {
			if enc, err = image.ParseEncoding(format); err != nil {
				return nil, "", err
			}
		}
		program, err := image.Decode(data, enc)
		return program, "stdin", err
	}

	if format == "" {
		program, err := image.ReadFile(path)
		return program, name, err
	}
	enc, err := image.ParseEncoding(format)
	if err != nil {
		return nil, "", err
	}
	program, err := image.ReadFileAs(path, enc)
	return program, name, err
}

// traceTo returns a tracer printing each instruction before it runs.
func traceTo(w io.Writer) intcode.Tracer {
	return intcode.TracerFunc(func(ins intcode.Instruction, rb int64) {
		fmt.Fprintf(w, "%04d  rb=%-5d %s\n", ins.Addr, rb, intcode.FormatInstruction(ins))
	})
}

// printOutput streams outputs to w, as characters in ASCII mode or one
// decimal per line otherwise.
func printOutput(w io.Writer, ascii bool) driver.OutputFunc {
	return func(ctx context.Context, v int64) error {
		if ascii {
			_, err := io.WriteString(w, driver.ASCII([]int64{v}))
			return err
		}
		_, err := fmt.Fprintln(w, v)
		return err
	}
}

// lineInput reads further input from r one line at a time once the queued
// inputs run out. In ASCII mode each line is sent as characters ending in
// a newline; otherwise a line holds one or more comma-separated integers.
func lineInput(r io.Reader, ascii bool, prompt io.Writer) driver.InputFunc {
	scanner := bufio.NewScanner(r)
	var pending []int64

	return func(ctx context.Context) (int64, error) {
		for len(pending) == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			if prompt != nil && !ascii {
				fmt.Fprint(prompt, "input> ")
			}
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return 0, err
				}
				return 0, driver.ErrInputExhausted
			}
			line := scanner.Text()
			if ascii {
				pending = driver.ASCIIInput(line)
				continue
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			values, err := image.Parse(line)
			if err != nil {
				return 0, fmt.Errorf("bad input line: %w", err)
			}
			pending = values
		}
		v := pending[0]
		pending = pending[1:]
		return v, nil
	}
}

// isTerminal reports whether f looks like an interactive terminal.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// exitStatus turns the end of a driver run into a CLI error. Running out
// of input is reported but not fatal.
func exitStatus(res *driver.Result, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, driver.ErrInputExhausted):
		log.Noticef("program is waiting for input after %d steps", res.Steps)
		return nil
	default:
		return err
	}
}
