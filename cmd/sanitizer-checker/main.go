/*
Sanitizer-checker analyzes a directory of pre-computed DepGraph files and
reports whether the sanitization applied to a named input field is
adequate for the requested output contexts (XSS/SQLi/MFE injection).

Usage:

	sanitizer-checker [flags] <graph-directory> <input-field-name>

The flags are:

	--contexts string
		Comma-separated subset of HTML,HTML_ATTR,JS,URL,SQL,MFE to check
		overlap against. Defaults to all six.

	--threads int
		Worker pool size. Defaults to the number of hardware threads.

	--output string
		Write the report to this path instead of stdout.

Exit code 0 on success. Non-zero if the graph directory does not exist or
contains no .dot files.
*/
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/christiankrug/sanitizer-checker/catalogue"
	"github.com/christiankrug/sanitizer-checker/driver"
	"github.com/christiankrug/sanitizer-checker/report"
)

const (
	ExitSuccess = iota
	ExitUsageError
	ExitRunError
)

var (
	returnCode  int
	flagContext *string = pflag.String("contexts", "HTML,HTML_ATTR,JS,URL,SQL,MFE", "comma-separated contexts to check")
	flagThreads *int    = pflag.Int("threads", 0, "worker pool size (0 = hardware concurrency)")
	flagOutput  *string = pflag.String("output", "", "write the report here instead of stdout")
)

func main() {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			panic(fmt.Sprintf("unrecoverable panic occurred: %v", panicErr))
		} else {
			os.Exit(returnCode)
		}
	}()

	pflag.Parse()
	if pflag.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: sanitizer-checker [flags] <graph-directory> <input-field-name>")
		returnCode = ExitUsageError
		return
	}
	root := pflag.Arg(0)
	inputField := pflag.Arg(1)

	contexts, err := parseContexts(*flagContext)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		returnCode = ExitUsageError
		return
	}

	rep, err := driver.Run(driver.Config{
		Root:       root,
		InputField: inputField,
		Contexts:   contexts,
		Threads:    *flagThreads,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		returnCode = ExitRunError
		return
	}

	out := os.Stdout
	if *flagOutput != "" {
		f, err := os.Create(*flagOutput)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
			returnCode = ExitRunError
			return
		}
		defer f.Close()
		out = f
	}
	if err := report.Write(out, rep); err != nil {
		slog.Error("failed writing report", "error", err)
		returnCode = ExitRunError
		return
	}
}

// parseContexts maps the CLI's CSV syntax onto catalogue.Context, treating
// the spec's "JS" shorthand as catalogue.Javascript.
func parseContexts(csv string) ([]catalogue.Context, error) {
	var out []catalogue.Context
	for _, tok := range strings.Split(csv, ",") {
		tok = strings.TrimSpace(strings.ToUpper(tok))
		if tok == "" {
			continue
		}
		if tok == "JS" {
			tok = string(catalogue.Javascript)
		}
		ctx := catalogue.Context(tok)
		if _, ok := catalogue.PatternFor(ctx); !ok {
			return nil, fmt.Errorf("unknown context %q", tok)
		}
		out = append(out, ctx)
	}
	return out, nil
}
