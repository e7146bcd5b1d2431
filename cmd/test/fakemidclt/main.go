package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	flags "github.com/jessevdk/go-flags"
)

// Stands in for the management client on hosts without the middleware
// daemon. Behaviour is steered through the environment because the hook
// always passes the same argument vector.
type flagOptions struct {
	ExitCode int    `long:"exit-code" env:"FAKE_MIDCLT_EXIT_CODE" description:"status to exit with"`
	Record   string `long:"record" env:"FAKE_MIDCLT_RECORD" description:"file to append each invocation to"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(argv []string, stdout io.Writer, stderr io.Writer) int {
	var opts flagOptions
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	rest, err := parser.ParseArgs(argv)
	if err != nil {
		fmt.Fprintf(stderr, "Command line flags parsing failed: %v\n", err)
		return 1
	}

	if len(rest) < 2 || rest[0] != "call" {
		fmt.Fprintln(stderr, "usage: fakemidclt call <method> [args...]")
		return 1
	}

	if opts.Record != "" {
		line := fmt.Sprintf("%s LD_LIBRARY_PATH=%s\n", strings.Join(rest, " "), os.Getenv("LD_LIBRARY_PATH"))
		f, err := os.OpenFile(opts.Record, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(stderr, "failed to open record file: %v\n", err)
			return 1
		}
		defer f.Close()
		if _, err := f.WriteString(line); err != nil {
			fmt.Fprintf(stderr, "failed to record call: %v\n", err)
			return 1
		}
	}

	// midclt prints the JSON-encoded result.
	fmt.Fprintln(stdout, "null")
	return opts.ExitCode
}
