package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/zephyrtronium/formula"
	"github.com/zephyrtronium/formula/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	inname  string
	given   []string
	cfgFile string
	enable  []string
	nl      bool
	echo    bool
	verbose bool
}

func newRootCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "formula [flags] [expression...]",
		Short: "Evaluate formula expressions",
		Long: `formula evaluates expressions given as arguments, or read from a file or
standard input, and prints their results.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &o, args)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.inname, "in", "", "input file (default stdin if no args given)")
	f.StringArrayVar(&o.given, "given", nil, "name=expr variable definition (any number of times)")
	f.StringVar(&o.cfgFile, "config", "", "configuration file (.yaml, .yml, .toml, or .json)")
	f.StringArrayVar(&o.enable, "enable", nil, "enable an optional operator (any number of times)")
	f.BoolVarP(&o.nl, "lines", "n", false, "parse separate input lines as separate expressions")
	f.BoolVar(&o.echo, "echo", false, "print parse trees")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "log debug messages")
	return cmd
}

func run(cmd *cobra.Command, o *options, args []string) error {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	ops := make(map[string]bool)
	ctx := formula.NewContext()
	if o.cfgFile != "" {
		file, err := config.Load(o.cfgFile)
		if err != nil {
			return err
		}
		for k, v := range file.Operators {
			ops[k] = v
		}
		vars, err := file.ContextOptions()
		if err != nil {
			return fmt.Errorf("%s: %w", o.cfgFile, err)
		}
		ctx = ctx.Clone(vars...)
		log.Debug("loaded config", slog.String("file", o.cfgFile), slog.Int("vars", len(file.Vars)))
	}
	for _, op := range o.enable {
		ops[op] = true
	}
	cfg, err := formula.ConfigFromMap(ops)
	if err != nil {
		return err
	}

	opts := []formula.ParseOption{formula.WithConfig(cfg), formula.WithLogger(log)}
	if o.nl {
		opts = append(opts, formula.StopOn('\n'))
	}
	p := formula.NewParser(opts...)

	// Definitions may refer to earlier definitions.
	for _, d := range o.given {
		nm, vl, ok := strings.Cut(d, "=")
		if !ok {
			return fmt.Errorf(`variable definitions must be "name=expr", not %q`, d)
		}
		nm = strings.TrimSpace(nm)
		r, err := p.EvalString(vl, ctx)
		if err != nil {
			return fmt.Errorf("setting %s: %w", nm, err)
		}
		ctx.Set(nm, r)
	}

	var ins []io.RuneScanner
	in, err := infile(cmd, o.inname, len(args) == 0)
	if err != nil {
		return err
	}
	if in != nil {
		ins = append(ins, in)
	}
	for _, arg := range args {
		ins = append(ins, strings.NewReader(arg))
	}

	var exprs []*formula.Expr
	for _, in := range ins {
		for {
			if err := skipSpace(in); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return err
			}
			a, err := p.Parse(in)
			if err != nil {
				return err
			}
			exprs = append(exprs, a)
		}
	}

	out := cmd.OutOrStdout()
	for _, a := range exprs {
		if o.echo {
			fmt.Fprintf(out, "%v : ", a)
		}
		r, err := a.Eval(ctx)
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		fmt.Fprintln(out, r)
	}
	return nil
}

// skipSpace consumes leading whitespace. It returns io.EOF if the input has
// nothing else.
func skipSpace(in io.RuneScanner) error {
	for {
		r, _, err := in.ReadRune()
		if err != nil {
			return err
		}
		if !unicode.IsSpace(r) {
			return in.UnreadRune()
		}
	}
}

func infile(cmd *cobra.Command, inname string, std bool) (io.RuneScanner, error) {
	switch {
	case inname != "" && inname != "-":
		b, err := os.ReadFile(inname)
		if err != nil {
			return nil, err
		}
		return strings.NewReader(string(b)), nil
	case inname == "-", std:
		return bufio.NewReader(cmd.InOrStdin()), nil
	}
	return nil, nil
}
