package main

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"execdoc/internal/core/errors"
	"execdoc/internal/params"
	"execdoc/internal/schema"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newCompileCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "compile <infile> [outfile]",
		Short: "Annotate a document's code fragments with their dependencies",
		Long:  `Reads a JSON or YAML document, analyses every supported fragment and writes the document back with imports, declares, assigns, alters, uses and reads filled in. Without outfile the result goes to stdout as JSON.`,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := "-"
			if len(args) == 2 {
				out = args[1]
			}
			return o.compileFile(cmd.Context(), args[0], out)
		},
	}
}

func (o *options) compileFile(ctx context.Context, in, out string) error {
	doc, err := schema.ReadDocument(in)
	if err != nil {
		return errors.AddContext(err, errors.CtxPath, in)
	}
	interpreter, err := o.newApp()
	if err != nil {
		return err
	}
	defer interpreter.Close(context.Background())

	compiled, result, err := interpreter.CompileDocument(ctx, doc)
	if err != nil {
		return err
	}
	o.logger.Info("compiled", "path", in, "parameters", len(result.Parameters), "fragments", len(result.Code))
	return schema.WriteDocument(out, compiled)
}

// newExecuteCmd parses its own flags: parameter flags are only known once the
// document has been compiled.
func newExecuteCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:                "execute <infile> <outfile> [--<parameter> <value> ...]",
		Short:              "Compile and run a document, writing outputs back",
		Long:               `Compiles the document, reads a --<name> flag for each of its parameters, runs every fragment in document order against one scope and writes the document with outputs and errors.`,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			positional, help, err := o.parseExecuteArgs(args)
			if err != nil {
				return err
			}
			if help {
				return cmd.Help()
			}
			if err := o.setup(cmd.ErrOrStderr()); err != nil {
				return err
			}
			if len(positional) != 2 {
				return errors.New(errors.CodeValidationError, fmt.Sprintf("execute needs <infile> and <outfile>, got %d arguments", len(positional)))
			}
			return o.executeFile(cmd.Context(), positional[0], positional[1], args)
		},
	}
}

// parseExecuteArgs picks the global flags and positional arguments out of
// args, ignoring parameter flags and their values.
func (o *options) parseExecuteArgs(args []string) ([]string, bool, error) {
	fs := pflag.NewFlagSet("execute", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist = pflag.ParseErrorsWhitelist{UnknownFlags: true}
	fs.SetOutput(io.Discard)
	fs.StringVar(&o.configPath, "config", o.configPath, "")
	fs.BoolVarP(&o.verbose, "verbose", "v", o.verbose, "")
	help := fs.BoolP("help", "h", false, "")
	if err := fs.Parse(args); err != nil {
		return nil, false, errors.Wrap(err, errors.CodeValidationError, "parse flags")
	}
	return fs.Args(), *help, nil
}

func (o *options) executeFile(ctx context.Context, in, out string, args []string) error {
	doc, err := schema.ReadDocument(in)
	if err != nil {
		return errors.AddContext(err, errors.CtxPath, in)
	}
	interpreter, err := o.newApp()
	if err != nil {
		return err
	}
	defer interpreter.Close(context.Background())

	compiled, result, err := interpreter.CompileDocument(ctx, doc)
	if err != nil {
		return err
	}
	values, err := params.Parse(result.Parameters, args)
	if err != nil {
		return err
	}
	if err := interpreter.ExecuteCompiled(ctx, result, values); err != nil {
		return err
	}
	o.logger.Info("executed", "path", in, "fragments", len(result.Code), "failed", failedFragments(compiled))
	return schema.WriteDocument(out, compiled)
}

// failedFragments counts fragments carrying errors anywhere in doc.
func failedFragments(doc any) int {
	count := 0
	var walk func(any)
	walk = func(node any) {
		switch n := node.(type) {
		case *schema.CodeChunk:
			if len(n.Errors) > 0 {
				count++
			}
		case *schema.CodeExpression:
			if len(n.Errors) > 0 {
				count++
			}
		case map[string]any:
			for _, child := range n {
				walk(child)
			}
		case []any:
			for _, child := range n {
				walk(child)
			}
		}
	}
	walk(doc)
	return count
}

func newManifestCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "manifest",
		Short: "Print the interpreter manifest as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			interpreter, err := o.newApp()
			if err != nil {
				return err
			}
			defer interpreter.Close(context.Background())

			data, err := schema.EncodeDocument(interpreter.Manifest(), false)
			if err != nil {
				return err
			}
			_, err = io.Copy(cmd.OutOrStdout(), bytes.NewReader(data))
			return err
		},
	}
}

