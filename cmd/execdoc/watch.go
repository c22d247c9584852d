package main

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"execdoc/internal/core/app"
	"execdoc/internal/core/config"
	"execdoc/internal/core/watcher"
	"execdoc/internal/engine/compiler"
	"execdoc/internal/schema"

	"github.com/spf13/cobra"
)

func newWatchCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <dir> [dir...]",
		Short: "Recompile documents as they change and log their dependencies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			interpreter, err := o.newApp()
			if err != nil {
				return err
			}
			defer interpreter.Close(context.Background())

			w, err := watcher.NewWatcher(o.cfg.Watch.Debounce, o.cfg.Watch.Include, o.cfg.Watch.ExcludeDirs, func(paths []string) {
				for _, path := range paths {
					o.recompile(ctx, interpreter, path)
				}
			})
			if err != nil {
				return err
			}
			defer w.Close()

			if err := w.Watch(args); err != nil {
				return err
			}
			o.watchConfig(ctx, func(cfg *config.Config) {
				w.SetDebounce(cfg.Watch.Debounce)
			})
			o.logger.Info("watching", "paths", args, "include", o.cfg.Watch.Include)
			<-ctx.Done()
			return nil
		},
	}
}

func (o *options) recompile(ctx context.Context, interpreter *app.App, path string) {
	doc, err := schema.ReadDocument(path)
	if err != nil {
		o.logger.Warn("document unreadable", "path", path, "error", err)
		return
	}
	_, result, err := interpreter.CompileDocument(ctx, doc)
	if err != nil {
		o.logger.Warn("document failed to compile", "path", path, "error", err)
		return
	}
	s := summarize(result)
	o.logger.Info("document compiled",
		"path", path,
		"parameters", s.Parameters,
		"fragments", s.Fragments,
		"syntax_errors", s.SyntaxErrors,
		"imports", s.Imports,
		"unbound", s.Unbound)
}

// summary describes a compiled document. Unbound lists names a fragment
// uses or alters that no parameter or earlier fragment provides.
type summary struct {
	Parameters   int
	Fragments    int
	SyntaxErrors int
	Imports      []string
	Unbound      []string
}

func summarize(result *compiler.Result) summary {
	s := summary{Parameters: len(result.Parameters), Fragments: len(result.Code)}
	bound := make(map[string]bool)
	for _, p := range result.Parameters {
		bound[p.Name] = true
	}
	need := func(name string) {
		if !bound[name] && !slices.Contains(s.Unbound, name) {
			s.Unbound = append(s.Unbound, name)
		}
	}
	for _, item := range result.Code {
		if item.Expression != nil {
			if len(item.Expression.Errors) > 0 {
				s.SyntaxErrors++
			}
			continue
		}
		chunk := item.Chunk
		if len(chunk.Errors) > 0 {
			s.SyntaxErrors++
		}
		for _, name := range chunk.Uses {
			need(name)
		}
		for _, name := range chunk.Alters {
			need(name)
		}
		for _, module := range chunk.Imports {
			if module != "" && !slices.Contains(s.Imports, module) {
				s.Imports = append(s.Imports, module)
			}
			bound[module] = true
		}
		for _, name := range chunk.Assigns {
			bound[name] = true
		}
		for _, d := range chunk.Declares {
			bound[d.DeclaredName()] = true
		}
	}
	return s
}
