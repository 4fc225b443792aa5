package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zjrosen/canvasflow/internal/canvas"
	"github.com/zjrosen/canvasflow/internal/flags"
	"github.com/zjrosen/canvasflow/internal/log"
	"github.com/zjrosen/canvasflow/internal/presentation"
	"github.com/zjrosen/canvasflow/internal/watcher"
)

var (
	watchPattern  string
	watchExisting bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <file-or-dir>",
	Short: "Re-run graphs whenever their files change",
	Long: `Watch a graph file, or every graph file under a directory, and run
a graph each time its content changes. Saves that leave the content
unchanged are ignored. Each result is printed as JSON and recorded in
the run history.

Examples:
  canvasflow watch story.json
  canvasflow watch ./canvases --pattern 'drafts/**/*.json'
  canvasflow watch ./canvases --existing`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchPattern, "pattern", "", "doublestar file pattern under a directory (overrides config)")
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "run every matching graph once at startup")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	wcfg := watcher.Config{
		Root:        args[0],
		Pattern:     cfg.Watch.Pattern,
		DebounceDur: cfg.Watch.Debounce,
	}
	if watchPattern != "" {
		wcfg.Pattern = watchPattern
	}

	w, err := watcher.New(wcfg)
	if err != nil {
		return err
	}
	changes, err := w.Start()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer func() { _ = w.Stop() }()

	a, err := newApp(cfg, appOptions{store: true})
	if err != nil {
		return err
	}
	defer closeApp(a)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Watching %d graph file(s) under %s\n", len(w.Files()), args[0])

	if watchExisting {
		for _, path := range w.Files() {
			data, err := os.ReadFile(path) //nolint:gosec // G304: path was found by the watcher
			if err != nil {
				log.ErrorErr(log.CatWatcher, "Failed to read graph", err, "path", path)
				continue
			}
			runChanged(ctx, a, out, path, data)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			log.Info(log.CatWatcher, "Graph changed", "path", change.Path, "hash", change.Hash)
			runChanged(ctx, a, out, change.Path, change.Data)
		}
	}
}

// runChanged executes one graph file's content. Unparseable saves are
// logged and skipped; the canvas may be mid-edit. With the
// watch-sequential flag the generators run through the sequential queue
// and nothing is recorded.
func runChanged(ctx context.Context, a *app, out io.Writer, path string, data []byte) {
	g, err := canvas.ParseGraph(data)
	if err != nil {
		log.Warn(log.CatWatcher, "Skipping unparseable graph", "path", path, "error", err)
		return
	}

	if features.Enabled(flags.FlagWatchSequential) {
		outcome, err := a.sequencer.Run(ctx, g.Nodes, g.Edges, nil)
		if err != nil {
			log.Warn(log.CatWatcher, "Sequential run rejected", "path", path, "error", err)
			return
		}
		if err := presentation.NewFormatter(out).FormatResult(outcome); err != nil {
			log.ErrorErr(log.CatWatcher, "Failed to print result", err, "path", path)
		}
		return
	}

	res := a.orchestrator.Execute(ctx, g.Nodes, g.Edges, nil)
	a.record(context.WithoutCancel(ctx), g, res, path)

	if err := presentation.NewFormatter(out).FormatResult(res); err != nil {
		log.ErrorErr(log.CatWatcher, "Failed to print result", err, "path", path)
	}
}
