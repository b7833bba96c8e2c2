package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// watchDebounce coalesces the burst of events an editor save produces.
const watchDebounce = 300 * time.Millisecond

func newWatchCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch FILE...",
		Short: "Recount files every time they change",
		Long: `Count the given files, then recount whenever one of them is written.

Runs entirely in memory: nothing is added to history, projects or usage.
Press Ctrl+C to stop watching.

Examples:
  tokenbench watch prompt.md
  tokenbench watch --offline -e p50k_base system.txt examples.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.watch(ctx, cmd.OutOrStdout(), args)
		},
	}
}

// watch counts paths once and again after every change until ctx ends.
func (a *App) watch(ctx context.Context, out io.Writer, paths []string) error {
	a.noSave = true
	w, err := a.Workspace(ctx)
	if err != nil {
		return err
	}

	targets := make(map[string]bool, len(paths))
	for i, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		paths[i] = abs
		targets[abs] = true
	}

	watcher, err := createWatcher(paths)
	if err != nil {
		return err
	}
	defer watcher.Close()

	recount := func() {
		w.ClearQueue()
		if err := a.load(w, paths); err != nil {
			fmt.Fprintln(out, paint(out, styleError, "Error: "+err.Error()))
			return
		}
		report, err := w.Analyze(ctx)
		if err != nil {
			fmt.Fprintln(out, paint(out, styleError, "Error: "+err.Error()))
			return
		}
		fmt.Fprintln(out, paint(out, styleDim, time.Now().Format("15:04:05")))
		printReport(out, report)
		fmt.Fprintln(out)
	}

	recount()
	fmt.Fprintln(out, paint(out, styleDim, fmt.Sprintf("Watching %d file(s). Press Ctrl+C to stop.", len(paths))))
	return runWatchLoop(ctx, watcher, targets, watchDebounce, recount)
}

// createWatcher watches the directories holding paths. Watching the
// directory survives editors that save by renaming over the file.
func createWatcher(paths []string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	dirs := make(map[string]bool)
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to watch file: %w", err)
		}
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	return watcher, nil
}

// runWatchLoop calls recount once per debounced burst of write or create
// events on targets.
func runWatchLoop(ctx context.Context, watcher *fsnotify.Watcher, targets map[string]bool, debounce time.Duration, recount func()) error {
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !targets[filepath.Clean(event.Name)] {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				timer.Reset(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watcher error: %v\n", err)
		case <-timer.C:
			recount()
		}
	}
}
