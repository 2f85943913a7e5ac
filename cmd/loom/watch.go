package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/internal/fixture"
)

// watchDebounce coalesces the bursts of events editors produce on save.
const watchDebounce = 100 * time.Millisecond

func watchCmd(flags *globalFlags) *cobra.Command {
	var showHTML bool

	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Re-reconcile a fixture whenever it changes",
		Long: `Mount a fixture, then watch it and print the patches produced by
every saved change.

Examples:
  loom watch tree.yaml
  loom watch --html tree.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			path := args[0]
			f, err := fixture.Load(path)
			if err != nil {
				return err
			}
			a, err := newApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := a.mount(ctx, f); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, a.html(false))
			success(out, "watching %s", path)

			return watchFile(ctx, path, a.log, func() {
				next, err := fixture.Load(path)
				if err != nil {
					errors.Fprint(cmd.ErrOrStderr(), err)
					return
				}
				lines, err := a.rerender(ctx, next)
				if err != nil {
					errors.Fprint(cmd.ErrOrStderr(), err)
					return
				}
				printPatches(out, lines)
				if showHTML {
					fmt.Fprintln(out, a.html(false))
				}
			})
		},
	}

	cmd.Flags().BoolVar(&showHTML, "html", false, "Print the HTML after every change")
	return cmd
}

// watchFile calls onChange on the calling goroutine after path is written,
// until ctx is done. The parent directory is watched so that editors which
// save by renaming are still seen.
func watchFile(ctx context.Context, path string, log *slog.Logger, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.New("L401").Wrap(err)
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.New("L401").Wrap(err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return errors.New("L401").WithDetail(filepath.Dir(abs)).Wrap(err)
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			log.Debug("fixture changed", "path", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "error", err)
		case <-fire:
			fire = nil
			onChange()
		}
	}
}
