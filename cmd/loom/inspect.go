package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/internal/fixture"
	"github.com/vango-dev/loom/pkg/inspect"
)

func inspectCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Serve the devtools inspector for a fixture",
		Long: `Mount a fixture, watch it for changes and serve the inspector.

The inspector lists render roots and instances, serves the host tree as
HTML, exposes Prometheus metrics and streams commit records over a
websocket.

Examples:
  loom inspect tree.yaml
  loom inspect --addr=localhost:9000 tree.yaml`,
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
			if addr == "" {
				addr = a.cfg.Inspect.Addr
			}

			srv := inspect.New(a.rt, &inspect.Config{
				Addr:     addr,
				Gatherer: a.reg,
				Logger:   a.log,
			})
			a.running = true

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			s := a.rt.Scheduler()
			schedDone := make(chan struct{})
			go func() {
				defer close(schedDone)
				s.Run(ctx)
			}()
			defer func() {
				cancel()
				<-schedDone
			}()

			var mountErr error
			if err := s.Do(ctx, func() { mountErr = a.mount(ctx, f) }); err != nil {
				return err
			}
			if mountErr != nil {
				return mountErr
			}
			success(cmd.OutOrStdout(), "inspector at http://%s", addr)

			go func() {
				err := watchFile(ctx, path, a.log, func() {
					next, err := fixture.Load(path)
					if err != nil {
						errors.Fprint(cmd.ErrOrStderr(), err)
						return
					}
					s.Do(ctx, func() {
						if _, err := a.rerender(ctx, next); err != nil {
							errors.Fprint(cmd.ErrOrStderr(), err)
						}
					})
				})
				if err != nil {
					a.log.Error("watch stopped", "error", err)
				}
			}()

			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from loom.yaml)")
	return cmd
}
