package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vango-dev/loom/internal/fixture"
	"github.com/vango-dev/loom/pkg/loom"
)

func diffCmd(flags *globalFlags) *cobra.Command {
	var showHTML bool

	cmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Print the patches that reconcile one fixture into another",
		Long: `Mount OLD, reconcile it against NEW and print every applied patch.

Examples:
  loom diff before.yaml after.yaml
  loom diff --html before.yaml after.yaml`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldF, err := fixture.Load(args[0])
			if err != nil {
				return err
			}
			newF, err := fixture.Load(args[1])
			if err != nil {
				return err
			}
			a, err := newApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			var last loom.CommitRecord
			a.rt.OnCommit(func(rec loom.CommitRecord) { last = rec })

			if err := a.mount(cmd.Context(), oldF); err != nil {
				return err
			}
			before := a.rt.Commits()
			lines, err := a.rerender(cmd.Context(), newF)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printPatches(out, lines)
			if a.rt.Commits() > before {
				fmt.Fprintf(out, "\n%d patches: %d created, %d removed, %d replaced, %d text, %d updated\n",
					last.Patches(), last.Created, last.Removed, last.Replaced, last.Text, last.Updated)
			}
			if showHTML {
				fmt.Fprintln(out)
				fmt.Fprintln(out, a.html(false))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showHTML, "html", false, "Print the reconciled HTML")
	return cmd
}

func printPatches(w io.Writer, lines []string) {
	if len(lines) == 0 {
		fmt.Fprintln(w, "no changes")
		return
	}
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}
