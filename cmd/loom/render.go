package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-dev/loom/internal/fixture"
)

func renderCmd(flags *globalFlags) *cobra.Command {
	var pretty bool

	cmd := &cobra.Command{
		Use:   "render FILE",
		Short: "Render a YAML fixture to HTML",
		Long: `Mount a fixture into an empty document and print the resulting HTML.

Examples:
  loom render tree.yaml
  loom render --pretty tree.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := fixture.Load(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := a.mount(cmd.Context(), f); err != nil {
				return err
			}
			out := a.html(pretty)
			if !pretty {
				out += "\n"
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&pretty, "pretty", "p", false, "Indent the output")
	return cmd
}
