package cmd

import (
	"fmt"

	"github.com/AnyUserName/phototune/internal/profile"
	"github.com/spf13/cobra"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the built-in adjustment presets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := cmd.OutOrStdout()
		for _, name := range profile.Names() {
			p, err := profile.Get(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "  %-8s  %-44s  %s\n", p.Name, p.Description, p.Params)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(presetsCmd)
}
