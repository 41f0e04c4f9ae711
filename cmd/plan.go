package main

import "github.com/spf13/cobra"

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the insertion plan of a schema",
		Long: `Print the tables in insertion order with their dependency layer,
row count, parents and deferred foreign keys. Same as clone --dry-run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClone(cmd, true)
		},
	}
	addSourceFlags(cmd.Flags())

	return cmd
}
