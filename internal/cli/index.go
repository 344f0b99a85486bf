package cli

import (
	"fmt"

	"cogsearch-go/internal/app"

	"github.com/spf13/cobra"
)

var indexKind string

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "List, create and delete indexes",
}

var indexListCmd = &cobra.Command{
	Use:   "list",
	Short: "List index names",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) error {
			names, err := a.Schema.ListIndexes(cmd.Context())
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		})
	},
}

var indexCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an index of the given kind if it does not exist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(indexKind)
		if err != nil {
			return err
		}
		return withApp(cmd, func(a *app.App) error {
			created, err := a.Schema.CreateIndex(cmd.Context(), kind, args[0])
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", args[0], kind)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already exists\n", args[0])
			}
			return nil
		})
	},
}

var indexDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete an index if it exists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) error {
			deleted, err := a.Schema.DeleteIndex(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if deleted {
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s does not exist\n", args[0])
			}
			return nil
		})
	},
}

func init() {
	indexCreateCmd.Flags().StringVar(&indexKind, "kind", "cogsearchvs", "index kind: cogsearch or cogsearchvs")
	indexCmd.AddCommand(indexListCmd, indexCreateCmd, indexDeleteCmd)
	rootCmd.AddCommand(indexCmd)
}
