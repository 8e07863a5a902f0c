package cmd

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "建表并执行补充 DDL",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := loadBase()
		if err != nil {
			return err
		}
		defer deps.Close()

		return migrate(cmd.Context(), deps)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
