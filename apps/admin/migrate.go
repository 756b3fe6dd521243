package main

import (
	"github.com/spf13/cobra"

	"github.com/trezcool/shule/storage/database"
)

var migrateFunc = database.Migrate // mockable

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a database migration command",
		Long: `Run a goose command against the embedded migrations:
  up, up-by-one, up-to VERSION, down, down-to VERSION, redo, reset, status, version, fix`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrateFunc(cmd.Context(), cli.c.DB, args[0], args[1:]...)
		},
	}
}
