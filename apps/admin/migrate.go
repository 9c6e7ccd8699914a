package main

import (
	"github.com/trezcool/masomo-ledger/storage/database"
)

var gooseRunFunc = database.RunMigration // mockable

// migrate runs a goose command against the configured database.
func (cli *commandLine) migrate(command string, args ...string) error {
	return gooseRunFunc(cli.db, cli.engine, command, args...)
}
