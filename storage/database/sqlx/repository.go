package sqlxrepos

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/trezcool/masomo-ledger/core"
	"github.com/trezcool/masomo-ledger/storage/database"
)

// repository holds what every SQL repository shares: the default executor
// and a statement builder using the engine's placeholders.
type repository struct {
	exec core.DBExecutor
	sb   sq.StatementBuilderType
}

func newRepository(exec core.DBExecutor, engine string) repository {
	var format sq.PlaceholderFormat = sq.Question
	if engine == database.EnginePostgres {
		format = sq.Dollar
	}
	return repository{
		exec: exec,
		sb:   sq.StatementBuilder.PlaceholderFormat(format),
	}
}

func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}
