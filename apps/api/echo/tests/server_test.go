package tests

import (
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/masomo-ledger/apps/api/echo"
	"github.com/trezcool/masomo-ledger/tests"
)

func TestNewServer(t *testing.T) {
	assert.PanicsWithValue(t, "echoapi.NewServer: missing Conf", func() {
		echoapi.NewServer(echoapi.ServerDeps{})
	})
	assert.PanicsWithValue(t, "echoapi.NewServer: missing AttendanceSvc", func() {
		echoapi.NewServer(echoapi.ServerDeps{Conf: testutil.NewConfig(), Logger: testutil.NewLogger()})
	})
}
