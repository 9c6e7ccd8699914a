package logsvc

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/masomo-ledger/core"
)

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
	levelFatal
)

// RollbarLogger reports to rollbar (when enabled) and prints to a std logger.
type RollbarLogger struct {
	std      *log.Logger
	minLevel level
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)

	minLevel := levelInfo
	if conf.Debug {
		minLevel = levelDebug
	}
	return &RollbarLogger{std: std, minLevel: minLevel}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// prepare turns args into rollbar args.
// expected fmt: msg | error, map[string]interface{}, core.Actor
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var actorSet bool
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		var actor *core.Actor
		switch a := arg.(type) {
		case core.Actor:
			actor = &a
		case *core.Actor:
			actor = a
		}
		if actor == nil {
			newArgs = append(newArgs, arg)
			continue
		}
		// only set one Actor
		if !actorSet && !actor.IsZero() {
			rollbar.SetPerson(actor.ID, actor.Username, actor.Email)
			actorSet = true
		}
	}
	if !actorSet {
		rollbar.ClearPerson()
	}
	return newArgs
}

// format renders args as "msg | err | k=v".
func format(msg string, args []interface{}) string {
	parts := []string{msg}
	for _, arg := range args {
		switch a := arg.(type) {
		case map[string]interface{}:
			keys := make([]string, 0, len(a))
			for k := range a {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				parts = append(parts, fmt.Sprintf("%s=%v", k, a[k]))
			}
		case core.Actor:
			parts = append(parts, "actor="+a.ID)
		case *core.Actor:
			if a != nil {
				parts = append(parts, "actor="+a.ID)
			}
		default:
			parts = append(parts, fmt.Sprintf("%+v", a))
		}
	}
	return strings.Join(parts, " | ")
}

func (l RollbarLogger) log(lvl level, tag string, msg string, args []interface{}) {
	if lvl < l.minLevel {
		return
	}
	l.std.Println(tag + " " + format(msg, args))
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.log(levelDebug, "DEBUG", msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.log(levelInfo, "INFO", msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.log(levelWarn, "WARN", msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.log(levelError, "ERROR", msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	l.log(levelFatal, "FATAL", msg, args)
	l.std.Fatal(msg)
}
