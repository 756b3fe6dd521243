package logsvc

import (
	"fmt"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

// Logger writes structured logs with zap and mirrors warnings & errors to Rollbar when enabled.
type Logger struct {
	zl      *zap.Logger
	rollbar bool
}

var _ core.Logger = (*Logger)(nil)

func New(conf *core.Config) (*Logger, error) {
	var (
		zl  *zap.Logger
		err error
	)
	if conf.Debug {
		zl, err = zap.NewDevelopment(zap.AddCallerSkip(1))
	} else {
		zl, err = zap.NewProduction(zap.AddCallerSkip(1))
	}
	if err != nil {
		return nil, fmt.Errorf("building zap logger: %w", err)
	}

	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)

	l := &Logger{zl: zl.With(zap.String("app", conf.AppName), zap.String("env", conf.Env))}
	l.Enable(!conf.Debug && !conf.TestMode && conf.RollbarToken != "")
	return l, nil
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return &Logger{zl: zap.NewNop()}
}

func (l *Logger) Enable(enabled bool) {
	l.rollbar = enabled
	rollbar.SetEnabled(enabled)
}

// Sync flushes buffered logs & pending Rollbar items.
func (l *Logger) Sync() {
	_ = l.zl.Sync()
	if l.rollbar {
		rollbar.Wait()
	}
}

// expected args: error, map[string]interface{}, user.User
func (l *Logger) fields(args []interface{}) ([]zap.Field, []interface{}) {
	var usrSet bool
	fields := make([]zap.Field, 0, len(args))
	extras := make([]interface{}, 0, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case user.User:
			if usrSet {
				continue
			}
			usrSet = true
			fields = append(fields, zap.String("user_id", v.ID), zap.String("username", v.Username))
			if l.rollbar {
				rollbar.SetPerson(v.ID, v.Username, v.Email)
			}
		case error:
			fields = append(fields, zap.Error(v))
			extras = append(extras, v)
		case map[string]interface{}:
			fields = append(fields, zap.Any("extra", v))
			extras = append(extras, v)
		default:
			fields = append(fields, zap.Any(fmt.Sprintf("arg%d", i), v))
		}
	}
	if l.rollbar && !usrSet {
		rollbar.ClearPerson()
	}
	return fields, extras
}

func (l *Logger) report(level, msg string, extras []interface{}) {
	if l.rollbar {
		rollbar.Log(level, append([]interface{}{msg}, extras...)...)
	}
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	fields, _ := l.fields(args)
	l.zl.Debug(msg, fields...)
}

func (l *Logger) Info(msg string, args ...interface{}) {
	fields, _ := l.fields(args)
	l.zl.Info(msg, fields...)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	fields, extras := l.fields(args)
	l.zl.Warn(msg, fields...)
	l.report(rollbar.WARN, msg, extras)
}

func (l *Logger) Error(msg string, args ...interface{}) {
	fields, extras := l.fields(args)
	l.zl.Error(msg, fields...)
	l.report(rollbar.ERR, msg, extras)
}

func (l *Logger) Fatal(msg string, args ...interface{}) {
	fields, extras := l.fields(args)
	l.report(rollbar.CRIT, msg, extras)
	l.Sync()
	l.zl.Fatal(msg, fields...)
}
