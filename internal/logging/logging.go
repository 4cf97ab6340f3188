// Package logging provides the process-wide structured logger used by every
// warden, PMSM, and support package. It is a thin wrapper around zap,
// adapted from the Brightgate daemons' logging setup: a development-style
// encoder with a custom timestamp, a dynamically adjustable level, and a
// caller tag built from the daemon name.
package logging

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	atomicLevel = zap.NewAtomicLevel()
	procName    string
)

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006/01/02 15:04:05.000"))
}

// callerEncoder tags each line with the process name and the file:line it
// came from, so that a log stream interleaving the warden, several PMSMs,
// and the DSC can still be read chronologically.
func callerEncoder(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
	dir, file := filepath.Split(caller.File)
	dir = filepath.Base(dir)
	if dir != procName {
		file = filepath.Join(dir, file)
	}
	enc.AppendString(fmt.Sprintf("%s:%s:%d", procName, file, caller.Line))
}

// SetLevel adjusts the running log level. Safe to call from any goroutine.
func SetLevel(level string) error {
	var l zapcore.Level
	if err := (&l).UnmarshalText([]byte(level)); err != nil {
		return err
	}
	atomicLevel.SetLevel(l)
	return nil
}

// New returns a sugared logger for the named process (e.g. "wifiwardend").
func New(name string) *zap.SugaredLogger {
	procName = name

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = atomicLevel
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = timeEncoder
	cfg.EncoderConfig.EncodeCaller = callerEncoder

	logger, err := cfg.Build()
	if err != nil {
		log.Panicf("unable to build logger: %v", err)
	}
	_ = zap.RedirectStdLog(logger)

	return logger.Sugar()
}
