// Copyright 2021-2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logger

import (
	"log"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	LogContainer     logContainer
	loggerInit       sync.Once
	simpleLoggerInit sync.Once
)

type logContainer struct {
	logger       *zap.Logger
	simpleLogger *zap.SugaredLogger

	file  lazySink
	level zap.AtomicLevel
	once  sync.Once
}

// lazySink discards everything until a log file has been configured, so
// package level loggers created during init still end up in the file.
type lazySink struct {
	mu sync.Mutex
	w  zapcore.WriteSyncer
}

func (s *lazySink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return len(p), nil
	}
	return s.w.Write(p)
}

func (s *lazySink) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return nil
	}
	return s.w.Sync()
}

// Configure sets the JSON log file (empty for console only) and the verbosity.
func (l *logContainer) Configure(logFile string, debug bool) {
	l.atomicLevel().SetLevel(levelFor(debug))
	if logFile == "" {
		return
	}
	w := getLogWriter(logFile)
	l.file.mu.Lock()
	l.file.w = w
	l.file.mu.Unlock()
}

// GetLogger returns the pointer to the logger and creates one if none exists
func (l *logContainer) GetLogger() *zap.Logger {
	loggerInit.Do(func() {
		l.logger = zap.New(l.getCombinedCore())
	})
	return l.logger
}

// GetSimpleLogger returns the pointer to the sugared logger and creates one
// if none exists
func (l *logContainer) GetSimpleLogger() *zap.SugaredLogger {
	simpleLoggerInit.Do(func() {
		l.simpleLogger = l.GetLogger().Sugar()
	})
	return l.simpleLogger
}

// String mirrors zap.String
func (l *logContainer) String(key string, val string) zap.Field {
	return zap.String(key, val)
}

// Int mirrors zap.Int
func (l *logContainer) Int(key string, val int) zap.Field {
	return zap.Int(key, val)
}

func (l *logContainer) atomicLevel() zap.AtomicLevel {
	l.once.Do(func() {
		l.level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	})
	return l.level
}

func levelFor(debug bool) zapcore.Level {
	if debug {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

func getConsoleEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(encoderConfig)
}

func getJsonEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.EpochTimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

func getLogWriter(path string) zapcore.WriteSyncer {
	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("unable to create logfile: %v", err)
	}
	return zapcore.AddSync(f)
}

func (l *logContainer) getConsoleCore() zapcore.Core {
	return zapcore.NewCore(getConsoleEncoder(), zapcore.AddSync(os.Stdout), l.atomicLevel())
}

func (l *logContainer) getJsonCore() zapcore.Core {
	return zapcore.NewCore(getJsonEncoder(), &l.file, l.atomicLevel())
}

func (l *logContainer) getCombinedCore() zapcore.Core {
	return zapcore.NewTee(l.getConsoleCore(), l.getJsonCore())
}
