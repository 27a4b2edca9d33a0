package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu    sync.RWMutex
	sugar = zap.NewNop().Sugar()
)

// Init builds the process logger for the given app mode ("dev" or "prod")
func Init(mode string) (*zap.SugaredLogger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if mode == "prod" {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}

	mu.Lock()
	sugar = l.Sugar()
	mu.Unlock()

	return sugar, nil
}

// L returns the process logger. It is a no-op logger until Init is called.
func L() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Set replaces the process logger (tests use zaptest or a nop logger)
func Set(l *zap.SugaredLogger) {
	mu.Lock()
	sugar = l
	mu.Unlock()
}

// Sync flushes buffered entries
func Sync() {
	_ = L().Sync()
}
