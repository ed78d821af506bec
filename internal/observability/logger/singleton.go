package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	once     sync.Once
	instance *zap.Logger
)

// Init arma el logger global una sola vez; llamadas posteriores no hacen
// nada. Se llama desde main antes de cualquier log.
func Init(cfg Config) {
	once.Do(func() {
		instance = build(cfg)
	})
}

// L devuelve el logger global. Si nadie llamó Init (tests, tooling),
// cae en un logger dev a nivel info.
func L() *zap.Logger {
	if instance == nil {
		Init(Config{Env: "dev", Level: "info"})
	}
	return instance
}

// Named devuelve el logger con nombre de componente.
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// With devuelve el logger con campos fijos.
func With(fields ...zap.Field) *zap.Logger {
	return L().With(fields...)
}

// Sync vacía los buffers pendientes; va con defer en main.
func Sync() error {
	if instance != nil {
		return instance.Sync()
	}
	return nil
}
