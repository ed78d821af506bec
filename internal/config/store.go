package config

import (
	"errors"
	"sync"
)

// Store process-wide: write-once en el arranque, read-only después.
// Leer antes de Init() es un error, nunca un default silencioso.

var (
	mu          sync.RWMutex
	current     Config
	initialized bool
)

var (
	// ErrNotInitialized se retorna al leer la configuración antes de Init().
	ErrNotInitialized = errors.New("config: not initialized")

	// ErrAlreadyInitialized se retorna si Init() se llama dos veces.
	ErrAlreadyInitialized = errors.New("config: already initialized")
)

// Init publica la configuración del proceso. Solo la primera llamada tiene
// efecto; las siguientes fallan con ErrAlreadyInitialized.
func Init(c Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	if initialized {
		return ErrAlreadyInitialized
	}
	current = c
	initialized = true
	return nil
}

// Get retorna la configuración publicada.
func Get() (Config, error) {
	mu.RLock()
	defer mu.RUnlock()
	if !initialized {
		return Config{}, ErrNotInitialized
	}
	return current, nil
}

// MustGet retorna la configuración o hace panic si no fue inicializada.
// Solo para wiring en main, nunca en request paths.
func MustGet() Config {
	c, err := Get()
	if err != nil {
		panic(err)
	}
	return c
}

// UnsafeResetForTests limpia el store global. Solo para tests.
func UnsafeResetForTests() {
	mu.Lock()
	defer mu.Unlock()
	current = Config{}
	initialized = false
}
