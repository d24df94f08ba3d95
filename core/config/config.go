package config

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	loadEnvOnce sync.Once

	cacheMu sync.RWMutex
	cache   = map[reflect.Type]any{}
)

// Load parses environment variables into the given struct pointer.
// A .env file in the working directory is loaded once per process before
// the first parse; a missing file is not an error.
//
// Each configuration type is parsed only once per application lifetime.
// Subsequent calls for the same type return the cached value.
func Load(cfg any) error {
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config: expected non-nil struct pointer, got %T", cfg)
	}

	loadEnvOnce.Do(func() {
		// Best effort: environment variables win over .env contents.
		_ = godotenv.Load()
	})

	typ := v.Elem().Type()

	cacheMu.RLock()
	cached, ok := cache[typ]
	cacheMu.RUnlock()
	if ok {
		v.Elem().Set(reflect.ValueOf(cached))
		return nil
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("config: failed to parse %s: %w", typ, err)
	}

	cacheMu.Lock()
	cache[typ] = v.Elem().Interface()
	cacheMu.Unlock()

	return nil
}

// MustLoad is like Load but panics on failure. Useful during startup
// where a missing required variable is fatal.
func MustLoad(cfg any) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}
