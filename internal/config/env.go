// Package config loads binary configuration: defaults first, then
// SKETCHSYNC_* environment variables, then command line flags.
package config

import (
	"fmt"
	"strconv"
	"time"
)

// EnvPrefix - префикс переменных окружения
const EnvPrefix = "SKETCHSYNC_"

// env читает переменные окружения поверх значений по умолчанию
type env struct {
	getenv func(string) string
	err    error
}

func (e *env) lookup(name string) (string, bool) {
	v := e.getenv(EnvPrefix + name)
	return v, v != ""
}

func (e *env) setString(name string, dst *string) {
	if v, ok := e.lookup(name); ok {
		*dst = v
	}
}

func (e *env) setInt(name string, dst *int) {
	v, ok := e.lookup(name)
	if !ok || e.err != nil {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.err = fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
		return
	}
	*dst = n
}

func (e *env) setDuration(name string, dst *time.Duration) {
	v, ok := e.lookup(name)
	if !ok || e.err != nil {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.err = fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
		return
	}
	*dst = d
}
