// Package config reads configuration from environment variables into
// tagged structs.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load fills cfg from the process environment. Fields declare their
// variable name and default through `env` and `envDefault` tags:
//
//	type Config struct {
//	    Port      int    `env:"HTTP_PORT" envDefault:"8080"`
//	    JWTSecret string `env:"JWT_SECRET"`
//	}
//
// cfg must be a pointer to a struct. Values that fail to parse into the
// field's type surface as an error; cross-field rules (required secrets,
// value ranges) belong to the caller's own validation.
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("load config from environment: %w", err)
	}
	return nil
}
