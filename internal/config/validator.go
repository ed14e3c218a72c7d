// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` after it unmarshals
// the merged Koanf tree and resolves Vault references.  Any tag mismatch
// aborts startup, ensuring the binary never runs with partial, malformed,
// or missing configuration.
//
// One cross-field check lives here as plain code: a DSN carrying a `%s`
// verb must be paired with a non-empty password.

package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var v = validator.New()

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	if err := v.Struct(c); err != nil {
		return err
	}
	if strings.Contains(c.Database.DSN, "%s") && c.Database.Password == "" {
		return fmt.Errorf("config: database.dsn expects a password but database.password is empty")
	}
	return nil
}
