// Package config handles loading and validating sensord configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Loading a .env file into the environment
//   - Overriding with SENSORD_* environment variables and CLI flags
//   - Validation of every section, reported together
//
// Usage:
//
//	if err := config.LoadEnvFile(".env", false); err != nil {
//	    return err
//	}
//	cfg, err := config.Load("configs/sensord.yaml", func(c *config.Config) {
//	    c.API.Port = 8080
//	})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Address())
package config
