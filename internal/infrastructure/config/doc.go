// Package config handles loading and validating the irrigation controller configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (IRRIGATION_*)
//   - Validation of required fields
//   - Default value handling
//
// The operating mode is controlled by IRRIGATION_MODE: "remote" (default)
// publishes actuator commands, "local" computes and logs them only.
//
// Security Considerations:
//   - Sensitive values (passwords, tokens) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Irrigation.Mode)
package config
