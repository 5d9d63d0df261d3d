// Package config handles loading and validating mazerunner configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Reading broker credentials from a dotenv file (credentials.env)
//   - Overriding with environment variables
//   - Validation of required fields
//
// Security Considerations:
//   - Broker credentials should live in credentials.env or the environment,
//     never in the YAML file
//   - The credentials file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml", config.DefaultCredentialsFile)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Game.Lobby)
package config
