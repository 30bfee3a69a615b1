// Package config loads runtime configuration for the classmint CLI.
//
// Sources & precedence
//
//  1. Defaults (LoadDefaults).
//  2. JSON file given with --config.
//  3. CM_* environment variables, e.g. CM_SERVER_ENDPOINT_ADDR and
//     CM_SECRET_KEY (shared with the server).
//  4. Command-line flags, applied by the cli package.
package config
