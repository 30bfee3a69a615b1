// Package cli implements the classmint command-line client: cobra commands
// that call RewardService over gRPC and render results with pterm.
package cli
