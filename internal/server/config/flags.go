package config

import (
	"flag"
	"fmt"
	"time"
)

var (
	valueFlags = []string{"-a", "-m", "-D", "-d", "-s", "-t", "-k", "-n", "-u", "-p", "-b", "-g", "-e"}
	boolFlags  = []string{"-debug"}
)

// parseFlags overlays command-line flags onto config.
//
// Supported flags:
//
//	-a string   gRPC bind address (e.g. ":50051")
//	-m string   metrics bind address, empty disables
//	-D string   database driver: pgx or sqlite
//	-d string   database DSN
//	-s string   root secret key
//	-t int      admin token validity, minutes
//	-k int      verified-token cache size, 0 disables
//	-n int      blocks returned by ledger status
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket, empty disables export
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g. "http://127.0.0.1:9000/")
//	-debug      debug logging
//
// Unknown arguments (such as -c) are filtered out before parsing.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "address and port for metrics")
	fs.StringVar(&config.DatabaseDriver, "D", config.DatabaseDriver, "database driver (pgx|sqlite)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	adminTokenValidity := fs.Int("t", int(config.AdminTokenValidityDuration.Minutes()), "admin token validity (in minutes)")

	fs.IntVar(&config.VerifyCacheSize, "k", config.VerifyCacheSize, "verified token cache size")
	fs.IntVar(&config.RecentBlocksLimit, "n", config.RecentBlocksLimit, "recent blocks in ledger status")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.BoolVar(&config.Debug, "debug", config.Debug, "debug logging")

	if err := fs.Parse(filterArgs(args, valueFlags, boolFlags)); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.AdminTokenValidityDuration = time.Duration(*adminTokenValidity) * time.Minute
		}
	})
	return nil
}
