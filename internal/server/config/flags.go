package config

import (
	"flag"
	"os"

	"github.com/penter405/brainsync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string     HTTP bind address (e.g., ":8080")
//	-d string     PostgreSQL DSN
//	-f string     frontend URL
//	-t duration   session max age (e.g., "168h")
//	-prod         production cookies (Secure, SameSite=None)
//	-b string     audit S3 bucket
//	-g string     S3 region
//	-e string     S3 base endpoint
//	-debug        debug logging
//
// Secrets are not accepted on the command line; they would leak through the
// process table.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-f", "-t", "-prod", "-b", "-g", "-e", "-debug"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.FrontendURL, "f", config.FrontendURL, "frontend URL")
	fs.DurationVar(&config.SessionMaxAge, "t", config.SessionMaxAge, "session max age")
	fs.BoolVar(&config.Production, "prod", config.Production, "production mode")
	fs.StringVar(&config.AuditS3Bucket, "b", config.AuditS3Bucket, "audit S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.BoolVar(&config.Debug, "debug", config.Debug, "debug logging")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
