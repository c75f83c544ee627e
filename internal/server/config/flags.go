package config

import (
	"flag"
	"os"
	"time"

	"github.com/docgate/docgate/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-a string               HTTP bind address (e.g., ":8080")
//	-d string               PostgreSQL DSN
//	-s string               token HMAC secret key
//	-t int                  access token validity, minutes
//	-blob string            blob backend: s3 | memory
//	-u string               S3 root user
//	-p string               S3 root password
//	-b string               S3 bucket name
//	-g string               S3 region
//	-e string               S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-admin-email string     default administrator email
//	-admin-password string  default administrator password (seeded at startup)
//	-debug                  debug logging and error details
//
// Only the flags above are looked at, so other components can parse their own
// flags from the same argument list.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:],
		[]string{"-a", "-d", "-s", "-t", "-blob", "-u", "-p", "-b", "-g", "-e", "-admin-email", "-admin-password", "-debug"},
		"-debug")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")

	fs.StringVar(&config.BlobBackend, "blob", config.BlobBackend, "blob backend (s3|memory)")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.DefaultAdminEmail, "admin-email", config.DefaultAdminEmail, "default administrator email")
	fs.StringVar(&config.DefaultAdminPassword, "admin-password", config.DefaultAdminPassword, "default administrator password")
	fs.BoolVar(&config.Debug, "debug", config.Debug, "debug mode")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
}
