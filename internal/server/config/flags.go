package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/yelpcamp/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":3000")
//	-d string   PostgreSQL DSN
//	-s string   session signing secret
//	-m string   mode: development | production
//	-r string   Redis address for sessions (empty: in-memory)
//	-t int      session TTL, hours
//	-o int      session touch threshold, minutes
//	-g string   geocoder base URL
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-e string   S3 base endpoint
//
// Only these flags are parsed (see flagx.FilterArgs), so -c/-config and
// flags of other components pass through untouched.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-m", "-r", "-t", "-o", "-g", "-u", "-p", "-b", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "session secret")
	fs.StringVar(&config.Mode, "m", config.Mode, "runtime mode")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")

	sessionTTL := fs.Int("t", int(config.SessionTTL.Hours()), "session ttl (in hours)")
	touchAfter := fs.Int("o", int(config.SessionTouchAfter.Minutes()), "session touch threshold (in minutes)")

	fs.StringVar(&config.GeocoderBaseURL, "g", config.GeocoderBaseURL, "geocoder base URL")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionTTL = time.Duration(*sessionTTL) * time.Hour
	config.SessionTouchAfter = time.Duration(*touchAfter) * time.Minute
}
