package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// dotEnvFile is the local override file read outside production.
var dotEnvFile = ".env"

// loadDotEnv reads dotEnvFile into the process environment unless APP_ENV
// says production. Variables already set in the environment win. A missing
// file is not an error; a malformed one panics like a bad JSON config does.
func loadDotEnv(config *Config) {
	if os.Getenv("APP_ENV") == ModeProduction {
		return
	}

	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}
}

// parseEnv overlays Config with recognized environment variables:
//
//	ADDRESS, DB_URL, SECRET, APP_ENV, REDIS_ADDR, REDIS_PASSWORD, REDIS_DB,
//	CSRF_ENABLED, GEOCODER_URL, MAPBOX_TOKEN, S3_ROOT_USER, S3_ROOT_PASSWORD,
//	S3_BUCKET, S3_REGION, S3_BASE_ENDPOINT, S3_PUBLIC_URL
func parseEnv(config *Config) {
	strs := map[string]*string{
		"ADDRESS":          &config.EndpointAddrHTTP,
		"DB_URL":           &config.DatabaseDSN,
		"SECRET":           &config.SecretKey,
		"APP_ENV":          &config.Mode,
		"REDIS_ADDR":       &config.RedisAddr,
		"REDIS_PASSWORD":   &config.RedisPassword,
		"GEOCODER_URL":     &config.GeocoderBaseURL,
		"MAPBOX_TOKEN":     &config.GeocoderToken,
		"S3_ROOT_USER":     &config.S3RootUser,
		"S3_ROOT_PASSWORD": &config.S3RootPassword,
		"S3_BUCKET":        &config.S3Bucket,
		"S3_REGION":        &config.S3Region,
		"S3_BASE_ENDPOINT": &config.S3BaseEndpoint,
		"S3_PUBLIC_URL":    &config.S3PublicURL,
	}

	for name, dst := range strs {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("REDIS_DB"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			config.RedisDB = n
		}
	}

	if v, ok := os.LookupEnv("CSRF_ENABLED"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			config.CSRFEnabled = b
		}
	}
}
