package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/yelpcamp/internal/flagx"
	"github.com/dmitrijs2005/yelpcamp/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON config file. Durations are
// timex.Duration so files can say "24h". Absent keys leave the current
// value untouched.
type JsonConfig struct {
	EndpointAddrHTTP  string         `json:"endpoint_addr_http"`
	DatabaseDSN       string         `json:"database_dsn"`
	SecretKey         string         `json:"secret_key"`
	Mode              string         `json:"mode"`
	RedisAddr         string         `json:"redis_addr"`
	RedisPassword     string         `json:"redis_password"`
	RedisDB           *int           `json:"redis_db"`
	SessionTTL        timex.Duration `json:"session_ttl"`
	SessionTouchAfter timex.Duration `json:"session_touch_after"`
	CSRFEnabled       *bool          `json:"csrf_enabled"`
	GeocoderBaseURL   string         `json:"geocoder_base_url"`
	GeocoderToken     string         `json:"geocoder_token"`
	S3RootUser        string         `json:"s3_root_user"`
	S3RootPassword    string         `json:"s3_root_password"`
	S3Bucket          string         `json:"s3_bucket"`
	S3Region          string         `json:"s3_region"`
	S3BaseEndpoint    string         `json:"s3_base_endpoint"`
	S3PublicURL       string         `json:"s3_public_url"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// parseJson overlays Config with the file named by -c/-config. Without the
// flag nothing is loaded. An unreadable file or invalid JSON panics.
func parseJson(config *Config) {
	path := flagx.JsonConfigFlags()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.Mode, c.Mode)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setString(&config.GeocoderBaseURL, c.GeocoderBaseURL)
	setString(&config.GeocoderToken, c.GeocoderToken)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3PublicURL, c.S3PublicURL)

	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}
	if c.SessionTTL.Duration > 0 {
		config.SessionTTL = c.SessionTTL.Duration
	}
	if c.SessionTouchAfter.Duration > 0 {
		config.SessionTouchAfter = c.SessionTouchAfter.Duration
	}
	if c.CSRFEnabled != nil {
		config.CSRFEnabled = *c.CSRFEnabled
	}
}
