package config

import (
	"encoding/json"
	"os"

	"github.com/docgate/docgate/internal/flagx"
	"github.com/docgate/docgate/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Every field is
// optional; absent fields leave the current value untouched.
type JsonConfig struct {
	HTTPAddr                    *string         `json:"http_addr"`
	DatabaseDSN                 *string         `json:"database_dsn"`
	SecretKey                   *string         `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	BlobBackend                 *string         `json:"blob_backend"`
	S3RootUser                  *string         `json:"s3_root_user"`
	S3RootPassword              *string         `json:"s3_root_password"`
	S3Bucket                    *string         `json:"s3_bucket"`
	S3Region                    *string         `json:"s3_region"`
	S3BaseEndpoint              *string         `json:"s3_base_endpoint"`
	DefaultAdminEmail           *string         `json:"default_admin_email"`
	DefaultAdminPassword        *string         `json:"default_admin_password"`
	Debug                       *bool           `json:"debug"`
}

// parseJson overlays values from the JSON file named by -c/-config (or
// $DOCGATE_CONFIG) onto config. No path means nothing to do. An unreadable
// file or invalid JSON panics: the process cannot start misconfigured.
func parseJson(config *Config) {
	path := flagx.ConfigFile()
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

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	setString(&config.BlobBackend, c.BlobBackend)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.DefaultAdminEmail, c.DefaultAdminEmail)
	setString(&config.DefaultAdminPassword, c.DefaultAdminPassword)
	if c.Debug != nil {
		config.Debug = *c.Debug
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
