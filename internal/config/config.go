package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Task     TaskConfig     `mapstructure:"task" validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage" validate:"required"`
	OSM      OSMConfig      `mapstructure:"osm" validate:"required"`
	Paths    PathsConfig    `mapstructure:"paths" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
// An empty URL keeps job records in memory.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// RedisConfig configures the live progress store.
// An empty URL keeps progress in memory.
type RedisConfig struct {
	URL         string        `mapstructure:"url" validate:"omitempty,url"`
	ProgressTTL time.Duration `mapstructure:"progress_ttl" validate:"gte=0"`
}

// AuthConfig contains authentication settings.
// When JWTSecret is empty poster submission is open.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"omitempty,min=32"`
}

// TaskConfig controls the background poster generation workers.
type TaskConfig struct {
	QueueSize           int `mapstructure:"queue_size" validate:"required,gt=0"`
	WorkerCount         int `mapstructure:"worker_count" validate:"required,gt=0"`
	StuckTaskAgeMinutes int `mapstructure:"stuck_task_age_minutes" validate:"required,gt=0"`
}

// StorageConfig selects where finished posters are kept.
type StorageConfig struct {
	Backend      string        `mapstructure:"backend" validate:"required,oneof=local s3"`
	LocalDir     string        `mapstructure:"local_dir" validate:"required_if=Backend local"`
	URLTemplate  string        `mapstructure:"url_template" validate:"required"`
	PosterMaxAge time.Duration `mapstructure:"poster_max_age" validate:"gte=0"`
	S3           S3Config      `mapstructure:"s3"`
}

// S3Config holds the S3-compatible object store settings used when Backend is "s3".
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// OSMConfig points at the OpenStreetMap services.
type OSMConfig struct {
	NominatimURL string        `mapstructure:"nominatim_url" validate:"required,url"`
	OverpassURL  string        `mapstructure:"overpass_url" validate:"required,url"`
	UserAgent    string        `mapstructure:"user_agent" validate:"required"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// PathsConfig lists the on-disk resources the renderer needs.
type PathsConfig struct {
	ThemesDir string `mapstructure:"themes_dir" validate:"required"`
	FontsDir  string `mapstructure:"fonts_dir" validate:"required"`
	CacheDir  string `mapstructure:"cache_dir" validate:"required"`
}

// StuckTaskAge returns the configured stuck task age as a duration.
func (c TaskConfig) StuckTaskAge() time.Duration {
	return time.Duration(c.StuckTaskAgeMinutes) * time.Minute
}
