package config

import "time"

// Config is the root of the tasklens configuration file.
type Config struct {
	API   APIConfig         `yaml:"api"`
	User  UserConfig        `yaml:"user"`
	Cache CacheConfig       `yaml:"cache"`
	Terms map[string]string `yaml:"terms"` // common name -> API name
}

// APIConfig describes how to reach the remote API.
type APIConfig struct {
	BaseURL       string        `yaml:"baseURL"`
	Email         string        `yaml:"email"`       // basic auth user; supports env:/file: references
	Token         string        `yaml:"token"`       // basic auth token; supports env:/file: references
	BearerToken   string        `yaml:"bearerToken"` // takes precedence over email+token
	SkipTLSVerify bool          `yaml:"skipTLSVerify"`
	Timeout       time.Duration `yaml:"timeout"`
}

// UserConfig identifies the current user for "me" filters.
type UserConfig struct {
	Email string `yaml:"email"`
	Name  string `yaml:"name"`
}

// CacheConfig locates the response cache.
type CacheConfig struct {
	Dir string `yaml:"dir"`
}
