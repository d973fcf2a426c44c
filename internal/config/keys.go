package config

import "os"

// APIKeySource represents where a secret comes from.
type APIKeySource string

const (
	KeySourceEnv    APIKeySource = "env"
	KeySourceConfig APIKeySource = "config"
	KeySourceNone   APIKeySource = "none"
)

// KeyStatus represents the status of a configured secret.
type KeyStatus struct {
	Name   string       `json:"name"             yaml:"name"`
	Source APIKeySource `json:"source"           yaml:"source"`
	IsSet  bool         `json:"is_set"           yaml:"is_set"`
	Masked string       `json:"masked,omitempty" yaml:"masked,omitempty"` // e.g., "sk-...abc"
}

// CheckAPIKeys returns the status of the backend API key and the admin token.
func CheckAPIKeys(cfg *Config) []KeyStatus {
	return []KeyStatus{
		checkKey("Backend API Key", cfg.Backend.APIKey, "BRIS_BACKEND_API_KEY"),
		checkKey("Admin Token", cfg.API.AdminToken, "BRIS_API_ADMIN_TOKEN"),
	}
}

// checkKey checks if a key is set and where it came from.
func checkKey(name, value, envVar string) KeyStatus {
	status := KeyStatus{
		Name:  name,
		IsSet: value != "",
	}

	switch {
	case value == "":
		status.Source = KeySourceNone
	case os.Getenv(envVar) != "":
		status.Source = KeySourceEnv
		status.Masked = maskKey(value)
	default:
		status.Source = KeySourceConfig
		status.Masked = maskKey(value)
	}
	return status
}

// maskKey masks a secret for display, showing only first 3 and last 3 chars.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:3] + "..." + key[len(key)-3:]
}
