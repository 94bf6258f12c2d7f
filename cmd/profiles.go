package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Error definitions for dbt profile resolution
var (
	ErrProfilesNotFound   = errors.New("profiles.yml not found")
	ErrProfilesInvalid    = errors.New("profiles.yml is empty or invalid")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrProfileAmbiguous   = errors.New("multiple profiles found, provide --profile")
	ErrTargetNotFound     = errors.New("target not found in profile")
	ErrNoDefaultTarget    = errors.New("no target specified and profile has no default target")
	ErrProfileTypeMissing = errors.New("profile output has no type")
)

type profileOutput struct {
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Port     int    `yaml:"port"`
	DBName   string `yaml:"dbname"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

type dbtProfile struct {
	Target  string                   `yaml:"target"`
	Outputs map[string]profileOutput `yaml:"outputs"`
}

// loadConnectionInfo resolves warehouse connection details from dbt's
// profiles.yml. Profile selection order: explicit flag, DBT_PROFILE env var,
// else the sole profile in the file. Target selection: explicit flag, else
// the profile's default. The returned type tag selects the adapter.
func loadConnectionInfo(profilesDir, profile, target string) (ConnectionInfo, error) {
	profilesPath := filepath.Join(profilesDir, "profiles.yml")
	data, err := os.ReadFile(profilesPath)
	if err != nil {
		if os.IsNotExist(err) {
			return ConnectionInfo{}, fmt.Errorf("%w at %s", ErrProfilesNotFound, profilesPath)
		}
		return ConnectionInfo{}, fmt.Errorf("failed to read profiles.yml: %w", err)
	}

	var profiles map[string]dbtProfile
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return ConnectionInfo{}, fmt.Errorf("%w: %v", ErrProfilesInvalid, err)
	}
	if len(profiles) == 0 {
		return ConnectionInfo{}, ErrProfilesInvalid
	}

	if profile == "" {
		if env := os.Getenv("DBT_PROFILE"); env != "" {
			profile = env
		} else if len(profiles) == 1 {
			for name := range profiles {
				profile = name
			}
		} else {
			return ConnectionInfo{}, ErrProfileAmbiguous
		}
	}

	prof, ok := profiles[profile]
	if !ok {
		return ConnectionInfo{}, fmt.Errorf("%w: %s", ErrProfileNotFound, profile)
	}

	if target == "" {
		target = prof.Target
	}
	if target == "" {
		return ConnectionInfo{}, fmt.Errorf("%w: %s", ErrNoDefaultTarget, profile)
	}

	out, ok := prof.Outputs[target]
	if !ok {
		return ConnectionInfo{}, fmt.Errorf("%w: %s (profile %s)", ErrTargetNotFound, target, profile)
	}

	if out.Type == "" {
		return ConnectionInfo{}, fmt.Errorf("%w: target %s", ErrProfileTypeMissing, target)
	}
	if out.Type != "postgres" && out.Type != "redshift" {
		return ConnectionInfo{}, fmt.Errorf("%w: %s", ErrUnsupportedAdapter, out.Type)
	}

	dbname := out.DBName
	if dbname == "" {
		dbname = out.Database
	}
	port := out.Port
	if port == 0 {
		port = 5432
	}

	return ConnectionInfo{
		Type:     out.Type,
		Host:     out.Host,
		Port:     port,
		User:     out.User,
		Password: out.Password,
		DBName:   dbname,
		SSLMode:  out.SSLMode,
	}, nil
}
