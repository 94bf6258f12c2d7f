package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeProfiles(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "profiles.yml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

const jaffleProfiles = `
jaffle:
  target: dev
  outputs:
    dev:
      type: postgres
      host: localhost
      user: dbt
      password: secret
      port: 5439
      dbname: analytics
      sslmode: require
    prod:
      type: redshift
      host: cluster.example.com
      user: dbt
      password: secret
      database: warehouse
`

func TestLoadConnectionInfo(t *testing.T) {
	dir := writeProfiles(t, jaffleProfiles)

	info, err := loadConnectionInfo(dir, "jaffle", "dev")
	if err != nil {
		t.Fatalf("loadConnectionInfo: %v", err)
	}
	if info.Type != "postgres" {
		t.Errorf("Type = %q, want postgres", info.Type)
	}
	if info.Host != "localhost" || info.Port != 5439 || info.DBName != "analytics" {
		t.Errorf("connection = %+v", info)
	}
	if info.SSLMode != "require" {
		t.Errorf("SSLMode = %q, want require", info.SSLMode)
	}
}

func TestLoadConnectionInfoDefaultTarget(t *testing.T) {
	dir := writeProfiles(t, jaffleProfiles)

	info, err := loadConnectionInfo(dir, "jaffle", "")
	if err != nil {
		t.Fatalf("loadConnectionInfo: %v", err)
	}
	// profile declares target: dev
	if info.Type != "postgres" {
		t.Errorf("Type = %q, want postgres from default target", info.Type)
	}
}

func TestLoadConnectionInfoSoleProfileImplied(t *testing.T) {
	dir := writeProfiles(t, jaffleProfiles)
	t.Setenv("DBT_PROFILE", "")

	info, err := loadConnectionInfo(dir, "", "prod")
	if err != nil {
		t.Fatalf("loadConnectionInfo: %v", err)
	}
	if info.Type != "redshift" {
		t.Errorf("Type = %q, want redshift", info.Type)
	}
	// database is the dbname fallback and the port defaults
	if info.DBName != "warehouse" {
		t.Errorf("DBName = %q, want warehouse", info.DBName)
	}
	if info.Port != 5432 {
		t.Errorf("Port = %d, want 5432 default", info.Port)
	}
}

func TestLoadConnectionInfoProfileFromEnv(t *testing.T) {
	dir := writeProfiles(t, jaffleProfiles+`
other:
  target: dev
  outputs:
    dev:
      type: postgres
      host: elsewhere
      dbname: other
`)
	t.Setenv("DBT_PROFILE", "other")

	info, err := loadConnectionInfo(dir, "", "")
	if err != nil {
		t.Fatalf("loadConnectionInfo: %v", err)
	}
	if info.Host != "elsewhere" {
		t.Errorf("Host = %q, want elsewhere (env-selected profile)", info.Host)
	}
}

func TestLoadConnectionInfoErrors(t *testing.T) {
	multi := jaffleProfiles + `
second:
  target: dev
  outputs:
    dev:
      type: postgres
`

	tests := []struct {
		name    string
		content string
		profile string
		target  string
		wantErr error
	}{
		{
			name:    "unknown profile",
			content: jaffleProfiles,
			profile: "nope",
			target:  "dev",
			wantErr: ErrProfileNotFound,
		},
		{
			name:    "ambiguous without explicit profile",
			content: multi,
			profile: "",
			target:  "dev",
			wantErr: ErrProfileAmbiguous,
		},
		{
			name:    "unknown target",
			content: jaffleProfiles,
			profile: "jaffle",
			target:  "staging",
			wantErr: ErrTargetNotFound,
		},
		{
			name: "no default target",
			content: `
jaffle:
  outputs:
    dev:
      type: postgres
`,
			profile: "jaffle",
			target:  "",
			wantErr: ErrNoDefaultTarget,
		},
		{
			name: "missing type",
			content: `
jaffle:
  target: dev
  outputs:
    dev:
      host: localhost
`,
			profile: "jaffle",
			target:  "dev",
			wantErr: ErrProfileTypeMissing,
		},
		{
			name: "unsupported warehouse type",
			content: `
jaffle:
  target: dev
  outputs:
    dev:
      type: snowflake
`,
			profile: "jaffle",
			target:  "dev",
			wantErr: ErrUnsupportedAdapter,
		},
		{
			name:    "empty file",
			content: "",
			profile: "jaffle",
			target:  "dev",
			wantErr: ErrProfilesInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DBT_PROFILE", "")
			dir := writeProfiles(t, tt.content)
			_, err := loadConnectionInfo(dir, tt.profile, tt.target)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("want %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadConnectionInfoFileMissing(t *testing.T) {
	_, err := loadConnectionInfo(t.TempDir(), "jaffle", "dev")
	if !errors.Is(err, ErrProfilesNotFound) {
		t.Errorf("want ErrProfilesNotFound, got %v", err)
	}
}
