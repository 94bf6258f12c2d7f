package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Error definitions for manifest resolution
var (
	ErrManifestNotFound     = errors.New("manifest.json not found")
	ErrModelNotFound        = errors.New("model not found in manifest")
	ErrRelationNameInvalid  = errors.New("could not parse relation_name")
	ErrManifestNodesMissing = errors.New("invalid manifest.json: nodes missing")
)

// manifestNode is the subset of a dbt manifest node we care about.
type manifestNode struct {
	Name         string `json:"name"`
	ResourceType string `json:"resource_type"`
	RelationName string `json:"relation_name"`
}

type manifest struct {
	Nodes map[string]manifestNode `json:"nodes"`
}

// resolveModelRelation reads target/manifest.json from a built project
// working copy and returns the physical (schema, table) where the model's
// output now lives. A missing manifest is reported distinctly from a missing
// model.
func resolveModelRelation(projectDir, model string) (schema, table string, err error) {
	manifestPath := filepath.Join(projectDir, "target", "manifest.json")
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", fmt.Errorf("%w at %s", ErrManifestNotFound, manifestPath)
		}
		return "", "", fmt.Errorf("failed to read manifest: %w", err)
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return "", "", fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.Nodes == nil {
		return "", "", ErrManifestNodesMissing
	}

	for _, node := range m.Nodes {
		if node.ResourceType == "model" && node.Name == model {
			return parseRelationName(node.RelationName)
		}
	}
	return "", "", fmt.Errorf("%w: %s", ErrModelNotFound, model)
}

var quotedIdentPattern = regexp.MustCompile(`"([^"]+)"`)

// parseRelationName extracts (schema, table) from a Postgres/Redshift-style
// relation name such as `"db"."schema"."table"` or `db.schema.table`.
func parseRelationName(relationName string) (schema, table string, err error) {
	quoted := quotedIdentPattern.FindAllStringSubmatch(relationName, -1)
	if len(quoted) >= 2 {
		return quoted[len(quoted)-2][1], quoted[len(quoted)-1][1], nil
	}

	var parts []string
	for _, p := range strings.Split(relationName, ".") {
		p = strings.Trim(strings.TrimSpace(p), `"`)
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) >= 2 {
		return parts[len(parts)-2], parts[len(parts)-1], nil
	}
	return "", "", fmt.Errorf("%w: %q", ErrRelationNameInvalid, relationName)
}
