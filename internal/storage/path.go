package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

const manifestFileName = "manifest.json"

// BuildTablePath returns the object key of one table of a dataset snapshot.
// prefix may hold several slash-separated components.
func BuildTablePath(prefix, tableName string) (string, error) {
	components, err := splitPrefix(prefix)
	if err != nil {
		return "", err
	}
	if err := validatePathComponent(tableName, "table name"); err != nil {
		return "", err
	}
	return path.Join(append(components, tableName+".parquet")...), nil
}

func BuildManifestPath(prefix string) (string, error) {
	components, err := splitPrefix(prefix)
	if err != nil {
		return "", err
	}
	return path.Join(append(components, manifestFileName)...), nil
}

func splitPrefix(prefix string) ([]string, error) {
	trimmed := strings.Trim(prefix, "/")
	if trimmed == "" {
		return nil, fmt.Errorf("snapshot prefix is required")
	}
	components := strings.Split(trimmed, "/")
	for _, component := range components {
		if err := validatePathComponent(component, "prefix component"); err != nil {
			return nil, err
		}
	}
	return components, nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
