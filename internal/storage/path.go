package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

const warehouseRoot = "warehouse"

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// TablePrefix is the directory holding every parquet part of a warehouse
// table, with a trailing slash.
func TablePrefix(tableName string) (string, error) {
	if err := validatePathComponent(tableName, "table name"); err != nil {
		return "", err
	}
	return path.Join(warehouseRoot, tableName) + "/", nil
}

func BuildPartPath(tableName string, sequence int) (string, error) {
	prefix, err := TablePrefix(tableName)
	if err != nil {
		return "", err
	}
	if sequence < 0 {
		return "", fmt.Errorf("sequence must be >= 0")
	}
	return prefix + fmt.Sprintf("part-%05d.parquet", sequence), nil
}

func IsParquet(key string) bool {
	return strings.HasSuffix(strings.ToLower(key), ".parquet")
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) || strings.Contains(value, "..") {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
