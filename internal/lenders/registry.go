package lenders

import (
	"fmt"
	"os"

	"lending_crm_backend/internal/lenders/domain"

	"gopkg.in/yaml.v3"
)

// RegistryEntry is one lender in the YAML seed file. Codes must be unique
// after lowercasing; the file is the source of truth for which lenders
// exist, while runtime state (stats, MIS) lives in the database.
type RegistryEntry struct {
	Code             string   `yaml:"code"`
	Name             string   `yaml:"name"`
	Active           bool     `yaml:"active"`
	PincodeWhitelist []string `yaml:"pincode_whitelist"`
	PincodeBlacklist []string `yaml:"pincode_blacklist"`
}

type registryFile struct {
	Lenders []RegistryEntry `yaml:"lenders"`
}

// LoadRegistry parses and validates the lender seed file.
func LoadRegistry(path string) ([]RegistryEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lender registry %s: %w", path, err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse lender registry %s: %w", path, err)
	}
	if len(file.Lenders) == 0 {
		return nil, fmt.Errorf("lender registry %s defines no lenders", path)
	}

	seen := make(map[string]struct{}, len(file.Lenders))
	for i := range file.Lenders {
		entry := &file.Lenders[i]
		entry.Code = domain.NormalizeCode(entry.Code)
		if entry.Code == "" {
			return nil, fmt.Errorf("lender registry %s: entry %d has no code", path, i)
		}
		if entry.Name == "" {
			entry.Name = entry.Code
		}
		if _, dup := seen[entry.Code]; dup {
			return nil, fmt.Errorf("lender registry %s: duplicate code %q", path, entry.Code)
		}
		seen[entry.Code] = struct{}{}
	}
	return file.Lenders, nil
}
