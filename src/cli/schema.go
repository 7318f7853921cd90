package cli

import (
	"fmt"
	"os"
	"sort"

	"syndrrel/src/models"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// SchemaFile is the YAML schema accepted by the load and query commands
//
//	name: music
//	version: 1
//	stores:
//	  bands: "id, name"
//	  albums: "id, name, bandId -> bands.id"
type SchemaFile struct {
	Name    string            `yaml:"name"`
	Version int               `yaml:"version"`
	Stores  map[string]string `yaml:"stores"`
}

// ReadSchemaFile reads and validates a YAML schema file
func ReadSchemaFile(path string) (*SchemaFile, error) {
	if path == "" {
		return nil, fmt.Errorf("no schema file given, use --schema or SYNDR_SCHEMA")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}

	var schema SchemaFile
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("failed to parse schema file %s: %w", path, err)
	}
	if schema.Name == "" {
		schema.Name = "default"
	}
	if schema.Version == 0 {
		schema.Version = 1
	}
	if len(schema.Stores) == 0 {
		return nil, fmt.Errorf("schema file %s declares no stores", path)
	}
	return &schema, nil
}

// SeedData maps bundle names to the documents to add
type SeedData map[string][]models.Document

// ReadSeedFile reads a JSON object of bundle name to document array
func ReadSeedFile(path string) (SeedData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}
	var seed SeedData
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	return seed, nil
}

// Bundles returns the seeded bundle names in sorted order
func (s SeedData) Bundles() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
