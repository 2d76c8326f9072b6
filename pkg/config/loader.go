package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// CatalogLoader loads and validates quest/tier configuration from a JSON file.
// It performs file reading, JSON parsing, and comprehensive validation.
type CatalogLoader struct {
	catalogPath string
	validator   *Validator
	logger      *slog.Logger
}

// NewCatalogLoader creates a new CatalogLoader instance.
//
// Parameters:
//   - catalogPath: Path to the catalog.json file
//   - logger: Structured logger for operational logging
func NewCatalogLoader(catalogPath string, logger *slog.Logger) *CatalogLoader {
	return &CatalogLoader{
		catalogPath: catalogPath,
		validator:   NewValidator(),
		logger:      logger,
	}
}

// LoadCatalog loads the catalog file and returns a validated Catalog.
// This method performs three steps:
// 1. Read the catalog file from disk
// 2. Parse JSON into the Catalog struct
// 3. Validate all business rules (quests and tier table)
//
// If any step fails, returns an error and the application should exit.
// This is a "fail fast" operation - an invalid catalog prevents startup.
func (l *CatalogLoader) LoadCatalog() (*Catalog, error) {
	data, err := os.ReadFile(l.catalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var catalog Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
	}

	if err := l.validator.Validate(&catalog); err != nil {
		return nil, fmt.Errorf("catalog validation failed: %w", err)
	}

	l.logger.Info("Catalog loaded successfully",
		"quests", len(catalog.Quests),
		"tiers", len(catalog.Tiers),
		"catalog_path", l.catalogPath,
	)

	return &catalog, nil
}
