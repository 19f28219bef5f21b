package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jbcholat-Dev/Estimation-immo/internal/finance"
)

// LoadRateTable returns the built-in rate table, or the one stored at path
// when path is set.
func LoadRateTable(path string) (finance.RateTable, error) {
	if path == "" {
		return finance.DefaultRateTable(), nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return finance.RateTable{}, fmt.Errorf("failed to get absolute path: %w", err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return finance.RateTable{}, fmt.Errorf("failed to read rate table: %w", err)
	}

	var table finance.RateTable
	if err := json.Unmarshal(data, &table); err != nil {
		return finance.RateTable{}, fmt.Errorf("failed to parse rate table: %w", err)
	}
	if err := table.Validate(); err != nil {
		return finance.RateTable{}, err
	}
	return table, nil
}

// SaveRateTable writes table to path as indented JSON.
func SaveRateTable(path string, table finance.RateTable) error {
	data, err := json.MarshalIndent(table, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal rate table: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write rate table: %w", err)
	}
	return nil
}
