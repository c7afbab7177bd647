package rules

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fintally/tally/internal/model"
)

// collectionFile is the on-disk JSON layout for shared rule
// collections.
type collectionFile struct {
	Name    string       `json:"name"`
	Rules   []model.Rule `json:"rules"`
	Version int          `json:"version"`
	Enabled bool         `json:"enabled"`
}

const collectionFileVersion = 1

// ExportCollection writes a collection as indented JSON so users can
// share rule sets between machines.
func ExportCollection(w io.Writer, collection model.RuleCollection) error {
	file := collectionFile{
		Version: collectionFileVersion,
		Name:    collection.Name,
		Enabled: collection.Enabled,
		Rules:   collection.Rules,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(file); err != nil {
		return fmt.Errorf("failed to encode rule collection: %w", err)
	}
	return nil
}

// ImportCollection reads an exported collection and re-validates every
// rule; a file with any invalid rule is rejected whole.
func ImportCollection(r io.Reader) (*model.RuleCollection, error) {
	var file collectionFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode rule collection: %w", err)
	}

	if file.Version != collectionFileVersion {
		return nil, fmt.Errorf("unsupported rule collection file version %d", file.Version)
	}

	collection := model.RuleCollection{
		Name:    file.Name,
		Enabled: file.Enabled,
		Rules:   file.Rules,
	}

	if err := collection.Validate(); err != nil {
		return nil, err
	}
	for i, rule := range collection.Rules {
		if err := ValidateRule(rule); err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, rule.Name, err)
		}
	}

	return &collection, nil
}
