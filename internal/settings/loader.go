package settings

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"shellhost/pkg/logging"
)

// ParseDocument decodes a settings document. Shell names must be unique
// case-insensitively; a duplicate is a hard error so two tenant records can
// never silently merge.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parsing settings document: %w", err)
	}

	seen := make(map[string]ShellID, len(doc.Shells))
	for _, shell := range doc.Shells {
		if shell.ID == "" {
			return Document{}, fmt.Errorf("settings document contains a shell without a Name")
		}
		if prev, ok := seen[shell.ID.Key()]; ok {
			return Document{}, fmt.Errorf("duplicate shell name: %q and %q resolve to the same id", prev, shell.ID)
		}
		seen[shell.ID.Key()] = shell.ID
	}

	logging.Debug("Settings", "Parsed settings document with %d shells", len(doc.Shells))
	return doc, nil
}
