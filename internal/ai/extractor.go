// Package ai talks to the external named-entity extractor used as the first
// structuring attempt.
package ai

import (
	"context"
	"strings"
)

// EntityType is the coarse class assigned by the token classifier.
type EntityType string

const (
	EntityPerson       EntityType = "PER"
	EntityOrganization EntityType = "ORG"
	EntityMisc         EntityType = "MISC"
	EntityLocation     EntityType = "LOC"
)

// Entity is a single annotation returned by the extractor.
type Entity struct {
	Type  EntityType
	Word  string
	Score float64 // model confidence in [0, 1]
}

// Extractor annotates normalized report text with entities.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]Entity, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, text string) ([]Entity, error)

func (f ExtractorFunc) Extract(ctx context.Context, text string) ([]Entity, error) {
	return f(ctx, text)
}

// parseEntityType accepts both grouped labels ("PER") and IOB tags ("B-PER").
func parseEntityType(label string) EntityType {
	label = strings.ToUpper(strings.TrimSpace(label))
	if i := strings.IndexByte(label, '-'); i == 1 && (label[0] == 'B' || label[0] == 'I') {
		label = label[2:]
	}
	return EntityType(label)
}
