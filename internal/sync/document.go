// Package sync exchanges function documents with a remote mediated
// dataset. The local store is the source of truth for usage and status;
// only the shareable fields of a function ever leave the machine.
package sync

import (
	"time"

	"github.com/Ayato-AI-for-Auto/LogicHive/internal/storage"
)

// Document is the wire form of one function. Local-only fields (status,
// call counts, last-called timestamps) are deliberately absent.
type Document struct {
	Name         string             `json:"name"`
	Code         string             `json:"code"`
	Description  string             `json:"description"`
	Tags         []string           `json:"tags,omitempty"`
	TestCases    []storage.TestCase `json:"test_cases,omitempty"`
	Dependencies []string           `json:"dependencies,omitempty"`
	QualityScore int                `json:"quality_score"`
	UpdatedAt    string             `json:"updated_at,omitempty"`
}

// DocumentFromRecord projects a stored record onto its wire form.
func DocumentFromRecord(rec *storage.FunctionRecord) *Document {
	return &Document{
		Name:         rec.Name,
		Code:         rec.Code,
		Description:  rec.Description,
		Tags:         rec.Tags,
		TestCases:    rec.TestCases,
		Dependencies: rec.Dependencies(),
		QualityScore: rec.QualityScore(50),
		UpdatedAt:    rec.UpdatedAt.Format(time.RFC3339),
	}
}

// Record converts an incoming document into a record suitable for a
// remote merge. Incoming functions start unverified regardless of their
// standing on the remote side.
func (d *Document) Record() *storage.FunctionRecord {
	meta := map[string]any{
		storage.MetaQualityScore: d.QualityScore,
		storage.MetaSyncSource:   "remote",
	}
	if len(d.Dependencies) > 0 {
		meta[storage.MetaDependencies] = d.Dependencies
	}
	return &storage.FunctionRecord{
		Name:        d.Name,
		Code:        d.Code,
		Description: d.Description,
		Tags:        d.Tags,
		TestCases:   d.TestCases,
		Metadata:    meta,
		Status:      storage.StatusPending,
	}
}
