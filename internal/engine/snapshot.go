package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/akyuz/termflow/internal/app/models"
)

// Fingerprint returns a stable SHA-256 over the snapshot content. Identical
// snapshots always hash identically regardless of input slice order, which
// makes the hash usable as an idempotence cache key: the engine guarantees
// identical results for identical fingerprints.
func (s *Snapshot) Fingerprint() string {
	catalog := make([]*models.Course, len(s.Catalog))
	copy(catalog, s.Catalog)
	sort.Slice(catalog, func(i, j int) bool { return catalog[i].ID < catalog[j].ID })

	students := make([]*models.StudentRecord, len(s.Students))
	copy(students, s.Students)
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })

	sections := make([]*models.ClassSection, len(s.Sections))
	copy(sections, s.Sections)
	sort.Slice(sections, func(i, j int) bool { return sections[i].ID < sections[j].ID })

	existing := make([]models.CohortAssignment, len(s.Existing))
	copy(existing, s.Existing)
	sort.Slice(existing, func(i, j int) bool {
		if existing[i].StudentID != existing[j].StudentID {
			return existing[i].StudentID < existing[j].StudentID
		}
		return existing[i].SectionID < existing[j].SectionID
	})

	h := sha256.New()
	enc := json.NewEncoder(h)

	// Encoding errors cannot happen for these plain struct types
	_ = enc.Encode(s.Term)
	_ = enc.Encode(catalog)
	_ = enc.Encode(students)
	_ = enc.Encode(sections)
	_ = enc.Encode(existing)

	return hex.EncodeToString(h.Sum(nil))
}
