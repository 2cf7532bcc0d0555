// Package schema defines the patient, reminder and preference record shapes
// shared by the local store, the sync engine and every import/export path.
//
// Records cross several trust boundaries: local-storage blobs written by old
// builds, CSV census files, and a spreadsheet-backed remote store. The
// normalizers in this package are therefore total (they never fail; missing
// or malformed fields are replaced with schema defaults) and idempotent, and
// every boundary crossing is expected to run records through them before any
// other code looks at a field.
package schema

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Patient is one roster entry. UpdatedAt is stamped on every local mutation
// and is the sole conflict-resolution signal during sync.
type Patient struct {
	ID        string `json:"id"`
	Section   Text   `json:"section"`
	Done      Flag   `json:"done"`
	UpdatedAt Text   `json:"updatedAt"`

	Bio  map[string]Text  `json:"bio"`
	HPI  HPI              `json:"hpi"`
	ESAS map[string]Score `json:"esas"`

	CTCAE CTCAE `json:"ctcae"`
	Labs  Labs  `json:"labs"`

	LatestNotes       Text `json:"latestNotes"`
	PatientAssessment Text `json:"patientAssessment"`
	MedicationList    Text `json:"medicationList"`
}

// HPI holds the four narrative history fields.
type HPI struct {
	Cause    Text `json:"cause"`
	Previous Text `json:"previous"`
	Current  Text `json:"current"`
	Initial  Text `json:"initial"`
}

// CTCAE holds the adverse-event grading block.
type CTCAE struct {
	Enabled Flag                 `json:"enabled"`
	Items   map[string]CTCAEItem `json:"items"`
}

// CTCAEItem is one graded adverse event. A nil Grade means not assessed.
type CTCAEItem struct {
	Label Text   `json:"label"`
	Grade *Grade `json:"grade"`
}

// Labs holds the three grouped lab panels plus the two free-text extras.
type Labs struct {
	Group1   map[string]LabValue `json:"group1"`
	Group2   map[string]LabValue `json:"group2"`
	Group3   map[string]LabValue `json:"group3"`
	CRPTrend Text                `json:"crpTrend"`
	Other    Text                `json:"other"`
}

// NewID returns a fresh record identifier with a readable type prefix.
func NewID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}

// BlankBio returns a bio block with every hospital header present and empty.
func BlankBio() map[string]Text {
	bio := make(map[string]Text, len(HospitalHeaders))
	for _, h := range HospitalHeaders {
		bio[h] = ""
	}
	return bio
}

// BlankESAS returns an ESAS block with every symptom unanswered.
func BlankESAS() map[string]Score {
	esas := make(map[string]Score, len(ESASFields))
	for _, f := range ESASFields {
		esas[f] = 0
	}
	return esas
}

// BlankCTCAE returns a disabled CTCAE block with all items unassessed.
func BlankCTCAE() CTCAE {
	c := CTCAE{Items: make(map[string]CTCAEItem, len(CTCAEItems))}
	for _, item := range CTCAEItems {
		c.Items[item.Key] = CTCAEItem{Label: Text(item.Label)}
	}
	return c
}

// BlankLabs returns an empty lab block with every panel key present.
func BlankLabs() Labs {
	blank := func(keys []string) map[string]LabValue {
		m := make(map[string]LabValue, len(keys))
		for _, k := range keys {
			m[k] = ""
		}
		return m
	}
	return Labs{
		Group1: blank(LabGroup1),
		Group2: blank(LabGroup2),
		Group3: blank(LabGroup3),
	}
}

// NewPatient builds a patient from a partial record: assigns an id if the
// partial has none, stamps updatedAt, and normalizes the shape. Used by the
// store factory and by imports.
func NewPatient(partial Patient) Patient {
	if partial.ID == "" {
		partial.ID = NewID("pt")
	}
	partial.UpdatedAt = NowStamp()
	return NormalizePatient(partial)
}

// NormalizePatient coerces a patient record of any origin into a complete,
// well-typed shape. It is total and idempotent; callers may apply it to
// already-normalized records freely.
func NormalizePatient(p Patient) Patient {
	if strings.TrimSpace(string(p.Section)) == "" {
		p.Section = DefaultSection
	}
	if strings.TrimSpace(string(p.UpdatedAt)) == "" {
		p.UpdatedAt = NowStamp()
	}

	p.Bio = fillText(BlankBio(), p.Bio)

	esas := BlankESAS()
	for k, v := range p.ESAS {
		if !v.Answered() {
			v = 0
		}
		esas[k] = v
	}
	p.ESAS = esas

	// Rebuild CTCAE items from the canonical set: labels are forced back to
	// the catalog and out-of-range grades drop to unassessed. Unknown item
	// keys are discarded.
	items := BlankCTCAE().Items
	for _, def := range CTCAEItems {
		cur, ok := p.CTCAE.Items[def.Key]
		if !ok || cur.Grade == nil || !cur.Grade.Valid() {
			continue
		}
		items[def.Key] = CTCAEItem{Label: Text(def.Label), Grade: GradePtr(*cur.Grade)}
	}
	p.CTCAE.Items = items

	blankLabs := BlankLabs()
	p.Labs.Group1 = fillLabs(blankLabs.Group1, p.Labs.Group1)
	p.Labs.Group2 = fillLabs(blankLabs.Group2, p.Labs.Group2)
	p.Labs.Group3 = fillLabs(blankLabs.Group3, p.Labs.Group3)

	return p
}

// fillText overlays src onto a pre-filled defaults map. Extra keys in src
// are kept, matching how stored rosters have always round-tripped unknown
// columns.
func fillText(defaults, src map[string]Text) map[string]Text {
	for k, v := range src {
		defaults[k] = v
	}
	return defaults
}

func fillLabs(defaults, src map[string]LabValue) map[string]LabValue {
	for k, v := range src {
		defaults[k] = v
	}
	return defaults
}

// LabValueFor resolves a lab display value by panel key, falling back to
// LabDefault for untouched labs and handling the two free-text extras.
func (p Patient) LabValueFor(key string) string {
	for _, group := range []map[string]LabValue{p.Labs.Group1, p.Labs.Group2, p.Labs.Group3} {
		if v, ok := group[key]; ok {
			if v == "" {
				return LabDefault
			}
			return string(v)
		}
	}
	switch key {
	case "CRP Trend":
		return string(p.Labs.CRPTrend)
	case "Other":
		return string(p.Labs.Other)
	}
	return LabDefault
}

// SearchBlob returns the lowercase concatenation of all bio fields, used by
// roster search.
func (p Patient) SearchBlob() string {
	parts := make([]string, 0, len(HospitalHeaders))
	for _, h := range HospitalHeaders {
		parts = append(parts, string(p.Bio[h]))
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// Name returns the patient display name.
func (p Patient) Name() string { return string(p.Bio["Patient Name"]) }
