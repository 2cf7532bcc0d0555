package schema

// PatientPatch is a partial update applied to an existing patient. Top-level
// scalar fields use pointers so "absent" and "set to zero value" stay
// distinct; the nested bio/hpi/esas/labs blocks merge key by key rather than
// replacing the block wholesale.
type PatientPatch struct {
	Section *string
	Done    *bool

	Bio  map[string]Text
	HPI  map[string]Text // keys: cause, previous, current, initial
	ESAS map[string]Score

	CTCAE *CTCAEPatch
	Labs  *LabsPatch

	LatestNotes       *string
	PatientAssessment *string
	MedicationList    *string
}

// CTCAEPatch updates the adverse-event block. Setting a grade to GradeUnset
// clears that item.
type CTCAEPatch struct {
	Enabled *bool
	Grades  map[string]Grade
}

// LabsPatch merges lab values key by key within each panel.
type LabsPatch struct {
	Group1   map[string]LabValue
	Group2   map[string]LabValue
	Group3   map[string]LabValue
	CRPTrend *string
	Other    *string
}

// ApplyPatch merges patch into p and returns the normalized result. It does
// not stamp updatedAt; the store does that so merge-applied remote records
// keep their original timestamps.
func ApplyPatch(p Patient, patch PatientPatch) Patient {
	p = NormalizePatient(p) // guarantee nested maps exist

	if patch.Section != nil {
		p.Section = Text(*patch.Section)
	}
	if patch.Done != nil {
		p.Done = Flag(*patch.Done)
	}

	for k, v := range patch.Bio {
		p.Bio[k] = v
	}
	for k, v := range patch.HPI {
		switch k {
		case "cause":
			p.HPI.Cause = v
		case "previous":
			p.HPI.Previous = v
		case "current":
			p.HPI.Current = v
		case "initial":
			p.HPI.Initial = v
		}
	}
	for k, v := range patch.ESAS {
		p.ESAS[k] = v
	}

	if patch.CTCAE != nil {
		if patch.CTCAE.Enabled != nil {
			p.CTCAE.Enabled = Flag(*patch.CTCAE.Enabled)
		}
		for key, g := range patch.CTCAE.Grades {
			item, ok := p.CTCAE.Items[key]
			if !ok {
				continue
			}
			if g.Valid() {
				item.Grade = GradePtr(g)
			} else {
				item.Grade = nil
			}
			p.CTCAE.Items[key] = item
		}
	}

	if patch.Labs != nil {
		for k, v := range patch.Labs.Group1 {
			p.Labs.Group1[k] = v
		}
		for k, v := range patch.Labs.Group2 {
			p.Labs.Group2[k] = v
		}
		for k, v := range patch.Labs.Group3 {
			p.Labs.Group3[k] = v
		}
		if patch.Labs.CRPTrend != nil {
			p.Labs.CRPTrend = Text(*patch.Labs.CRPTrend)
		}
		if patch.Labs.Other != nil {
			p.Labs.Other = Text(*patch.Labs.Other)
		}
	}

	if patch.LatestNotes != nil {
		p.LatestNotes = Text(*patch.LatestNotes)
	}
	if patch.PatientAssessment != nil {
		p.PatientAssessment = Text(*patch.PatientAssessment)
	}
	if patch.MedicationList != nil {
		p.MedicationList = Text(*patch.MedicationList)
	}

	return NormalizePatient(p)
}
