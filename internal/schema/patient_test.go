package schema

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizePatientFillsShape(t *testing.T) {
	p := NormalizePatient(Patient{ID: "pt-1"})

	if p.Section != DefaultSection {
		t.Errorf("Section = %q, want %q", p.Section, DefaultSection)
	}
	if p.UpdatedAt == "" {
		t.Error("UpdatedAt not stamped")
	}
	for _, h := range HospitalHeaders {
		if _, ok := p.Bio[h]; !ok {
			t.Errorf("Bio missing header %q", h)
		}
	}
	for _, f := range ESASFields {
		if _, ok := p.ESAS[f]; !ok {
			t.Errorf("ESAS missing field %q", f)
		}
	}
	if len(p.CTCAE.Items) != len(CTCAEItems) {
		t.Errorf("CTCAE items = %d, want %d", len(p.CTCAE.Items), len(CTCAEItems))
	}
	for _, k := range LabGroup1 {
		if _, ok := p.Labs.Group1[k]; !ok {
			t.Errorf("Labs.Group1 missing %q", k)
		}
	}
}

func TestNormalizePatientIdempotent(t *testing.T) {
	raw := Patient{
		ID:      "pt-2",
		Section: "B",
		Bio:     map[string]Text{"Patient Name": "Carter", "Ward Phone": "x123"},
		ESAS:    map[string]Score{"Pain": 7, "Nausea": 99},
		CTCAE: CTCAE{
			Enabled: true,
			Items: map[string]CTCAEItem{
				"diarrhea": {Label: "wrong label", Grade: GradePtr(2)},
				"bogus":    {Grade: GradePtr(1)},
			},
		},
	}

	once := NormalizePatient(raw)
	twice := NormalizePatient(once)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("normalize not idempotent (-once +twice):\n%s", diff)
	}

	// Out-of-range score resets to unanswered, canonical labels win,
	// unknown CTCAE keys are dropped, extra bio keys survive.
	if once.ESAS["Nausea"] != 0 {
		t.Errorf("ESAS[Nausea] = %d, want 0", once.ESAS["Nausea"])
	}
	if got := once.CTCAE.Items["diarrhea"].Label; got != "Diarrhea" {
		t.Errorf("label = %q, want Diarrhea", got)
	}
	if _, ok := once.CTCAE.Items["bogus"]; ok {
		t.Error("unknown CTCAE item kept")
	}
	if once.Bio["Ward Phone"] != "x123" {
		t.Error("extra bio key dropped")
	}
}

func TestNormalizePatientFromLooseJSON(t *testing.T) {
	// Shapes seen in the wild: booleans as strings, numbers as strings,
	// ages as numbers, null labs.
	raw := `{
		"id": "pt-3",
		"done": "Yes",
		"section": 2,
		"bio": {"Patient Name": "Lopez", "Patient Age": 58},
		"esas": {"Pain": "7", "Tiredness": null},
		"ctcae": {"enabled": 1, "items": {"xerostomia": {"grade": "3"}}},
		"labs": {"group1": {"WBC": 10.2, "CRP": null}}
	}`

	var p Patient
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	p = NormalizePatient(p)

	if !bool(p.Done) {
		t.Error(`done "Yes" should coerce to true`)
	}
	if p.Section != "2" {
		t.Errorf("section = %q, want 2", p.Section)
	}
	if p.Bio["Patient Age"] != "58" {
		t.Errorf("age = %q, want 58", p.Bio["Patient Age"])
	}
	if p.ESAS["Pain"] != 7 {
		t.Errorf("Pain = %d, want 7", p.ESAS["Pain"])
	}
	if p.ESAS["Tiredness"] != 0 {
		t.Errorf("Tiredness = %d, want 0 (unanswered)", p.ESAS["Tiredness"])
	}
	if !bool(p.CTCAE.Enabled) {
		t.Error("ctcae enabled 1 should coerce to true")
	}
	if g := p.CTCAE.Items["xerostomia"].Grade; g == nil || *g != 3 {
		t.Errorf("xerostomia grade = %v, want 3", g)
	}
	if p.Labs.Group1["WBC"] != "10.2" {
		t.Errorf("WBC = %q, want 10.2", p.Labs.Group1["WBC"])
	}
	if p.Labs.Group1["CRP"] != "" {
		t.Errorf("CRP = %q, want empty", p.Labs.Group1["CRP"])
	}
}

func TestCoerceBool(t *testing.T) {
	tests := []struct {
		in   any
		want bool
	}{
		{true, true},
		{false, false},
		{"true", true},
		{"TRUE", true},
		{"yes", true},
		{"1", true},
		{float64(1), true},
		{float64(0), false},
		{"no", false},
		{"", false},
		{nil, false},
		{[]any{}, false},
	}
	for _, tt := range tests {
		if got := CoerceBool(tt.in); got != tt.want {
			t.Errorf("CoerceBool(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestScoreRoundTrip(t *testing.T) {
	data, err := json.Marshal(map[string]Score{"Pain": 0, "Nausea": 4})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"Nausea":4,"Pain":null}`
	if string(data) != want {
		t.Errorf("marshal = %s, want %s", data, want)
	}
}

func TestApplyPatchDeepMerges(t *testing.T) {
	p := NewPatient(Patient{Bio: map[string]Text{"Patient Name": "Carter", "Room": "A12"}})
	p.ESAS["Pain"] = 5

	done := true
	notes := "slept better"
	merged := ApplyPatch(p, PatientPatch{
		Done:        &done,
		Bio:         map[string]Text{"Room": "A14"},
		HPI:         map[string]Text{"cause": "dyspnea"},
		ESAS:        map[string]Score{"Nausea": 3},
		CTCAE:       &CTCAEPatch{Grades: map[string]Grade{"diarrhea": 2}},
		Labs:        &LabsPatch{Group1: map[string]LabValue{"WBC": "10.2"}},
		LatestNotes: &notes,
	})

	if !bool(merged.Done) {
		t.Error("done not applied")
	}
	if merged.Bio["Room"] != "A14" {
		t.Errorf("Room = %q, want A14", merged.Bio["Room"])
	}
	if merged.Bio["Patient Name"] != "Carter" {
		t.Error("unpatched bio key lost")
	}
	if merged.HPI.Cause != "dyspnea" {
		t.Errorf("HPI.Cause = %q", merged.HPI.Cause)
	}
	if merged.ESAS["Pain"] != 5 || merged.ESAS["Nausea"] != 3 {
		t.Error("ESAS merge wrong")
	}
	if g := merged.CTCAE.Items["diarrhea"].Grade; g == nil || *g != 2 {
		t.Errorf("diarrhea grade = %v, want 2", g)
	}
	if merged.Labs.Group1["WBC"] != "10.2" {
		t.Error("lab value not merged")
	}
	if merged.LatestNotes != "slept better" {
		t.Error("latestNotes not applied")
	}
}

func TestApplyPatchClearsGrade(t *testing.T) {
	p := NewPatient(Patient{})
	p = ApplyPatch(p, PatientPatch{CTCAE: &CTCAEPatch{Grades: map[string]Grade{"dysphagia": 1}}})
	p = ApplyPatch(p, PatientPatch{CTCAE: &CTCAEPatch{Grades: map[string]Grade{"dysphagia": GradeUnset}}})
	if p.CTCAE.Items["dysphagia"].Grade != nil {
		t.Error("grade not cleared")
	}
}

func TestLabValueFor(t *testing.T) {
	p := NewPatient(Patient{})
	p.Labs.Group2["Sodium (Na)"] = "139"
	p.Labs.CRPTrend = "38->32->24"

	tests := []struct {
		key  string
		want string
	}{
		{"Sodium (Na)", "139"},
		{"WBC", LabDefault},
		{"CRP Trend", "38->32->24"},
		{"No Such Lab", LabDefault},
	}
	for _, tt := range tests {
		if got := p.LabValueFor(tt.key); got != tt.want {
			t.Errorf("LabValueFor(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestParseStamp(t *testing.T) {
	tests := []struct {
		in   Text
		zero bool
	}{
		{"2024-01-01 10:00", false},
		{"2024-01-01T10:00", false},
		{"2024-01-01T10:00:00Z", false},
		{"", true},
		{"not a time", true},
	}
	for _, tt := range tests {
		got := ParseStamp(tt.in)
		if got.IsZero() != tt.zero {
			t.Errorf("ParseStamp(%q).IsZero() = %v, want %v", tt.in, got.IsZero(), tt.zero)
		}
	}

	if !StampAfter("2024-01-01 11:00", "2024-01-01 10:00") {
		t.Error("11:00 should be after 10:00")
	}
	if StampAfter("2024-01-01 10:00", "2024-01-01 10:00") {
		t.Error("equal stamps are not strictly newer")
	}
	if StampAfter("garbage", "2024-01-01 10:00") {
		t.Error("unparseable stamp should never win")
	}
}

func TestStateClone(t *testing.T) {
	s := EmptyState()
	s.Patients = append(s.Patients, NewPatient(Patient{Bio: map[string]Text{"Patient Name": "Carter"}}))

	clone := s.Clone()
	clone.Patients[0].Bio["Patient Name"] = "changed"
	if s.Patients[0].Bio["Patient Name"] != "Carter" {
		t.Error("clone shares bio map with original")
	}
}
