package schema

// StorageNamespace versions the durable key-value namespace. Bump only with a
// migration path for existing rosters.
const StorageNamespace = "palliative_rounds_v1"

// DefaultSection is the ward tab a patient lands in when none is given.
const DefaultSection = "A"

// Sections are the ward tabs the roster is partitioned into.
var Sections = []string{"A", "B", "C"}

// HospitalHeaders is the exact CSV header row produced by the hospital
// census export. Keys in Patient.Bio use these labels verbatim; do not
// rename them.
var HospitalHeaders = []string{
	"Patient Code",
	"Patient Name",
	"Patient Age",
	"Room",
	"Admitting Provider",
	"Cause Of Admission",
	"Diet",
	"Isolation",
	"Comments",
}

// ESASFields lists the Edmonton Symptom Assessment System symptoms, each
// scored 1-10 by the patient (unanswered when absent).
var ESASFields = []string{
	"Pain",
	"Tiredness",
	"Drowsiness",
	"Nausea",
	"Lack of Appetite",
	"Shortness of Breath",
	"Depression",
	"Anxiety",
	"Wellbeing",
}

// CTCAEItem pairs a stable item key with its display label.
type CTCAEItemDef struct {
	Key   string
	Label string
}

// CTCAEItems are the adverse-event items tracked per patient, graded 0-4
// (grade 0 means none; unset means not assessed).
var CTCAEItems = []CTCAEItemDef{
	{Key: "diarrhea", Label: "Diarrhea"},
	{Key: "constipation", Label: "Constipation"},
	{Key: "mucositis", Label: "Mucositis / Stomatitis"},
	{Key: "peripheral_neuropathy", Label: "Peripheral Neuropathy"},
	{Key: "sleep_disturbance", Label: "Sleep Disturbance"},
	{Key: "xerostomia", Label: "Xerostomia"},
	{Key: "dysphagia", Label: "Dysphagia"},
	{Key: "odynophagia", Label: "Odynophagia"},
}

// Lab panels, grouped the way the rounding sheet lays them out.
var (
	LabGroup1 = []string{"WBC", "HGB", "PLT", "ANC", "CRP", "Albumin"}
	LabGroup2 = []string{
		"Sodium (Na)",
		"Potassium (K)",
		"Chloride (Cl)",
		"Calcium (Ca)",
		"Phosphorus (Ph)",
		"Alkaline Phosphatase (ALP)",
	}
	LabGroup3 = []string{"Creatinine (Scr)", "BUN", "Total Bile", "Other"}
)

// RefRanges holds typical adult reference ranges, shown as hints next to lab
// entries. Values vary by lab; these are informational only.
var RefRanges = map[string]string{
	"WBC":     "4.0-11.0 x10^9/L",
	"HGB":     "M: 13.5-17.5 g/dL, F: 12.0-16.0 g/dL",
	"PLT":     "150-400 x10^9/L",
	"ANC":     "1.5-8.0 x10^9/L",
	"CRP":     "< 5 mg/L",
	"Albumin": "3.5-5.0 g/dL",

	"Sodium (Na)":                "135-145 mmol/L",
	"Potassium (K)":              "3.5-5.0 mmol/L",
	"Chloride (Cl)":              "98-107 mmol/L",
	"Calcium (Ca)":               "8.5-10.5 mg/dL",
	"Phosphorus (Ph)":            "2.5-4.5 mg/dL",
	"Alkaline Phosphatase (ALP)": "44-147 U/L",

	"Creatinine (Scr)": "0.6-1.3 mg/dL",
	"BUN":              "7-20 mg/dL",
	"Total Bile":       "0.3-1.2 mg/dL (total bilirubin)",
	"Other":            "Custom",
}

// LabDefault is displayed for labs that were never filled in.
const LabDefault = "Normal Result"
