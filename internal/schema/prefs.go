package schema

// Prefs is a flat string-keyed preference record, used for both the settings
// and ui-prefs collections. Settings and ui records are never deleted, only
// replaced field by field.
type Prefs map[string]Text

// Well-known preference keys.
const (
	PrefTheme            = "theme"
	PrefFontSize         = "fontSize"
	PrefCurrentSection   = "currentSection"
	PrefCurrentPatientID = "currentPatientId"
	PrefSearch           = "search"
)

// DefaultSettings returns the settings record for a fresh install.
func DefaultSettings() Prefs {
	return Prefs{
		PrefTheme:    "auto",
		PrefFontSize: "base",
	}
}

// DefaultUI returns the ui-prefs record for a fresh install.
func DefaultUI() Prefs {
	return Prefs{
		PrefCurrentSection:   DefaultSection,
		PrefCurrentPatientID: "",
		PrefSearch:           "",
	}
}

// NormalizePrefs overlays src onto the given defaults. Unknown keys in src
// are kept.
func NormalizePrefs(defaults, src Prefs) Prefs {
	for k, v := range src {
		defaults[k] = v
	}
	return defaults
}

// Clone returns an independent copy of the preference record.
func (p Prefs) Clone() Prefs {
	out := make(Prefs, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
