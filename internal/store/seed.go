package store

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/palliative-rounds/rounds/internal/schema"
)

//go:embed seed.yaml
var seedYAML []byte

type seedPatient struct {
	Section     string            `yaml:"section"`
	Bio         map[string]string `yaml:"bio"`
	HPI         map[string]string `yaml:"hpi"`
	ESAS        map[string]int    `yaml:"esas"`
	Labs        seedLabs          `yaml:"labs"`
	LatestNotes string            `yaml:"latestNotes"`
}

type seedLabs struct {
	Group1   map[string]string `yaml:"group1"`
	Group2   map[string]string `yaml:"group2"`
	Group3   map[string]string `yaml:"group3"`
	CRPTrend string            `yaml:"crpTrend"`
	Other    string            `yaml:"other"`
}

// DemoPatients builds the bundled demo roster. Used on first run so a fresh
// install has something to look at.
func DemoPatients() ([]schema.Patient, error) {
	var seeds []seedPatient
	if err := yaml.Unmarshal(seedYAML, &seeds); err != nil {
		return nil, fmt.Errorf("parse demo roster: %w", err)
	}

	out := make([]schema.Patient, 0, len(seeds))
	for _, sp := range seeds {
		p := schema.Patient{Section: schema.Text(sp.Section)}
		p.Bio = schema.BlankBio()
		for k, v := range sp.Bio {
			p.Bio[k] = schema.Text(v)
		}
		p.HPI.Cause = schema.Text(sp.HPI["cause"])
		p.HPI.Previous = schema.Text(sp.HPI["previous"])
		p.HPI.Current = schema.Text(sp.HPI["current"])
		p.HPI.Initial = schema.Text(sp.HPI["initial"])
		p.ESAS = schema.BlankESAS()
		for k, v := range sp.ESAS {
			p.ESAS[k] = schema.Score(v)
		}
		p.Labs = schema.BlankLabs()
		for k, v := range sp.Labs.Group1 {
			p.Labs.Group1[k] = schema.LabValue(v)
		}
		for k, v := range sp.Labs.Group2 {
			p.Labs.Group2[k] = schema.LabValue(v)
		}
		for k, v := range sp.Labs.Group3 {
			p.Labs.Group3[k] = schema.LabValue(v)
		}
		p.Labs.CRPTrend = schema.Text(sp.Labs.CRPTrend)
		p.Labs.Other = schema.Text(sp.Labs.Other)
		p.LatestNotes = schema.Text(sp.LatestNotes)
		out = append(out, schema.NewPatient(p))
	}
	return out, nil
}
