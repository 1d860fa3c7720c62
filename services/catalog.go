package services

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"motorwatch/models"
)

// Catalog is the static expert knowledge base: symptoms with expert-assigned
// certainty factors and the diagnostic rules over them. It is loaded once at
// startup and never mutated, so concurrent readers need no locking.
type Catalog struct {
	Symptoms []models.Symptom `json:"symptoms" yaml:"symptoms"`
	Rules    []models.Rule    `json:"rules" yaml:"rules"`

	byID map[int]models.Symptom
}

// LoadCatalog reads and validates a catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", path, err)
	}

	return &catalog, nil
}

// Validate checks referential integrity and numeric ranges. Runs at load
// time so a malformed catalog fails the process before any diagnosis.
func (c *Catalog) Validate() error {
	if len(c.Symptoms) == 0 {
		return fmt.Errorf("catalog has no symptoms")
	}

	c.byID = make(map[int]models.Symptom, len(c.Symptoms))
	for _, s := range c.Symptoms {
		if _, dup := c.byID[s.ID]; dup {
			return fmt.Errorf("duplicate symptom id %d", s.ID)
		}
		if s.Question == "" {
			return fmt.Errorf("symptom %d has no question text", s.ID)
		}
		if s.ExpertCF < 0 || s.ExpertCF > 1 {
			return fmt.Errorf("symptom %d: expert certainty factor %.2f outside [0,1]", s.ID, s.ExpertCF)
		}
		c.byID[s.ID] = s
	}

	ruleIDs := make(map[int]bool, len(c.Rules))
	for _, r := range c.Rules {
		if ruleIDs[r.ID] {
			return fmt.Errorf("duplicate rule id %d", r.ID)
		}
		ruleIDs[r.ID] = true

		if len(r.SymptomIDs) == 0 {
			return fmt.Errorf("rule %d references no symptoms", r.ID)
		}
		for _, sid := range r.SymptomIDs {
			if _, ok := c.byID[sid]; !ok {
				return fmt.Errorf("rule %d references unknown symptom id %d", r.ID, sid)
			}
		}
		if r.Operator != models.OperatorAND && r.Operator != models.OperatorOR {
			return fmt.Errorf("rule %d: unknown combination operator %q", r.ID, r.Operator)
		}
		switch r.FaultLevel {
		case models.FaultMinor, models.FaultModerate, models.FaultSevere:
		default:
			return fmt.Errorf("rule %d: unknown fault level %q", r.ID, r.FaultLevel)
		}
	}

	return nil
}

// Symptom looks up a symptom by id.
func (c *Catalog) Symptom(id int) (models.Symptom, bool) {
	s, ok := c.byID[id]
	return s, ok
}

// DefaultCatalog returns the built-in motor fault knowledge base.
func DefaultCatalog() *Catalog {
	catalog := &Catalog{
		Symptoms: []models.Symptom{
			{ID: 1, Question: "Is the motor louder than usual or making grinding noises?", ExpertCF: 0.8},
			{ID: 2, Question: "Does the motor casing feel hotter than normal?", ExpertCF: 0.7},
			{ID: 3, Question: "Is there noticeable vibration at the mounting or casing?", ExpertCF: 0.9},
			{ID: 4, Question: "Is there a burning smell near the motor?", ExpertCF: 0.85},
			{ID: 5, Question: "Does the motor struggle to start or stall under load?", ExpertCF: 0.75},
			{ID: 6, Question: "Does the breaker or overload relay trip while the motor runs?", ExpertCF: 0.8},
			{ID: 7, Question: "Is there visible dust buildup on the cooling vents?", ExpertCF: 0.6},
			{ID: 8, Question: "Does the vibration get worse at higher speeds?", ExpertCF: 0.7},
		},
		Rules: []models.Rule{
			{
				ID: 1, SymptomIDs: []int{1, 3}, Operator: models.OperatorAND, FaultLevel: models.FaultModerate,
				Damage:      "Worn or pitted bearings",
				Remediation: "Regrease or replace the bearings and check shaft alignment.",
			},
			{
				ID: 2, SymptomIDs: []int{3, 8}, Operator: models.OperatorAND, FaultLevel: models.FaultMinor,
				Damage:      "Rotor imbalance or shaft misalignment",
				Remediation: "Rebalance the rotor and realign the coupling.",
			},
			{
				ID: 3, SymptomIDs: []int{2, 4, 6}, Operator: models.OperatorAND, FaultLevel: models.FaultSevere,
				Damage:      "Winding insulation breakdown",
				Remediation: "Stop the motor, megger-test the windings, and rewind if insulation resistance is low.",
			},
			{
				ID: 4, SymptomIDs: []int{2, 5}, Operator: models.OperatorAND, FaultLevel: models.FaultModerate,
				Damage:      "Sustained overload heating the windings",
				Remediation: "Reduce the load or resize the motor, and verify supply voltage balance.",
			},
			{
				ID: 5, SymptomIDs: []int{2, 7}, Operator: models.OperatorAND, FaultLevel: models.FaultMinor,
				Damage:      "Blocked ventilation raising operating temperature",
				Remediation: "Clean the vents and fan cowl and improve enclosure airflow.",
			},
			{
				ID: 6, SymptomIDs: []int{4, 6}, Operator: models.OperatorOR, FaultLevel: models.FaultSevere,
				Damage:      "Developing electrical fault in the stator circuit",
				Remediation: "Isolate the motor immediately and inspect the terminal box and windings.",
			},
		},
	}

	if err := catalog.Validate(); err != nil {
		panic("invalid built-in catalog: " + err.Error())
	}
	return catalog
}
