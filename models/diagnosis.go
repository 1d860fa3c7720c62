package models

// Answer is a qualitative symptom observation from the operator.
type Answer string

const (
	AnswerNo        Answer = "No"
	AnswerSometimes Answer = "Sometimes"
	AnswerYes       Answer = "Yes"
)

// Fuzzy answer-to-certainty mapping. These values drive every diagnosis
// outcome, so they live here as the single source of truth.
const (
	certaintyNo        = 0.0
	certaintySometimes = 0.5
	certaintyYes       = 1.0
)

// CertaintyFactor converts the qualitative answer to its numeric certainty
// factor. The second return is false for unrecognized answers.
func (a Answer) CertaintyFactor() (float64, bool) {
	switch a {
	case AnswerNo:
		return certaintyNo, true
	case AnswerSometimes:
		return certaintySometimes, true
	case AnswerYes:
		return certaintyYes, true
	default:
		return 0, false
	}
}

// CombinationOperator selects how per-symptom evidence is combined for a rule.
type CombinationOperator string

const (
	OperatorAND CombinationOperator = "AND" // minimum of evidence
	OperatorOR  CombinationOperator = "OR"  // maximum of evidence
)

// FaultLevel is the qualitative severity bucket of a rule or conclusion.
type FaultLevel string

const (
	FaultMinor    FaultLevel = "Minor"
	FaultModerate FaultLevel = "Moderate"
	FaultSevere   FaultLevel = "Severe"
)

// SeverityWeight maps a fault level to its weight in conclusion aggregation.
func (f FaultLevel) SeverityWeight() float64 {
	switch f {
	case FaultMinor:
		return 40
	case FaultModerate:
		return 70
	case FaultSevere:
		return 100
	default:
		return 0
	}
}

// Symptom is one expert-catalogued observable condition.
type Symptom struct {
	ID       int     `json:"id" yaml:"id"`
	Question string  `json:"question" yaml:"question"`
	ExpertCF float64 `json:"expertCertaintyFactor" yaml:"expert_cf"`
}

// Rule is one diagnostic rule referencing a subset of symptoms.
type Rule struct {
	ID          int                 `json:"id" yaml:"id"`
	SymptomIDs  []int               `json:"requiredSymptomIds" yaml:"symptom_ids"`
	Operator    CombinationOperator `json:"combinationOperator" yaml:"operator"`
	FaultLevel  FaultLevel          `json:"faultLevel" yaml:"fault_level"`
	Damage      string              `json:"damageDescription" yaml:"damage"`
	Remediation string              `json:"remediationText" yaml:"remediation"`
}

// DiagnosisResult is one fired rule with its combined certainty factor,
// rounded to two decimals.
type DiagnosisResult struct {
	RuleID          int        `json:"ruleId"`
	FaultLevel      FaultLevel `json:"faultLevel"`
	Damage          string     `json:"damageDescription"`
	Remediation     string     `json:"remediationText"`
	CertaintyFactor float64    `json:"ruleCertaintyFactor"`
}

// Conclusion is the overall severity judgment across all fired rules.
type Conclusion struct {
	SeverityPercent float64    `json:"severityPercent"`
	SeverityLabel   FaultLevel `json:"severityLabel"`
}
