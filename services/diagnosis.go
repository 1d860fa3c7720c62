package services

import (
	"math"

	"motorwatch/models"
)

// RunDiagnosis evaluates every rule in the catalog against the operator's
// answers using certainty-factor inference. It is a pure function: no
// mutation of inputs, no I/O, deterministic output (results follow catalog
// rule order).
//
// Per rule: each answered symptom contributes answerCF × expertCF; the
// contributions combine with the rule's operator (AND = minimum,
// OR = maximum). Rules with no answered symptom, or a combined factor of
// zero, do not fire.
func RunDiagnosis(answers map[int]models.Answer, catalog *Catalog) ([]models.DiagnosisResult, *models.Conclusion) {
	var results []models.DiagnosisResult

	for _, rule := range catalog.Rules {
		var evidence []float64
		for _, sid := range rule.SymptomIDs {
			answer, answered := answers[sid]
			if !answered {
				continue
			}
			answerCF, ok := answer.CertaintyFactor()
			if !ok {
				continue
			}
			symptom, _ := catalog.Symptom(sid)
			evidence = append(evidence, answerCF*symptom.ExpertCF)
		}

		if len(evidence) == 0 {
			continue
		}

		combined := combine(rule.Operator, evidence)
		if combined <= 0 {
			continue
		}

		results = append(results, models.DiagnosisResult{
			RuleID:          rule.ID,
			FaultLevel:      rule.FaultLevel,
			Damage:          rule.Damage,
			Remediation:     rule.Remediation,
			CertaintyFactor: round2(combined),
		})
	}

	return results, conclude(results)
}

func combine(op models.CombinationOperator, evidence []float64) float64 {
	combined := evidence[0]
	for _, e := range evidence[1:] {
		switch op {
		case models.OperatorAND:
			if e < combined {
				combined = e
			}
		case models.OperatorOR:
			if e > combined {
				combined = e
			}
		}
	}
	return combined
}

// conclude aggregates fired rules into one overall severity. The percent is
// the mean severity weight expressed against the maximum weight of 100.
// Returns nil when no rule fired; absence of evidence is not severity zero.
func conclude(results []models.DiagnosisResult) *models.Conclusion {
	if len(results) == 0 {
		return nil
	}

	sum := 0.0
	for _, r := range results {
		sum += r.FaultLevel.SeverityWeight()
	}
	percent := round1(sum / float64(len(results)))

	label := models.FaultSevere
	switch {
	case percent <= 40:
		label = models.FaultMinor
	case percent <= 70:
		label = models.FaultModerate
	}

	return &models.Conclusion{SeverityPercent: percent, SeverityLabel: label}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
