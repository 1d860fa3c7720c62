package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motorwatch/models"
)

func testCatalog(t *testing.T, rules ...models.Rule) *Catalog {
	t.Helper()
	catalog := &Catalog{
		Symptoms: []models.Symptom{
			{ID: 1, Question: "Is it noisy?", ExpertCF: 0.8},
			{ID: 2, Question: "Is it hot?", ExpertCF: 0.6},
			{ID: 3, Question: "Does it vibrate?", ExpertCF: 1.0},
		},
		Rules: rules,
	}
	require.NoError(t, catalog.Validate())
	return catalog
}

func TestRunDiagnosisANDTakesMinimum(t *testing.T) {
	catalog := testCatalog(t, models.Rule{
		ID: 1, SymptomIDs: []int{1, 3}, Operator: models.OperatorAND, FaultLevel: models.FaultModerate,
	})

	results, _ := RunDiagnosis(map[int]models.Answer{
		1: models.AnswerSometimes, // 0.5 * 0.8 = 0.4
		3: models.AnswerYes,       // 1.0 * 1.0 = 1.0
	}, catalog)

	require.Len(t, results, 1)
	assert.Equal(t, 0.4, results[0].CertaintyFactor)
}

func TestRunDiagnosisORTakesMaximum(t *testing.T) {
	catalog := testCatalog(t, models.Rule{
		ID: 1, SymptomIDs: []int{2, 3}, Operator: models.OperatorOR, FaultLevel: models.FaultSevere,
	})

	results, _ := RunDiagnosis(map[int]models.Answer{
		2: models.AnswerNo,  // 0.0
		3: models.AnswerYes, // 1.0
	}, catalog)

	require.Len(t, results, 1)
	assert.Equal(t, 1.0, results[0].CertaintyFactor)
}

func TestRunDiagnosisANDWithNoAnswerYieldsZero(t *testing.T) {
	catalog := testCatalog(t, models.Rule{
		ID: 1, SymptomIDs: []int{2, 3}, Operator: models.OperatorAND, FaultLevel: models.FaultSevere,
	})

	// AND over {0.0, 1.0} combines to zero, so the rule must not fire.
	results, conclusion := RunDiagnosis(map[int]models.Answer{
		2: models.AnswerNo,
		3: models.AnswerYes,
	}, catalog)

	assert.Empty(t, results)
	assert.Nil(t, conclusion)
}

func TestRunDiagnosisSkipsUnansweredSymptoms(t *testing.T) {
	catalog := testCatalog(t, models.Rule{
		ID: 1, SymptomIDs: []int{1, 3}, Operator: models.OperatorAND, FaultLevel: models.FaultMinor,
	})

	// Symptom 1 is unanswered; the rule fires on the remaining evidence.
	results, _ := RunDiagnosis(map[int]models.Answer{3: models.AnswerYes}, catalog)

	require.Len(t, results, 1)
	assert.Equal(t, 1.0, results[0].CertaintyFactor)
}

func TestRunDiagnosisEmptyAnswers(t *testing.T) {
	results, conclusion := RunDiagnosis(map[int]models.Answer{}, DefaultCatalog())

	assert.Empty(t, results)
	assert.Nil(t, conclusion)
}

func TestRunDiagnosisRoundsCertaintyToTwoDecimals(t *testing.T) {
	catalog := &Catalog{
		Symptoms: []models.Symptom{
			{ID: 1, Question: "Is there a burning smell?", ExpertCF: 0.85},
		},
		Rules: []models.Rule{
			{ID: 1, SymptomIDs: []int{1}, Operator: models.OperatorAND, FaultLevel: models.FaultSevere},
		},
	}
	require.NoError(t, catalog.Validate())

	// 0.5 * 0.85 = 0.425, rounds to 0.43.
	results, _ := RunDiagnosis(map[int]models.Answer{1: models.AnswerSometimes}, catalog)

	require.Len(t, results, 1)
	assert.Equal(t, 0.43, results[0].CertaintyFactor)
}

func TestRunDiagnosisConclusionAveragesSeverity(t *testing.T) {
	catalog := testCatalog(t,
		models.Rule{ID: 1, SymptomIDs: []int{1}, Operator: models.OperatorAND, FaultLevel: models.FaultMinor},
		models.Rule{ID: 2, SymptomIDs: []int{3}, Operator: models.OperatorAND, FaultLevel: models.FaultSevere},
	)

	results, conclusion := RunDiagnosis(map[int]models.Answer{
		1: models.AnswerYes,
		3: models.AnswerYes,
	}, catalog)

	require.Len(t, results, 2)
	require.NotNil(t, conclusion)
	// (40 + 100) / 2 = 70, which is still Moderate.
	assert.Equal(t, 70.0, conclusion.SeverityPercent)
	assert.Equal(t, models.FaultModerate, conclusion.SeverityLabel)
}

func TestRunDiagnosisConclusionBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		levels []models.FaultLevel
		want   float64
		label  models.FaultLevel
	}{
		{"single minor", []models.FaultLevel{models.FaultMinor}, 40.0, models.FaultMinor},
		{"single moderate", []models.FaultLevel{models.FaultModerate}, 70.0, models.FaultModerate},
		{"single severe", []models.FaultLevel{models.FaultSevere}, 100.0, models.FaultSevere},
		{"minor pair", []models.FaultLevel{models.FaultMinor, models.FaultMinor}, 40.0, models.FaultMinor},
		{"moderate and severe", []models.FaultLevel{models.FaultModerate, models.FaultSevere}, 85.0, models.FaultSevere},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			symptoms := make([]models.Symptom, len(tt.levels))
			rules := make([]models.Rule, len(tt.levels))
			answers := make(map[int]models.Answer, len(tt.levels))
			for i, level := range tt.levels {
				id := i + 1
				symptoms[i] = models.Symptom{ID: id, Question: "q", ExpertCF: 1.0}
				rules[i] = models.Rule{ID: id, SymptomIDs: []int{id}, Operator: models.OperatorAND, FaultLevel: level}
				answers[id] = models.AnswerYes
			}
			catalog := &Catalog{Symptoms: symptoms, Rules: rules}
			require.NoError(t, catalog.Validate())

			_, conclusion := RunDiagnosis(answers, catalog)
			require.NotNil(t, conclusion)
			assert.Equal(t, tt.want, conclusion.SeverityPercent)
			assert.Equal(t, tt.label, conclusion.SeverityLabel)
		})
	}
}

func TestRunDiagnosisDefaultCatalogScenario(t *testing.T) {
	// Noise plus vibration points at the bearings; vibration alone also
	// satisfies the imbalance rule through its single answered symptom.
	results, conclusion := RunDiagnosis(map[int]models.Answer{
		1: models.AnswerYes,
		3: models.AnswerYes,
	}, DefaultCatalog())

	require.Len(t, results, 2)

	assert.Equal(t, 1, results[0].RuleID)
	assert.Equal(t, models.FaultModerate, results[0].FaultLevel)
	assert.Equal(t, 0.8, results[0].CertaintyFactor)

	assert.Equal(t, 2, results[1].RuleID)
	assert.Equal(t, models.FaultMinor, results[1].FaultLevel)
	assert.Equal(t, 0.9, results[1].CertaintyFactor)

	require.NotNil(t, conclusion)
	assert.Equal(t, 55.0, conclusion.SeverityPercent)
	assert.Equal(t, models.FaultModerate, conclusion.SeverityLabel)
}

func TestAnswerCertaintyFactor(t *testing.T) {
	cf, ok := models.AnswerNo.CertaintyFactor()
	assert.True(t, ok)
	assert.Equal(t, 0.0, cf)

	cf, ok = models.AnswerSometimes.CertaintyFactor()
	assert.True(t, ok)
	assert.Equal(t, 0.5, cf)

	cf, ok = models.AnswerYes.CertaintyFactor()
	assert.True(t, ok)
	assert.Equal(t, 1.0, cf)

	_, ok = models.Answer("Maybe").CertaintyFactor()
	assert.False(t, ok)
}
