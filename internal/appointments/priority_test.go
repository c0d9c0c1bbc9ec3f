package appointments

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyPriorityTiers(t *testing.T) {
	tests := []struct {
		name     string
		symptoms string
		want     Priority
	}{
		{"urgent keyword", "sudden chest pain since this morning", PriorityUrgent},
		{"urgent mixed case", "Chest Pain and fatigue", PriorityUrgent},
		{"cannot breathe", "patient says they cannot breathe", PriorityUrgent},
		{"high fever", "high fever for two days", PriorityHigh},
		{"allergic reaction", "Allergic Reaction to shellfish", PriorityHigh},
		{"dizziness", "recurring dizziness when standing", PriorityHigh},
		{"sore throat", "sore throat and runny nose", PriorityMedium},
		{"headache", "mild headache after work", PriorityMedium},
		{"routine", "annual wellness visit", PriorityLow},
		{"empty text", "", PriorityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyPriority(tt.symptoms))
		})
	}
}

func TestClassifyPriorityUrgentWinsOverLowerTiers(t *testing.T) {
	// Both a medium and an urgent keyword are present: the most severe tier
	// is checked first.
	assert.Equal(t, PriorityUrgent, ClassifyPriority("cough and chest pain"))
	assert.Equal(t, PriorityHigh, ClassifyPriority("headache with high fever"))
}

func TestClassifyPriorityDeterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		assert.Equal(t, PriorityHigh, ClassifyPriority("severe migraine"))
	}
}

func TestPriorityLabels(t *testing.T) {
	assert.Equal(t, "Urgent", PriorityUrgent.Label())
	assert.Equal(t, "High", PriorityHigh.Label())
	assert.Equal(t, "Medium", PriorityMedium.Label())
	assert.Equal(t, "Low (Routine)", PriorityLow.Label())
	assert.Equal(t, "Unknown", Priority(9).Label())
}
