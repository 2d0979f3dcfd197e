package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumifin/reconciler/internal/models"
)

func TestValidTransition(t *testing.T) {
	tests := []struct {
		from models.AnalysisTaskStatus
		to   models.AnalysisTaskStatus
		want bool
	}{
		{models.AnalysisTaskStatusPending, models.AnalysisTaskStatusInProgress, true},
		{models.AnalysisTaskStatusPending, models.AnalysisTaskStatusDelivered, true},
		{models.AnalysisTaskStatusInProgress, models.AnalysisTaskStatusDelivered, true},
		{models.AnalysisTaskStatusInProgress, models.AnalysisTaskStatusPending, false},
		{models.AnalysisTaskStatusDelivered, models.AnalysisTaskStatusPending, false},
		{models.AnalysisTaskStatusDelivered, models.AnalysisTaskStatusInProgress, false},
		{models.AnalysisTaskStatusPending, models.AnalysisTaskStatusPending, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}
