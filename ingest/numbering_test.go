package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yunusmujadidi/purchase-order/models"
)

func TestFormatOrderNumber(t *testing.T) {
	assert.Equal(t, "ORD-2025-0008", FormatOrderNumber(2025, 8))
	assert.Equal(t, "ORD-2025-12345", FormatOrderNumber(2025, 12345))
}

func TestAssignOrderNumbers(t *testing.T) {
	drafts := []models.Order{{ClientName: "A"}, {ClientName: "B"}, {ClientName: "C"}}

	AssignOrderNumbers(drafts, 2025, 7+1)

	assert.Equal(t, "ORD-2025-0008", drafts[0].OrderNumber)
	assert.Equal(t, "ORD-2025-0009", drafts[1].OrderNumber)
	assert.Equal(t, "ORD-2025-0010", drafts[2].OrderNumber)
	assert.Equal(t, "C", drafts[2].ClientName)
}

func TestParseOrderSequence(t *testing.T) {
	tests := []struct {
		number string
		want   int
		wantOK bool
	}{
		{"ORD-2025-0007", 7, true},
		{"ORD-2025-10000", 10000, true},
		{"ORD-2024-0099", 0, false},
		{"ORD-2025-", 0, false},
		{"ORD-2025-00x1", 0, false},
		{"legacy-7", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseOrderSequence(tt.number, 2025)
		assert.Equal(t, tt.wantOK, ok, tt.number)
		assert.Equal(t, tt.want, got, tt.number)
	}
}
