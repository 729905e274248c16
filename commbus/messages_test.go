// Package commbus provides tests for message types.
package commbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// MESSAGE CATEGORY TESTS
// =============================================================================

// Event messages
func TestAgentStarted_Category(t *testing.T) {
	msg := &AgentStarted{}
	assert.Equal(t, "event", msg.Category())
}

func TestAgentCompleted_Category(t *testing.T) {
	msg := &AgentCompleted{}
	assert.Equal(t, "event", msg.Category())
}

func TestTourStarted_Category(t *testing.T) {
	msg := &TourStarted{}
	assert.Equal(t, "event", msg.Category())
}

func TestTourStageCompleted_Category(t *testing.T) {
	msg := &TourStageCompleted{}
	assert.Equal(t, "event", msg.Category())
}

func TestTourCompleted_Category(t *testing.T) {
	msg := &TourCompleted{}
	assert.Equal(t, "event", msg.Category())
}

func TestExportStarted_Category(t *testing.T) {
	msg := &ExportStarted{}
	assert.Equal(t, "event", msg.Category())
}

func TestExportBundled_Category(t *testing.T) {
	msg := &ExportBundled{}
	assert.Equal(t, "event", msg.Category())
}

func TestExportRefused_Category(t *testing.T) {
	msg := &ExportRefused{}
	assert.Equal(t, "event", msg.Category())
}

func TestIncidentPackStageCompleted_Category(t *testing.T) {
	msg := &IncidentPackStageCompleted{}
	assert.Equal(t, "event", msg.Category())
}

func TestCompareCompleted_Category(t *testing.T) {
	msg := &CompareCompleted{}
	assert.Equal(t, "event", msg.Category())
}

func TestInvalidateCache_Category(t *testing.T) {
	msg := &InvalidateCache{}
	assert.Equal(t, "command", msg.Category())
}

// Query messages with IsQuery()
func TestGetSettings_Category(t *testing.T) {
	msg := &GetSettings{}
	assert.Equal(t, "query", msg.Category())
	msg.IsQuery() // Call method for coverage
}

func TestHealthCheckRequest_Category(t *testing.T) {
	msg := &HealthCheckRequest{}
	assert.Equal(t, "query", msg.Category())
	msg.IsQuery()
}

func TestGetToolCatalog_Category(t *testing.T) {
	msg := &GetToolCatalog{}
	assert.Equal(t, "query", msg.Category())
	msg.IsQuery()
}

func TestGetPrompt_Category(t *testing.T) {
	msg := &GetPrompt{}
	assert.Equal(t, "query", msg.Category())
	msg.IsQuery()
}

// =============================================================================
// MESSAGE TYPE HELPER TESTS
// =============================================================================

func TestGetMessageType_KnownTypes(t *testing.T) {
	tests := []struct {
		name     string
		msg      Message
		expected string
	}{
		{"AgentStarted", &AgentStarted{}, "AgentStarted"},
		{"AgentCompleted", &AgentCompleted{}, "AgentCompleted"},
		{"TourStarted", &TourStarted{}, "TourStarted"},
		{"TourStageCompleted", &TourStageCompleted{}, "TourStageCompleted"},
		{"TourCompleted", &TourCompleted{}, "TourCompleted"},
		{"ExportStarted", &ExportStarted{}, "ExportStarted"},
		{"ExportBundled", &ExportBundled{}, "ExportBundled"},
		{"ExportRefused", &ExportRefused{}, "ExportRefused"},
		{"IncidentPackStageCompleted", &IncidentPackStageCompleted{}, "IncidentPackStageCompleted"},
		{"CompareCompleted", &CompareCompleted{}, "CompareCompleted"},
		{"HealthCheckRequest", &HealthCheckRequest{}, "HealthCheckRequest"},
		{"GetToolCatalog", &GetToolCatalog{}, "GetToolCatalog"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgType := GetMessageType(tt.msg)
			assert.Equal(t, tt.expected, msgType)
		})
	}
}

func TestGetMessageType_NilMessage(t *testing.T) {
	msgType := GetMessageType(nil)
	assert.Equal(t, "Unknown", msgType)
}
