package importer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vifei-systems/vifei/internal/event"
	"github.com/vifei-systems/vifei/internal/importer"
)

func TestParseOpenAIResponsesMapsLifecycleAndToolCalls(t *testing.T) {
	input := `{"type":"response.created","response_id":"r1","model":"gpt-5","timestamp_ns":1}
{"type":"response.output_item","response_id":"r1","timestamp_ns":2,"item":{"type":"function_call","name":"bash","arguments":"ls"}}
{"type":"response.completed","response_id":"r1","timestamp_ns":3,"status":"completed"}
`
	events := importer.ParseOpenAIResponses(strings.NewReader(input))
	require.Len(t, events, 3)
	assert.Equal(t, "r1", events[0].RunID)
	_, ok := events[0].Payload.(event.RunStart)
	assert.True(t, ok)
	toolCall, ok := events[1].Payload.(event.ToolCall)
	require.True(t, ok)
	assert.Equal(t, "bash", toolCall.Tool)
	_, ok = events[2].Payload.(event.RunEnd)
	assert.True(t, ok)
}

func TestParseOpenAIResponsesRejectsSourceCommitIndex(t *testing.T) {
	input := `{"type":"response.created","response_id":"r1","commit_index":3}`
	events := importer.ParseOpenAIResponses(strings.NewReader(input))
	require.Len(t, events, 1)
	errPayload, ok := events[0].Payload.(event.Error)
	require.True(t, ok)
	assert.Equal(t, "contract", errPayload.Kind)
}

func TestParseAnthropicMessagesMapsLifecycleAndToolCalls(t *testing.T) {
	input := `{"type":"message_start","session_id":"s1","model":"claude","timestamp_ns":1}
{"type":"content_block","session_id":"s1","timestamp_ns":2,"content_block":{"type":"tool_use","name":"bash","input":"ls"}}
{"type":"message_stop","session_id":"s1","timestamp_ns":3,"stop_reason":"end_turn"}
`
	events := importer.ParseAnthropicMessages(strings.NewReader(input))
	require.Len(t, events, 3)
	assert.Equal(t, "s1", events[0].RunID)
	_, ok := events[0].Payload.(event.RunStart)
	assert.True(t, ok)
	toolCall, ok := events[1].Payload.(event.ToolCall)
	require.True(t, ok)
	assert.Equal(t, "bash", toolCall.Tool)
	runEnd, ok := events[2].Payload.(event.RunEnd)
	require.True(t, ok)
	require.NotNil(t, runEnd.Reason)
	assert.Equal(t, "end_turn", *runEnd.Reason)
}

func TestParseCohereTranslateMapsRequestResultAndPolicy(t *testing.T) {
	input := `{"type":"translation.request","request_id":"req1","model":"command-r","source_lang":"en","target_lang":"fr","source_text":"hello"}
{"type":"translation.result","request_id":"req1","translated_text":"bonjour"}
{"type":"translation.policy","request_id":"req1","policy_reason":"pii_detected","queue_pressure":0.5}
`
	events := importer.ParseCohereTranslate(strings.NewReader(input))
	require.Len(t, events, 3)
	assert.Equal(t, "req1", events[0].RunID)
	runStart, ok := events[0].Payload.(event.RunStart)
	require.True(t, ok)
	require.NotNil(t, runStart.Args)
	assert.Contains(t, *runStart.Args, "source_lang=en")

	toolResult, ok := events[1].Payload.(event.ToolResult)
	require.True(t, ok)
	require.NotNil(t, toolResult.Result)
	assert.Equal(t, "bonjour", *toolResult.Result)

	policy, ok := events[2].Payload.(event.PolicyDecision)
	require.True(t, ok)
	assert.Equal(t, "pii_detected", policy.Trigger)
	assert.Equal(t, 0.5, policy.QueuePressure)
}

func TestParseCohereTranslateMalformedLineProducesErrorEvent(t *testing.T) {
	events := importer.ParseCohereTranslate(strings.NewReader("not json\n"))
	require.Len(t, events, 1)
	errPayload, ok := events[0].Payload.(event.Error)
	require.True(t, ok)
	assert.Equal(t, "parse", errPayload.Kind)
}
