package event

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Payload is the marker interface implemented by every EventPayload variant.
// The discriminant field written to JSON is always "type" and its value is
// exactly the variant's Go type name.
type Payload interface {
	payloadType() string
}

// RunStart marks the beginning of an agent run.
type RunStart struct {
	Agent string  `json:"agent"`
	Args  *string `json:"args,omitempty"`
}

func (RunStart) payloadType() string { return "RunStart" }

// RunEnd marks the end of an agent run.
type RunEnd struct {
	ExitCode *int32  `json:"exit_code,omitempty"`
	Reason   *string `json:"reason,omitempty"`
}

func (RunEnd) payloadType() string { return "RunEnd" }

// ToolCall records an agent invoking a tool.
type ToolCall struct {
	Tool string  `json:"tool"`
	Args *string `json:"args,omitempty"`
}

func (ToolCall) payloadType() string { return "ToolCall" }

// ToolResult records the outcome of a tool call.
type ToolResult struct {
	Tool   string  `json:"tool"`
	Result *string `json:"result,omitempty"`
	Status *string `json:"status,omitempty"`
}

func (ToolResult) payloadType() string { return "ToolResult" }

// PolicyDecision records a degradation-ladder transition.
type PolicyDecision struct {
	FromLevel     string
	ToLevel       string
	Trigger       string
	QueuePressure float64 // f64 in [0,1]; quantized to fixed-point by the reducer, never persisted as float in state.
}

func (PolicyDecision) payloadType() string { return "PolicyDecision" }

// RedactionApplied records a field that was redacted upstream of this log
// (the core never redacts; it only records that an importer/collaborator did).
type RedactionApplied struct {
	TargetEventID string
	FieldPath     string
	Reason        string
}

func (RedactionApplied) payloadType() string { return "RedactionApplied" }

// Error records a contract violation, parse failure, or runtime error folded
// into the event stream rather than aborting ingestion.
type Error struct {
	Kind     string
	Message  string
	Severity *string
}

func (Error) payloadType() string { return "Error" }

// ClockSkewDetected is synthesized by the Append Writer when a source's
// timestamps regress beyond tolerance.
type ClockSkewDetected struct {
	ExpectedNS uint64
	ActualNS   uint64
	DeltaNS    uint64
}

func (ClockSkewDetected) payloadType() string { return "ClockSkewDetected" }

// Generic carries any event_type/data pair an importer could not map to one
// of the named variants. Data keys are sorted on serialization.
type Generic struct {
	EventType string
	Data      map[string]string
}

func (Generic) payloadType() string { return "Generic" }

// MarshalJSON implements the canonical tagged-union encoding: "type" first,
// then the variant's fields in declaration order, with optional fields
// omitted per §4.1.
func marshalPayload(p Payload) ([]byte, error) {
	b := newObjectBuilder()
	b.field("type", p.payloadType())
	switch v := p.(type) {
	case RunStart:
		b.field("agent", v.Agent)
		b.optional("args", v.Args, v.Args != nil)
	case RunEnd:
		b.optional("exit_code", v.ExitCode, v.ExitCode != nil)
		b.optional("reason", v.Reason, v.Reason != nil)
	case ToolCall:
		b.field("tool", v.Tool)
		b.optional("args", v.Args, v.Args != nil)
	case ToolResult:
		b.field("tool", v.Tool)
		b.optional("result", v.Result, v.Result != nil)
		b.optional("status", v.Status, v.Status != nil)
	case PolicyDecision:
		b.field("from_level", v.FromLevel)
		b.field("to_level", v.ToLevel)
		b.field("trigger", v.Trigger)
		b.field("queue_pressure", v.QueuePressure)
	case RedactionApplied:
		b.field("target_event_id", v.TargetEventID)
		b.field("field_path", v.FieldPath)
		b.field("reason", v.Reason)
	case Error:
		b.field("kind", v.Kind)
		b.field("message", v.Message)
		b.optional("severity", v.Severity, v.Severity != nil)
	case ClockSkewDetected:
		b.field("expected_ns", v.ExpectedNS)
		b.field("actual_ns", v.ActualNS)
		b.field("delta_ns", v.DeltaNS)
	case Generic:
		b.field("event_type", v.EventType)
		keys := make([]string, 0, len(v.Data))
		for k := range v.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		orderedData := orderedStringMap{keys: keys, values: v.Data}
		b.field("data", orderedData)
	default:
		return nil, fmt.Errorf("event: unknown payload variant %T", p)
	}
	return b.bytes()
}

// orderedStringMap marshals to a JSON object with keys in the supplied
// order, satisfying the "mapping from string to string, keys sorted" rule
// for Generic.data without relying on Go map iteration order.
type orderedStringMap struct {
	keys   []string
	values map[string]string
}

func (m orderedStringMap) MarshalJSON() ([]byte, error) {
	b := newObjectBuilder()
	for _, k := range m.keys {
		b.field(k, m.values[k])
	}
	return b.bytes()
}

// wirePayload mirrors every possible field across every variant so a single
// json.Unmarshal call can dispatch on "type" and then pick out only the
// fields relevant to that variant. Deserialization has no ordering
// requirement, unlike serialization.
type wirePayload struct {
	Type string `json:"type"`

	Agent *string `json:"agent,omitempty"`
	Args  *string `json:"args,omitempty"`

	ExitCode *int32  `json:"exit_code,omitempty"`
	Reason   *string `json:"reason,omitempty"`

	Tool   *string `json:"tool,omitempty"`
	Result *string `json:"result,omitempty"`
	Status *string `json:"status,omitempty"`

	FromLevel     *string  `json:"from_level,omitempty"`
	ToLevel       *string  `json:"to_level,omitempty"`
	Trigger       *string  `json:"trigger,omitempty"`
	QueuePressure *float64 `json:"queue_pressure,omitempty"`

	TargetEventID *string `json:"target_event_id,omitempty"`
	FieldPath     *string `json:"field_path,omitempty"`

	Kind     *string `json:"kind,omitempty"`
	Message  *string `json:"message,omitempty"`
	Severity *string `json:"severity,omitempty"`

	ExpectedNS *uint64 `json:"expected_ns,omitempty"`
	ActualNS   *uint64 `json:"actual_ns,omitempty"`
	DeltaNS    *uint64 `json:"delta_ns,omitempty"`

	EventType *string           `json:"event_type,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
}

func unmarshalPayload(data []byte) (Payload, error) {
	var w wirePayload
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("event: decoding payload: %w", err)
	}
	switch w.Type {
	case "RunStart":
		if w.Agent == nil {
			return nil, fmt.Errorf("event: RunStart missing required field agent")
		}
		return RunStart{Agent: *w.Agent, Args: w.Args}, nil
	case "RunEnd":
		return RunEnd{ExitCode: w.ExitCode, Reason: w.Reason}, nil
	case "ToolCall":
		if w.Tool == nil {
			return nil, fmt.Errorf("event: ToolCall missing required field tool")
		}
		return ToolCall{Tool: *w.Tool, Args: w.Args}, nil
	case "ToolResult":
		if w.Tool == nil {
			return nil, fmt.Errorf("event: ToolResult missing required field tool")
		}
		return ToolResult{Tool: *w.Tool, Result: w.Result, Status: w.Status}, nil
	case "PolicyDecision":
		if w.FromLevel == nil || w.ToLevel == nil || w.Trigger == nil || w.QueuePressure == nil {
			return nil, fmt.Errorf("event: PolicyDecision missing required fields")
		}
		return PolicyDecision{
			FromLevel:     *w.FromLevel,
			ToLevel:       *w.ToLevel,
			Trigger:       *w.Trigger,
			QueuePressure: *w.QueuePressure,
		}, nil
	case "RedactionApplied":
		if w.TargetEventID == nil || w.FieldPath == nil || w.Reason == nil {
			return nil, fmt.Errorf("event: RedactionApplied missing required fields")
		}
		return RedactionApplied{TargetEventID: *w.TargetEventID, FieldPath: *w.FieldPath, Reason: *w.Reason}, nil
	case "Error":
		if w.Kind == nil || w.Message == nil {
			return nil, fmt.Errorf("event: Error missing required fields")
		}
		return Error{Kind: *w.Kind, Message: *w.Message, Severity: w.Severity}, nil
	case "ClockSkewDetected":
		if w.ExpectedNS == nil || w.ActualNS == nil || w.DeltaNS == nil {
			return nil, fmt.Errorf("event: ClockSkewDetected missing required fields")
		}
		return ClockSkewDetected{ExpectedNS: *w.ExpectedNS, ActualNS: *w.ActualNS, DeltaNS: *w.DeltaNS}, nil
	case "Generic":
		if w.EventType == nil {
			return nil, fmt.Errorf("event: Generic missing required field event_type")
		}
		data := w.Data
		if data == nil {
			data = map[string]string{}
		}
		return Generic{EventType: *w.EventType, Data: data}, nil
	default:
		return nil, fmt.Errorf("event: unknown payload type %q", w.Type)
	}
}
