// Package cliproto defines the robot-mode JSON envelope and exit-code
// taxonomy every CLI command reports through, whether it succeeds, fails,
// or refuses.
package cliproto

// SchemaVersion is the stable identifier stamped on every envelope.
const SchemaVersion = "vifei-cli-robot-v1.1"

// Code is the closed vocabulary of machine-readable outcome codes.
type Code string

const (
	CodeOK             Code = "OK"
	CodeNotFound       Code = "NOT_FOUND"
	CodeInvalidArgs    Code = "INVALID_ARGS"
	CodeExportRefused  Code = "EXPORT_REFUSED"
	CodeRuntimeError   Code = "RUNTIME_ERROR"
	CodeDiffFound      Code = "DIFF_FOUND"
)

// ExitCode is the closed set of process exit codes every command returns.
type ExitCode int

const (
	ExitSuccess       ExitCode = 0
	ExitNotFound      ExitCode = 1
	ExitInvalidArgs   ExitCode = 2
	ExitExportRefused ExitCode = 3
	ExitRuntimeError  ExitCode = 4
	ExitDiffFound     ExitCode = 5
)

// codeExitCodes pins each Code to its one legal ExitCode, so a caller can
// never accidentally pair e.g. CodeOK with a nonzero exit.
var codeExitCodes = map[Code]ExitCode{
	CodeOK:            ExitSuccess,
	CodeNotFound:      ExitNotFound,
	CodeInvalidArgs:   ExitInvalidArgs,
	CodeExportRefused: ExitExportRefused,
	CodeRuntimeError:  ExitRuntimeError,
	CodeDiffFound:     ExitDiffFound,
}

// Envelope is the single schema every CLI error or success conforms to
// when JSON output is selected.
type Envelope struct {
	SchemaVersion string   `json:"schema_version"`
	OK            bool     `json:"ok"`
	Code          Code     `json:"code"`
	Message       string   `json:"message"`
	Suggestions   []string `json:"suggestions"`
	ExitCode      ExitCode `json:"exit_code"`
	Command       string   `json:"command,omitempty"`
	Data          any      `json:"data,omitempty"`
	Notes         []string `json:"notes,omitempty"`
}

// New builds an Envelope for code, filling exit_code from the fixed
// code-to-exit-code pinning and ok from whether code is CodeOK.
func New(code Code, message string, suggestions []string) Envelope {
	return Envelope{
		SchemaVersion: SchemaVersion,
		OK:            code == CodeOK,
		Code:          code,
		Message:       message,
		Suggestions:   suggestions,
		ExitCode:      codeExitCodes[code],
	}
}

// WithCommand returns a copy of e with Command set.
func (e Envelope) WithCommand(command string) Envelope {
	e.Command = command
	return e
}

// WithData returns a copy of e with Data set.
func (e Envelope) WithData(data any) Envelope {
	e.Data = data
	return e
}

// WithNotes returns a copy of e with Notes set.
func (e Envelope) WithNotes(notes ...string) Envelope {
	e.Notes = notes
	return e
}
