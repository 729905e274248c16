package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/vifei-systems/vifei/internal/cliproto"
)

// outcome is what every command builds and hands to emit: either success
// carrying data for both human and robot rendering, or a failure code with
// a message and remediation suggestions.
type outcome struct {
	code        cliproto.Code
	message     string
	suggestions []string
	data        any
	notes       []string
	human       func(w *os.File, data any)
}

func ok(message string, data any, human func(w *os.File, data any)) outcome {
	return outcome{code: cliproto.CodeOK, message: message, data: data, human: human}
}

func fail(code cliproto.Code, message string, suggestions ...string) outcome {
	return outcome{code: code, message: message, suggestions: suggestions}
}

// emit renders o either as the robot-mode JSON envelope (robot=true) or as
// human-readable text, then returns the process exit code. The caller's
// main is the only place that calls os.Exit, so every command function
// stays directly testable.
func emit(command string, robot bool, o outcome) cliproto.ExitCode {
	env := cliproto.New(o.code, o.message, o.suggestions).WithCommand(command)
	if o.data != nil {
		env = env.WithData(o.data)
	}
	if len(o.notes) > 0 {
		env = env.WithNotes(o.notes...)
	}

	if robot {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(env); err != nil {
			fmt.Fprintf(os.Stderr, "vifei: encoding robot envelope: %v\n", err)
			return cliproto.ExitRuntimeError
		}
		return env.ExitCode
	}

	// A human renderer means the command has a real result to show even
	// when the outcome code isn't CodeOK (diff-found is a completed
	// comparison, not a failure) - only a renderer-less outcome goes to
	// stderr as an error.
	if o.human != nil {
		o.human(os.Stdout, o.data)
		return env.ExitCode
	}
	if o.code == cliproto.CodeOK {
		fmt.Fprintln(os.Stdout, o.message)
		return env.ExitCode
	}

	fmt.Fprintf(os.Stderr, "vifei: %s\n", o.message)
	for _, s := range o.suggestions {
		fmt.Fprintf(os.Stderr, "  - %s\n", s)
	}
	return env.ExitCode
}

// runtimeErr wraps err into a RUNTIME_ERROR outcome with a consistent
// message shape across commands.
func runtimeErr(context string, err error) outcome {
	return fail(cliproto.CodeRuntimeError, fmt.Sprintf("%s: %v", context, err))
}
