package main

import "github.com/vifei-systems/vifei/internal/cliproto"

// lastExitCode carries the exit code chosen by emit() out of cobra's
// RunE, which only returns an error. Every command's RunE always returns
// nil after calling emit: cobra's own error printing would otherwise
// duplicate the envelope's message.
var lastExitCode cliproto.ExitCode

func runCommand(command string, fn func() outcome) error {
	lastExitCode = emit(command, flagRobot, fn())
	return nil
}
