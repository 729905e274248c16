package eventlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/vifei-systems/vifei/internal/event"
)

// ReadCommitted reads a JSONL event log from path and returns its committed
// events in file order. A missing file is reported as an error: callers
// that want to tolerate an absent log should check os.Stat first.
func ReadCommitted(path string) ([]event.CommittedEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("eventlog: opening %s: %w", path, err)
	}
	defer f.Close()

	var events []event.CommittedEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), DefaultLineSizeCeiling+4096)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev event.CommittedEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, fmt.Errorf("eventlog: %s: corrupted at line %d: %w", path, lineNo, err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("eventlog: %s: scanning: %w", path, err)
	}
	return events, nil
}
