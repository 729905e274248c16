// Package tour implements the Stress Harness: a deterministic end-to-end
// pipeline over a fixture that emits four proof artifacts, including an
// ANSI capture of the Truth HUD — the always-visible strip that confesses
// the system's own degradation and safety state.
package tour

import (
	"fmt"
	"strings"

	"github.com/vifei-systems/vifei/internal/projection"
)

const (
	ansiReset     = "\x1b[0m"
	ansiWhite     = "\x1b[37m"
	ansiDarkGray  = "\x1b[90m"
	ansiGray      = "\x1b[37m"
	ansiGreen     = "\x1b[32m"
	ansiYellow    = "\x1b[33m"
	ansiRed       = "\x1b[31m"
	ansiBoldRed   = "\x1b[1;31m"
)

func levelStyle(level projection.LadderLevel) string {
	switch level {
	case projection.L0:
		return ansiGreen
	case projection.L1, projection.L2, projection.L3:
		return ansiYellow
	case projection.L4:
		return ansiRed
	case projection.L5:
		return ansiBoldRed
	default:
		return ansiWhite
	}
}

func dropsStyle(drops uint64) string {
	if drops > 0 {
		return ansiBoldRed
	}
	return ansiGreen
}

func exportStyle(state projection.ExportSafetyState) string {
	switch state {
	case projection.ExportSafetyUnknown:
		return ansiGray
	case projection.ExportSafetyClean:
		return ansiGreen
	case projection.ExportSafetyDirty:
		return ansiRed
	case projection.ExportSafetyRefused:
		return ansiBoldRed
	default:
		return ansiWhite
	}
}

func pressureStyle(pct int) string {
	switch {
	case pct >= 80:
		return ansiRed
	case pct >= 50:
		return ansiYellow
	default:
		return ansiGreen
	}
}

func styled(style, text string) string {
	return style + text + ansiReset
}

// RenderTruthHUD renders the Truth HUD as an ANSI-escaped two-line capture,
// the textual analogue of the interactive strip: current ladder level,
// aggregation mode + bin size, queue pressure, Tier-A drops, export safety
// state, and the projection invariants version.
func RenderTruthHUD(vm *projection.ViewModel) string {
	aggregation := vm.AggregationMode
	if vm.AggregationBinSize != nil {
		aggregation = fmt.Sprintf("%s (bin=%d)", vm.AggregationMode, *vm.AggregationBinSize)
	}

	pressurePct := int((float64(vm.QueuePressureFixed) / 1_000_000) * 100)

	var b strings.Builder
	b.WriteString(" Level: ")
	b.WriteString(styled(levelStyle(vm.DegradationLevel), vm.DegradationLevel.String()))
	b.WriteString(" | Agg: ")
	b.WriteString(aggregation)
	b.WriteString(" | Pressure: ")
	b.WriteString(styled(pressureStyle(pressurePct), fmt.Sprintf("%d%%", pressurePct)))
	b.WriteString(" | Drops: ")
	b.WriteString(styled(dropsStyle(vm.TierADrops), fmt.Sprintf("%d", vm.TierADrops)))
	b.WriteString(" | Export: ")
	b.WriteString(styled(exportStyle(vm.ExportSafetyState), string(vm.ExportSafetyState)))
	b.WriteString("\n")
	b.WriteString(styled(ansiDarkGray, " Version: "+vm.ProjectionInvariantsVersion))
	b.WriteString("\n")

	return b.String()
}
