package tour

import (
	"fmt"
	"io"
	"math"
	"path/filepath"

	"github.com/vifei-systems/vifei/internal/event"
	"github.com/vifei-systems/vifei/internal/eventlog"
	"github.com/vifei-systems/vifei/internal/hashing"
	"github.com/vifei-systems/vifei/internal/importer"
	"github.com/vifei-systems/vifei/internal/projection"
	"github.com/vifei-systems/vifei/internal/state"
)

// SeekPoint is one time-travel checkpoint captured during a tour.
type SeekPoint struct {
	CommitIndex   uint64         `json:"commit_index"`
	StateHash     hashing.Digest `json:"state_hash"`
	ViewModelHash hashing.Digest `json:"viewmodel_hash"`
}

// DegradationTransition records one ladder-level move observed during the
// tour, derived from PolicyDecision events in the folded state.
type DegradationTransition struct {
	CommitIndex uint64 `json:"commit_index"`
	FromLevel   string `json:"from_level"`
	ToLevel     string `json:"to_level"`
	Trigger     string `json:"trigger"`
}

// Metrics is the pretty-JSON metrics.json artifact.
type Metrics struct {
	ProjectionInvariantsVersion string                   `json:"projection_invariants_version"`
	EventCountTotal             uint64                   `json:"event_count_total"`
	TierADrops                  uint64                   `json:"tier_a_drops"`
	MaxDegradationLevel         string                   `json:"max_degradation_level"`
	DegradationLevelFinal       string                   `json:"degradation_level_final"`
	DegradationTransitions      []DegradationTransition  `json:"degradation_transitions"`
	AggregationMode             string                   `json:"aggregation_mode"`
	AggregationBinSize          *uint64                  `json:"aggregation_bin_size,omitempty"`
	QueuePressure               float64                  `json:"queue_pressure"`
	ExportSafetyState           projection.ExportSafetyState `json:"export_safety_state"`
}

// TimeTravel is the pretty-JSON timetravel.capture artifact.
type TimeTravel struct {
	ProjectionInvariantsVersion string      `json:"projection_invariants_version"`
	SeekPoints                  []SeekPoint `json:"seek_points"`
}

// Artifacts bundles everything a tour run produces.
type Artifacts struct {
	Metrics     Metrics
	ViewModel   *projection.ViewModel
	ViewModelHash hashing.Digest
	ANSICapture string
	TimeTravel  TimeTravel
}

// RunFixture parses fixture through the cassette importer and runs the
// stress-harness pipeline over the result. This is the pipeline's real
// entry point: fixtures are Agent Cassette JSONL recordings, never
// pre-built ImportEvents.
func RunFixture(fixture io.Reader, workDir string) (Artifacts, error) {
	return Run(importer.ParseCassette(fixture), workDir)
}

// Run executes the stress-harness pipeline over an already-parsed fixture
// (typically the output of RunFixture's cassette-importer call), using
// workDir as scratch space for the throwaway log the Append Writer writes
// to (so clock-skew detection participates).
func Run(fixture []event.ImportEvent, workDir string) (Artifacts, error) {
	logPath := filepath.Join(workDir, "tour.log")
	w, err := eventlog.Open(logPath)
	if err != nil {
		return Artifacts{}, fmt.Errorf("tour: opening throwaway log: %w", err)
	}
	defer w.Close()

	var committed []event.CommittedEvent
	for _, imp := range fixture {
		res, err := w.Append(imp)
		if err != nil {
			return Artifacts{}, fmt.Errorf("tour: appending fixture event %s: %w", imp.EventID, err)
		}
		committed = append(committed, res.AllCommitted()...)
	}

	n := len(committed)
	seekEvery := 0
	if n > 0 {
		seekEvery = int(math.Ceil(float64(n) / 20.0))
		if seekEvery < 1 {
			seekEvery = 1
		}
	}

	s := state.New()
	var seekPoints []SeekPoint
	for i, ev := range committed {
		state.ReduceInPlace(s, ev)

		isLast := i == n-1
		if seekEvery > 0 && ((i+1)%seekEvery == 0 || isLast) {
			sh, err := state.StateHash(s)
			if err != nil {
				return Artifacts{}, fmt.Errorf("tour: hashing state at seek point: %w", err)
			}
			vm := projection.Project(s, projection.Invariants{
				Version:          ProjectionInvariantsVersion,
				DegradationLevel: currentLevel(s),
			})
			vmh, err := projection.ViewModelHash(vm)
			if err != nil {
				return Artifacts{}, fmt.Errorf("tour: hashing view-model at seek point: %w", err)
			}
			seekPoints = append(seekPoints, SeekPoint{CommitIndex: ev.CommitIndex, StateHash: sh, ViewModelHash: vmh})
		}
	}

	metrics, vm, vmh, err := MetricsFromState(s, uint64(n))
	if err != nil {
		return Artifacts{}, fmt.Errorf("tour: %w", err)
	}

	return Artifacts{
		Metrics:       metrics,
		ViewModel:     vm,
		ViewModelHash: vmh,
		ANSICapture:   RenderTruthHUD(vm),
		TimeTravel: TimeTravel{
			ProjectionInvariantsVersion: ProjectionInvariantsVersion,
			SeekPoints:                  seekPoints,
		},
	}, nil
}

// MetricsFromState projects s, hashes the resulting view model, and builds
// the Metrics artifact from it. eventCountTotal is threaded through
// separately since a replayed side (incidentpack) and a freshly-ingested
// fixture (Run) disagree on what "total" should count when drops are
// involved. Shared by Run and by internal/incidentpack so both commands
// report degradation level, aggregation mode, and export safety the same
// way for the same folded state.
func MetricsFromState(s *state.AccumulatedState, eventCountTotal uint64) (Metrics, *projection.ViewModel, hashing.Digest, error) {
	finalLevel := currentLevel(s)
	vm := projection.Project(s, projection.Invariants{Version: ProjectionInvariantsVersion, DegradationLevel: finalLevel})
	vmh, err := projection.ViewModelHash(vm)
	if err != nil {
		return Metrics{}, nil, "", fmt.Errorf("hashing view-model: %w", err)
	}

	transitions := degradationTransitions(s)
	maxLevel := finalLevel
	for _, t := range transitions {
		if lvl, err := projection.ParseLadderLevel(t.ToLevel); err == nil && lvl > maxLevel {
			maxLevel = lvl
		}
	}

	metrics := Metrics{
		ProjectionInvariantsVersion: ProjectionInvariantsVersion,
		EventCountTotal:             eventCountTotal,
		TierADrops:                  s.TierADrops,
		MaxDegradationLevel:         maxLevel.String(),
		DegradationLevelFinal:       finalLevel.String(),
		DegradationTransitions:      transitions,
		AggregationMode:             vm.AggregationMode,
		AggregationBinSize:          vm.AggregationBinSize,
		QueuePressure:               hashing.FromFixedPoint(vm.QueuePressureFixed),
		ExportSafetyState:           vm.ExportSafetyState,
	}
	return metrics, vm, vmh, nil
}

// currentLevel derives the degradation ladder level implied by the most
// recent PolicyDecision folded into s, defaulting to L0 when none has
// occurred.
func currentLevel(s *state.AccumulatedState) projection.LadderLevel {
	if len(s.PolicyDecisions) == 0 {
		return projection.L0
	}
	last := s.PolicyDecisions[len(s.PolicyDecisions)-1]
	level, err := projection.ParseLadderLevel(last.ToLevel)
	if err != nil {
		return projection.L0
	}
	return level
}

func degradationTransitions(s *state.AccumulatedState) []DegradationTransition {
	out := make([]DegradationTransition, 0, len(s.PolicyDecisions))
	for _, d := range s.PolicyDecisions {
		out = append(out, DegradationTransition{
			CommitIndex: d.CommitIndex,
			FromLevel:   d.FromLevel,
			ToLevel:     d.ToLevel,
			Trigger:     d.Trigger,
		})
	}
	return out
}

// ProjectionInvariantsVersion is the fixed invariants-schema identifier
// every projection and manifest in this repository is stamped with.
const ProjectionInvariantsVersion = "projection-invariants-v0.1"
