// Package pipeline implements the ordered AI generation stages of the
// listing workflow: identify → categorize → draft copy → plan imagery, plus
// the optional secondary-content and script stages. Each stage consumes the
// prior stage's artifacts, calls the model collaborator with a fixed prompt
// template, and parses the reply defensively. Stages are strictly sequential
// within one workflow; the metering gate bills each run.
package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/listforge/listforge/internal/app/ledger"
	"github.com/listforge/listforge/internal/app/session"
	"github.com/listforge/listforge/internal/domain"
	"github.com/listforge/listforge/internal/infra/observability"
)

// Stage names, also used as API path segments and billing references.
const (
	StageIdentify   = "identify"
	StageCategorize = "categorize"
	StageDraftCopy  = "draftcopy"
	StageImagery    = "imagery"
	StageSecondary  = "secondary"
	StageScript     = "script"
)

// Stage is one step of the generation pipeline.
type Stage interface {
	Name() string
	// Phase is the workflow phase this stage runs in.
	Phase() domain.Phase
	// Advances reports whether a successful run moves the workflow to the
	// next phase. The optional stages refine artifacts without advancing.
	Advances() bool
	// Validate checks the prerequisite artifacts without side effects.
	Validate(w *session.Workflow) error
	// Run calls the model and stores the artifact on the workflow.
	// Only invoked after Validate passes and the charge succeeds.
	Run(ctx context.Context, gen domain.Generator, w *session.Workflow) error
}

// Costs holds the per-stage credit prices.
type Costs struct {
	Identify   int64 `toml:"identify"`
	Categorize int64 `toml:"categorize"`
	DraftCopy  int64 `toml:"draftcopy"`
	Imagery    int64 `toml:"imagery"`
	Secondary  int64 `toml:"secondary"`
	Script     int64 `toml:"script"`
}

// DefaultCosts returns the standard price table.
func DefaultCosts() Costs {
	return Costs{
		Identify:   2,
		Categorize: 1,
		DraftCopy:  3,
		Imagery:    2,
		Secondary:  2,
		Script:     2,
	}
}

func (c Costs) of(stage string) int64 {
	switch stage {
	case StageIdentify:
		return c.Identify
	case StageCategorize:
		return c.Categorize
	case StageDraftCopy:
		return c.DraftCopy
	case StageImagery:
		return c.Imagery
	case StageSecondary:
		return c.Secondary
	case StageScript:
		return c.Script
	}
	return 0
}

// Runner executes stages against workflows, charging through the metering
// gate. One Runner serves all sessions.
type Runner struct {
	gen    domain.Generator
	gate   *ledger.Service
	costs  Costs
	stages map[string]Stage
	log    *zap.Logger
}

// NewRunner creates a stage runner.
func NewRunner(gen domain.Generator, gate *ledger.Service, costs Costs, log *zap.Logger) *Runner {
	r := &Runner{
		gen:    gen,
		gate:   gate,
		costs:  costs,
		stages: make(map[string]Stage),
		log:    log,
	}
	for _, s := range []Stage{
		identifyStage{}, categorizeStage{}, draftCopyStage{},
		imageryStage{}, secondaryStage{}, scriptStage{},
	} {
		r.stages[s.Name()] = s
	}
	return r
}

// Cost returns the credit price of a stage.
func (r *Runner) Cost(stage string) (int64, error) {
	if _, ok := r.stages[stage]; !ok {
		return 0, domain.ErrUnknownStage
	}
	return r.costs.of(stage), nil
}

// RunStage validates, charges, and executes the named stage on the workflow.
// The workflow lock is held for the full run so no two stages of the same
// workflow overlap; the debit is refunded when the stage fails.
func (r *Runner) RunStage(ctx context.Context, account string, w *session.Workflow, name string) error {
	stage, ok := r.stages[name]
	if !ok {
		return domain.ErrUnknownStage
	}

	w.Lock()
	defer w.Unlock()

	if err := checkPhase(stage, w); err != nil {
		observability.StageRuns.WithLabelValues(name, outcomeOf(err)).Inc()
		return err
	}
	if err := stage.Validate(w); err != nil {
		observability.StageRuns.WithLabelValues(name, outcomeOf(err)).Inc()
		return err
	}

	start := time.Now()
	err := r.gate.ChargeAndRun(ctx, account, r.costs.of(name), name, func(ctx context.Context) error {
		return stage.Run(ctx, r.gen, w)
	})
	observability.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	observability.StageRuns.WithLabelValues(name, outcomeOf(err)).Inc()

	if err != nil {
		r.log.Warn("stage failed",
			zap.String("workflow_id", w.ID),
			zap.String("stage", name),
			zap.Error(err))
		return err
	}

	if stage.Advances() {
		w.Advance()
	} else {
		w.Touch()
	}
	r.log.Info("stage completed",
		zap.String("workflow_id", w.ID),
		zap.String("stage", name),
		zap.String("phase", string(w.Phase)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// checkPhase enforces the fixed stage order. Running a stage before its
// phase is a missing prerequisite; running it after is an invalid phase
// (no backward transitions except full reset).
func checkPhase(stage Stage, w *session.Workflow) error {
	want := stage.Phase()
	if w.Phase == want {
		return nil
	}
	if w.Phase.Index() < want.Index() {
		return domain.ErrStagePrerequisiteMissing
	}
	return domain.ErrInvalidPhase
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrStagePrerequisiteMissing):
		return "prerequisite"
	case errors.Is(err, domain.ErrInvalidPhase):
		return "invalid_phase"
	case errors.Is(err, domain.ErrInsufficientCredit):
		return "insufficient_credit"
	case errors.Is(err, domain.ErrMalformedModelOutput):
		return "malformed"
	case errors.Is(err, domain.ErrServiceUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
