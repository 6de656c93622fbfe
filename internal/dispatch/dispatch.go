// Package dispatch executes conversation decisions against the external
// collaborators and reports typed outcomes instead of raw failures.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xaenox/jobpost-bot/internal/classifier"
	"github.com/xaenox/jobpost-bot/internal/jobdesc"
	"github.com/xaenox/jobpost-bot/internal/llm"
	"github.com/xaenox/jobpost-bot/internal/metrics"
	"github.com/xaenox/jobpost-bot/internal/models"
	"go.uber.org/zap"
)

// Generator writes a job description for complete entities.
type Generator interface {
	Generate(ctx context.Context, e models.Entities) (string, error)
}

// Poster publishes a job and returns a reference such as a URL.
type Poster interface {
	Post(ctx context.Context, e models.Entities) (string, error)
}

// DraftSaver persists a job draft and returns its id.
type DraftSaver interface {
	SaveDraft(ctx context.Context, e models.Entities) (string, error)
}

// Outcome is the result of a side-effecting action.
type Outcome struct {
	Success   bool
	Reference string
	Reason    string
}

func failure(err error) Outcome {
	return Outcome{Reason: err.Error()}
}

// Dispatcher maps each action to exactly one collaborator call. It never
// retries; failures are returned to the caller as outcomes.
type Dispatcher struct {
	classifier classifier.Classifier
	generator  Generator
	poster     Poster
	drafts     DraftSaver
	recorder   metrics.Recorder
	logger     *zap.Logger
}

func New(c classifier.Classifier, g Generator, p Poster, d DraftSaver, recorder metrics.Recorder, logger *zap.Logger) *Dispatcher {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Dispatcher{
		classifier: c,
		generator:  g,
		poster:     p,
		drafts:     d,
		recorder:   recorder,
		logger:     logger,
	}
}

// guard runs fn and turns a panic inside a collaborator into an error.
func guard(call string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", call, r)
		}
	}()
	return fn()
}

func (d *Dispatcher) observe(call string, start time.Time, err error) {
	d.recorder.ObserveCall(call, err == nil, time.Since(start))
}

// Classify returns a well-formed classification for the full history.
// Degraded results are logged with the failure kind and used as is.
func (d *Dispatcher) Classify(ctx context.Context, chatID int64, history string) models.Classification {
	start := time.Now()
	var result models.Classification
	err := guard("classify", func() error {
		var err error
		result, err = d.classifier.Classify(ctx, history)
		return err
	})
	d.observe("classify", start, err)

	if err != nil {
		var formatErr *classifier.FormatError
		switch {
		case errors.As(err, &formatErr):
			d.logger.Error("Classifier format error",
				zap.Error(err),
				zap.Int64("chat_id", chatID),
				zap.String("stage", "classify"),
				zap.String("raw", formatErr.Raw))
		case result.Intent == "":
			d.logger.Error("Classifier failed",
				zap.Error(err),
				zap.Int64("chat_id", chatID),
				zap.String("stage", "classify"))
			result = models.NotHiring()
		default:
			d.logger.Warn("Classifier degraded",
				zap.Error(err),
				zap.Int64("chat_id", chatID),
				zap.String("stage", "classify"),
				zap.String("kind", llm.KindOf(err).String()),
				zap.String("intent", string(result.Intent)))
		}
	}

	d.recorder.Classified(intentLabel(result.Intent))
	return result
}

// intentLabel keeps model-invented intents out of metric labels.
func intentLabel(intent models.Intent) string {
	switch intent {
	case models.IntentHiringRequest, models.IntentNotHiring, models.IntentQuotaExceeded:
		return string(intent)
	default:
		return "unknown"
	}
}

// Describe generates the job description, falling back to the canned
// template when generation fails. The boolean reports a fallback.
func (d *Dispatcher) Describe(ctx context.Context, chatID int64, e models.Entities) (string, bool) {
	start := time.Now()
	var text string
	err := guard("generate", func() error {
		var err error
		text, err = d.generator.Generate(ctx, e)
		return err
	})
	d.observe("generate", start, err)

	if err != nil || text == "" {
		d.logger.Error("Job description generation failed, using fallback",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.String("stage", "generate"))
		return jobdesc.Fallback(e), true
	}
	return text, false
}

// Post publishes the job.
func (d *Dispatcher) Post(ctx context.Context, chatID int64, e models.Entities) Outcome {
	start := time.Now()
	var ref string
	err := guard("post", func() error {
		var err error
		ref, err = d.poster.Post(ctx, e)
		return err
	})
	d.observe("post", start, err)

	if err != nil {
		d.logger.Error("Failed to post job",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.String("stage", "post"))
		return failure(err)
	}
	return Outcome{Success: true, Reference: ref}
}

// SaveDraft stores the job as a draft.
func (d *Dispatcher) SaveDraft(ctx context.Context, chatID int64, e models.Entities) Outcome {
	start := time.Now()
	var id string
	err := guard("draft", func() error {
		var err error
		id, err = d.drafts.SaveDraft(ctx, e)
		return err
	})
	d.observe("draft", start, err)

	if err == nil && id == "" {
		err = errors.New("draft store returned no id")
	}
	if err != nil {
		d.logger.Error("Failed to save draft",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.String("stage", "draft"))
		return failure(err)
	}
	return Outcome{Success: true, Reference: id}
}
