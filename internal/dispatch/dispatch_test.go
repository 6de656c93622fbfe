package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/jobpost-bot/internal/classifier"
	"github.com/xaenox/jobpost-bot/internal/jobdesc"
	"github.com/xaenox/jobpost-bot/internal/llm"
	"github.com/xaenox/jobpost-bot/internal/metrics"
	"github.com/xaenox/jobpost-bot/internal/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type classifyFunc func(ctx context.Context, history string) (models.Classification, error)

func (f classifyFunc) Classify(ctx context.Context, history string) (models.Classification, error) {
	return f(ctx, history)
}

type generateFunc func(ctx context.Context, e models.Entities) (string, error)

func (f generateFunc) Generate(ctx context.Context, e models.Entities) (string, error) {
	return f(ctx, e)
}

type postFunc func(ctx context.Context, e models.Entities) (string, error)

func (f postFunc) Post(ctx context.Context, e models.Entities) (string, error) {
	return f(ctx, e)
}

func (f postFunc) SaveDraft(ctx context.Context, e models.Entities) (string, error) {
	return f(ctx, e)
}

func newDispatcher(c classifyFunc, g generateFunc, p postFunc) *Dispatcher {
	return New(c, g, p, p, nil, zap.NewNop())
}

func entities() models.Entities {
	var e models.Entities
	e.Set(models.AttrJobTitle, "Backend developer")
	return e
}

func TestClassifyDegradedResults(t *testing.T) {
	tests := []struct {
		name   string
		fn     classifyFunc
		intent models.Intent
	}{
		{
			name: "format error",
			fn: func(context.Context, string) (models.Classification, error) {
				return models.NotHiring(), &classifier.FormatError{Raw: "oops", Reason: "bad"}
			},
			intent: models.IntentNotHiring,
		},
		{
			name: "quota",
			fn: func(context.Context, string) (models.Classification, error) {
				return models.Classification{Intent: models.IntentQuotaExceeded}, &llm.Error{Kind: llm.KindRateLimit}
			},
			intent: models.IntentQuotaExceeded,
		},
		{
			name: "error without result",
			fn: func(context.Context, string) (models.Classification, error) {
				return models.Classification{}, errors.New("boom")
			},
			intent: models.IntentNotHiring,
		},
		{
			name: "panic",
			fn: func(context.Context, string) (models.Classification, error) {
				panic("nil map")
			},
			intent: models.IntentNotHiring,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDispatcher(tt.fn, nil, nil)
			got := d.Classify(context.Background(), 1, "history")
			assert.Equal(t, tt.intent, got.Intent)
		})
	}
}

func TestDescribeFallback(t *testing.T) {
	d := newDispatcher(nil, func(context.Context, models.Entities) (string, error) {
		return "", errors.New("model down")
	}, nil)

	text, fellBack := d.Describe(context.Background(), 1, entities())
	assert.True(t, fellBack)
	assert.Equal(t, jobdesc.Fallback(entities()), text)

	d = newDispatcher(nil, func(context.Context, models.Entities) (string, error) {
		return "A great job", nil
	}, nil)
	text, fellBack = d.Describe(context.Background(), 1, entities())
	assert.False(t, fellBack)
	assert.Equal(t, "A great job", text)
}

func TestPostOutcome(t *testing.T) {
	d := newDispatcher(nil, nil, func(context.Context, models.Entities) (string, error) {
		return "https://example.com/post/1", nil
	})
	assert.Equal(t, Outcome{Success: true, Reference: "https://example.com/post/1"}, d.Post(context.Background(), 1, entities()))

	d = newDispatcher(nil, nil, func(context.Context, models.Entities) (string, error) {
		return "", errors.New("failed: 401 - unauthorized")
	})
	out := d.Post(context.Background(), 1, entities())
	assert.False(t, out.Success)
	assert.Equal(t, "failed: 401 - unauthorized", out.Reason)
}

func TestSaveDraftOutcome(t *testing.T) {
	d := newDispatcher(nil, nil, func(context.Context, models.Entities) (string, error) {
		return "", nil
	})
	out := d.SaveDraft(context.Background(), 1, entities())
	assert.False(t, out.Success)
	assert.NotEmpty(t, out.Reason)

	d = newDispatcher(nil, nil, func(context.Context, models.Entities) (string, error) {
		panic("disk on fire")
	})
	out = d.SaveDraft(context.Background(), 1, entities())
	assert.False(t, out.Success)
	assert.Contains(t, out.Reason, "disk on fire")
}

type intentRecorder struct {
	metrics.Nop
	intents []string
}

func (r *intentRecorder) Classified(intent string) {
	r.intents = append(r.intents, intent)
}

func TestClassifyBoundsIntentLabels(t *testing.T) {
	results := []models.Intent{models.IntentHiringRequest, "small_talk", models.IntentQuotaExceeded, "x-" + models.IntentNotHiring}
	rec := &intentRecorder{}

	i := 0
	d := New(classifyFunc(func(context.Context, string) (models.Classification, error) {
		r := models.Classification{Intent: results[i]}
		i++
		return r, nil
	}), nil, nil, nil, rec, zap.NewNop())

	var got []models.Intent
	for range results {
		got = append(got, d.Classify(context.Background(), 1, "history").Intent)
	}

	// The engine still sees the raw intent; only the metric label is bounded.
	assert.Equal(t, results, got)
	assert.Equal(t, []string{"hiring_request", "unknown", "quota_exceeded", "unknown"}, rec.intents)
}

func TestClassifyLogsFormatErrorOnce(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	d := New(classifyFunc(func(context.Context, string) (models.Classification, error) {
		return models.NotHiring(), &classifier.FormatError{Raw: "{oops", Reason: "invalid JSON"}
	}), nil, nil, nil, nil, zap.New(core))

	d.Classify(context.Background(), 42, "history")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "{oops", fields["raw"])
	assert.Equal(t, int64(42), fields["chat_id"])
	assert.Equal(t, "classify", fields["stage"])
}
