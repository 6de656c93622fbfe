package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusRecorder(reg)

	rec.ConversationStarted()
	rec.ConversationStarted()
	rec.Classified("hiring_request")
	rec.Finalized(true)
	rec.Action("jd_post_yes", "success")
	rec.ObserveCall("classify", true, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.conversationsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.classifiedTotal.WithLabelValues("hiring_request")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.finalizedTotal.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.actionsTotal.WithLabelValues("jd_post_yes", "success")))

	count, err := testutil.GatherAndCount(reg, "jobpost_collaborator_call_duration_seconds")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}
