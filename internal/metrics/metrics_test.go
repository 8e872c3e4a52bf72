// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	io_prometheus_client "github.com/prometheus/client_model/go"
)

// histogramCount extracts the sample count from a Prometheus histogram
func histogramCount(t *testing.T, observer prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := observer.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T is not a metric", observer)
	}
	var m io_prometheus_client.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

type kindError struct{ kind string }

func (e kindError) Error() string { return "kind error" }
func (e kindError) Kind() string  { return e.kind }

func TestRecordDBQueryLabelsByKind(t *testing.T) {
	before := testutil.ToFloat64(DBQueryErrors.WithLabelValues("test_op", "conflict"))

	wrapped := fmt.Errorf("cast vote: %w", kindError{kind: "conflict"})
	RecordDBQuery("test_op", time.Millisecond, wrapped)

	after := testutil.ToFloat64(DBQueryErrors.WithLabelValues("test_op", "conflict"))
	if after != before+1 {
		t.Errorf("conflict errors = %v, want %v", after, before+1)
	}
}

func TestRecordDBQueryObservesDuration(t *testing.T) {
	before := histogramCount(t, DBQueryDuration.WithLabelValues("test_duration"))

	RecordDBQuery("test_duration", 3*time.Millisecond, nil)
	RecordDBQuery("test_duration", time.Millisecond, errors.New("failed"))

	if got := histogramCount(t, DBQueryDuration.WithLabelValues("test_duration")); got != before+2 {
		t.Errorf("duration samples = %d, want %d", got, before+2)
	}
}

func TestRecordAPIRequestObservesDuration(t *testing.T) {
	before := histogramCount(t, APIRequestDuration.WithLabelValues("GET", "/test/duration"))

	RecordAPIRequest("GET", "/test/duration", "200", 5*time.Millisecond)

	if got := histogramCount(t, APIRequestDuration.WithLabelValues("GET", "/test/duration")); got != before+1 {
		t.Errorf("duration samples = %d, want %d", got, before+1)
	}
}

func TestRecordDBQueryUnknownKind(t *testing.T) {
	before := testutil.ToFloat64(DBQueryErrors.WithLabelValues("test_unknown", "unknown"))
	RecordDBQuery("test_unknown", time.Millisecond, errors.New("driver exploded"))
	if got := testutil.ToFloat64(DBQueryErrors.WithLabelValues("test_unknown", "unknown")); got != before+1 {
		t.Errorf("unknown errors = %v, want %v", got, before+1)
	}
}

func TestRecordEventPublish(t *testing.T) {
	ok := testutil.ToFloat64(EventsPublished.WithLabelValues("success"))
	fail := testutil.ToFloat64(EventsPublished.WithLabelValues("failure"))

	RecordEventPublish(nil)
	RecordEventPublish(errors.New("nats down"))

	if got := testutil.ToFloat64(EventsPublished.WithLabelValues("success")); got != ok+1 {
		t.Errorf("success = %v, want %v", got, ok+1)
	}
	if got := testutil.ToFloat64(EventsPublished.WithLabelValues("failure")); got != fail+1 {
		t.Errorf("failure = %v, want %v", got, fail+1)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("active = %v, want %v", got, before+1)
	}
	TrackActiveRequest(false)
}
