package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jayquinn/interview-scheduler/core/factory"
	coremetrics "github.com/jayquinn/interview-scheduler/core/metrics"
	"github.com/jayquinn/interview-scheduler/core/model"
)

type bodyRecorder struct {
	mu     sync.Mutex
	bodies []string
}

func (b *bodyRecorder) handler(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	b.mu.Lock()
	b.bodies = append(b.bodies, strings.TrimSpace(string(data)))
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func sampleDay() model.DayResult {
	res := model.DayResult{
		Date:   time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		Status: model.StatusPartial,
	}
	res.Diagnostics = model.Diagnostics{
		Candidates:  6,
		Placed:      5,
		Groups:      1,
		Dummies:     0,
		HardCap:     360,
		Stats:       model.StayStats{Count: 5, Mean: 92.5, P90: 110, Max: 120},
		Unscheduled: []model.Unscheduled{{CandidateID: "JOB01-006", Reason: "room_busy"}},
		Elapsed:     1500 * time.Millisecond,
	}
	return res
}

func TestInfluxSink_RecordDay(t *testing.T) {
	rec := &bodyRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL+"/api/v2/write", "token", "org", "bucket")
	defer sink.Close()
	res := sampleDay()
	require.NoError(t, sink.RecordDay(res))

	p := write.NewPointWithMeasurement("schedule_day").
		AddTag("date", "2025-07-01").
		AddTag("status", "PARTIAL").
		AddField("candidates", 6).
		AddField("placed", 5).
		AddField("unscheduled", 1).
		AddField("groups", 1).
		AddField("dummies", 0).
		AddField("hard_cap_minutes", 360).
		AddField("cap_violations", 0).
		AddField("stay_mean", 92.5).
		AddField("stay_p90", 110.0).
		AddField("stay_max", 120.0).
		AddField("elapsed_ms", int64(1500)).
		SetTime(res.Date)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	require.Len(t, rec.bodies, 1)
	assert.Equal(t, expected, rec.bodies[0])
}

func TestInfluxSink_RecordPhase(t *testing.T) {
	rec := &bodyRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()
	ph := model.PhaseStats{Phase: 2, Cap: 360, Status: model.StatusSuccess, Placed: 6, Adopted: true,
		Stats: model.StayStats{Mean: 100, P90: 150, Max: 200}}
	require.NoError(t, sink.RecordPhase("2025-07-01", ph))

	p := write.NewPointWithMeasurement("schedule_phase").
		AddTag("date", "2025-07-01").
		AddTag("phase", "2").
		AddTag("status", "SUCCESS").
		AddTag("adopted", "true").
		AddField("cap_minutes", 360).
		AddField("placed", 6).
		AddField("stay_mean", 100.0).
		AddField("stay_p90", 150.0).
		AddField("stay_max", 200.0).
		SetTime(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	require.Len(t, rec.bodies, 1)
	assert.Equal(t, expected, rec.bodies[0])

	assert.Error(t, sink.RecordPhase("not-a-date", ph))
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	_, isNop := sink.(coremetrics.NopSink)
	assert.True(t, isNop, "expected NopSink on failing health check")
	assert.True(t, called, "health endpoint not called")
}

func TestInfluxFactory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink, err := coremetrics.NewSink([]factory.ModuleConfig{{
		Type: "influx",
		Conf: map[string]any{"url": srv.URL, "token": "t", "org": "o", "bucket": "b"},
	}})
	require.NoError(t, err)
	assert.IsType(t, coremetrics.NopSink{}, sink)

	_, err = coremetrics.NewSink([]factory.ModuleConfig{{Type: "influx", Conf: map[string]any{"unknown": 1}}})
	assert.Error(t, err)
}
