package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/jayquinn/interview-scheduler/core/metrics"
	"github.com/jayquinn/interview-scheduler/core/model"
	"github.com/jayquinn/interview-scheduler/infra/logger"
)

// InfluxSink writes day and phase summaries to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a NopSink
// if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordDay writes one schedule_day point stamped with the day's date.
func (s *InfluxSink) RecordDay(res model.DayResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	d := res.Diagnostics
	p := write.NewPointWithMeasurement("schedule_day").
		AddTag("date", res.Key()).
		AddTag("status", res.Status.String()).
		AddField("candidates", d.Candidates).
		AddField("placed", d.Placed).
		AddField("unscheduled", len(d.Unscheduled)).
		AddField("groups", d.Groups).
		AddField("dummies", d.Dummies).
		AddField("hard_cap_minutes", d.HardCap).
		AddField("cap_violations", len(d.CapViolations)).
		AddField("stay_mean", round3(d.Stats.Mean)).
		AddField("stay_p90", round3(d.Stats.P90)).
		AddField("stay_max", round3(d.Stats.Max)).
		AddField("elapsed_ms", d.Elapsed.Milliseconds()).
		SetTime(res.Date)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordPhase writes one schedule_phase point.
func (s *InfluxSink) RecordPhase(date string, ph model.PhaseStats) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	at, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return err
	}
	p := write.NewPointWithMeasurement("schedule_phase").
		AddTag("date", date).
		AddTag("phase", strconv.Itoa(ph.Phase)).
		AddTag("status", ph.Status.String()).
		AddTag("adopted", strconv.FormatBool(ph.Adopted)).
		AddField("cap_minutes", ph.Cap).
		AddField("placed", ph.Placed).
		AddField("stay_mean", round3(ph.Stats.Mean)).
		AddField("stay_p90", round3(ph.Stats.P90)).
		AddField("stay_max", round3(ph.Stats.Max)).
		SetTime(at)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
