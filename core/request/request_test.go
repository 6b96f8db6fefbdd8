package request

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jayquinn/interview-scheduler/core/model"
	"github.com/jayquinn/interview-scheduler/core/schederr"
)

const sampleYAML = `
activities:
  discussion: {mode: batched, duration_minutes: 30, room_type: discussion_room, min_capacity: 4, max_capacity: 6}
  prep:       {mode: parallel, duration_minutes: 5, room_type: prep_room}
  interview:  {mode: individual, duration_minutes: 15, room_type: interview_room}
activity_order: [discussion, prep, interview]
rooms:
  discussion_room: {count: 2, capacity: 6}
  prep_room: {count: 1, capacity: 2}
  interview_room: {count: 2, capacity: 1}
precedence_rules:
  - {predecessor: prep, successor: interview, gap_minutes: 0, adjacent: true}
operating_hours: {start: "09:00", end: "17:30"}
tuning:
  global_gap_minutes: 5
  max_stay_hours: 8
  scheduling_granularity_minutes: 5
  time_limit_seconds: 60
  hard_cap_percentile: 90
  strategy: balanced
days:
  - date: "2025-07-02"
    job_headcounts: {JOB01: 24}
    operating_hours: {start: "09:00", end: "18:00"}
    hard_cap_hours: 6
  - date: "2025-07-01"
    job_headcounts: {JOB01: 12, JOB02: 6}
    rooms:
      discussion_room: {count: 1, capacity: 6}
      prep_room: {count: 1, capacity: 2}
      interview_room: {count: 3, capacity: 1}
`

func decodeYAML(t *testing.T, doc string) *Request {
	t.Helper()
	req, err := Decode(strings.NewReader(doc), FormatYAML)
	require.NoError(t, err)
	return req
}

func baseGlobal() model.GlobalConfig {
	var g model.GlobalConfig
	g.SetDefaults()
	return g
}

func TestDecodeYAMLRequest(t *testing.T) {
	req := decodeYAML(t, sampleYAML)
	g, err := req.Global(baseGlobal())
	require.NoError(t, err)
	assert.Equal(t, 5, g.GlobalGap)
	assert.Equal(t, 8.0, g.MaxStayHours)
	assert.Equal(t, model.Window{Start: model.Clock(9, 0), End: model.Clock(17, 30)}, g.Hours)

	days, err := req.DateConfigs(g)
	require.NoError(t, err)
	require.Len(t, days, 2)

	first, second := days[0], days[1]
	assert.Equal(t, "2025-07-01", first.Key())
	assert.Equal(t, 18, first.TotalCandidates())
	assert.Len(t, first.RoomsOfType("interview_room"), 3)
	assert.Equal(t, g.Hours, first.Hours)
	assert.Zero(t, first.StayCapOverride)

	assert.Equal(t, "2025-07-02", second.Key())
	assert.Equal(t, model.Clock(18, 0), second.Hours.End)
	assert.Equal(t, 360, second.StayCapOverride)
	assert.Len(t, second.RoomsOfType("interview_room"), 2)

	require.Len(t, first.Activities, 3)
	assert.Equal(t, "discussion", first.Activities[0].Name)
	assert.Equal(t, model.ModeBatched, first.Activities[0].Mode)
	assert.Equal(t, model.ModeParallel, first.Activities[1].Mode)
	assert.Equal(t, model.ModeIndividual, first.Activities[2].Mode)
	require.Len(t, first.Precedence, 1)
	assert.True(t, first.Precedence[0].Adjacent)
}

func TestDecodeJSONRequest(t *testing.T) {
	doc := `{
  "activities": {
    "interview": {"mode": "individual", "duration_minutes": 20, "room_type": "interview_room"},
    "essay": {"mode": "parallel", "duration_minutes": 40, "room_type": "hall"}
  },
  "rooms": {"interview_room": {"count": 2, "capacity": 1}, "hall": {"count": 1, "capacity": 30}},
  "days": [{"date": "2025-07-03", "job_headcounts": {"JOB01": 4}}]
}`
	req, err := Decode(strings.NewReader(doc), FormatJSON)
	require.NoError(t, err)
	days, err := req.DateConfigs(baseGlobal())
	require.NoError(t, err)
	require.Len(t, days, 1)
	// Without activity_order activities follow name order.
	assert.Equal(t, "essay", days[0].Activities[0].Name)
	assert.Equal(t, "interview", days[0].Activities[1].Name)
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode(strings.NewReader(sampleYAML+"bogus: 1\n"), FormatYAML)
	require.Error(t, err)
	assert.True(t, errors.Is(err, schederr.ErrConfig))

	_, err = Decode(strings.NewReader(`{"bogus": 1}`), FormatJSON)
	require.Error(t, err)
}

func TestValidateReportsFields(t *testing.T) {
	doc := `
activities:
  interview: {mode: individual, duration_minutes: 0, room_type: interview_room}
rooms:
  interview_room: {count: 1, capacity: 1}
days:
  - date: "07/01/2025"
    job_headcounts: {JOB01: 1}
`
	_, err := Decode(strings.NewReader(doc), FormatYAML)
	require.Error(t, err)
	assert.True(t, errors.Is(err, schederr.ErrConfig))
	assert.Contains(t, err.Error(), "Duration failed required")
	assert.Contains(t, err.Error(), "Date failed datetime")
}

func TestUnknownRoomType(t *testing.T) {
	doc := strings.Replace(sampleYAML, "room_type: prep_room", "room_type: lab", 1)
	req := decodeYAML(t, doc)
	g := baseGlobal()
	days, err := req.DateConfigs(g)
	require.NoError(t, err)
	require.NotEmpty(t, days)
	err = days[0].Validate(g)
	require.Error(t, err)
	assert.True(t, errors.Is(err, schederr.ErrConfig))
	assert.Contains(t, err.Error(), `unknown room type "lab"`)
}

func TestInvertedGroupBoundsFailDayValidation(t *testing.T) {
	doc := strings.Replace(sampleYAML, "min_capacity: 4, max_capacity: 6", "min_capacity: 8, max_capacity: 6", 1)
	req := decodeYAML(t, doc)
	g := baseGlobal()
	days, err := req.DateConfigs(g)
	require.NoError(t, err)
	require.NotEmpty(t, days)
	err = days[0].Validate(g)
	require.Error(t, err)
	assert.True(t, errors.Is(err, schederr.ErrConfig))
	assert.Contains(t, err.Error(), "discussion")
}

func TestActivityOrderErrors(t *testing.T) {
	req := decodeYAML(t, strings.Replace(sampleYAML, "[discussion, prep, interview]", "[discussion, lunch]", 1))
	_, err := req.Catalog()
	require.Error(t, err)
	assert.True(t, errors.Is(err, schederr.ErrConfig))

	req = decodeYAML(t, strings.Replace(sampleYAML, "[discussion, prep, interview]", "[prep, prep]", 1))
	_, err = req.Catalog()
	require.Error(t, err)
}

func TestDuplicateDays(t *testing.T) {
	req := decodeYAML(t, strings.Replace(sampleYAML, `"2025-07-02"`, `"2025-07-01"`, 1))
	_, err := req.DateConfigs(baseGlobal())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listed twice")
}

func TestGlobalTuningOverrides(t *testing.T) {
	base := baseGlobal()
	base.Strategy = "late_heavy"
	base.StrategyConf = map[string]any{"morning_share": 0.2}
	base.GroupBounds = map[string]model.Bounds{"debate": {Min: 2, Max: 4}}
	doc := sampleYAML + `
`
	req := decodeYAML(t, doc)
	req.Tuning.GroupBounds = map[string]model.Bounds{"discussion": {Min: 3, Max: 5}}
	req.Tuning.Lunch = &ClockWindow{Start: "12:30", End: "13:30"}
	g, err := req.Global(base)
	require.NoError(t, err)
	assert.Equal(t, "balanced", g.Strategy)
	assert.Nil(t, g.StrategyConf)
	assert.Equal(t, model.Bounds{Min: 2, Max: 4}, g.GroupBounds["debate"])
	assert.Equal(t, model.Bounds{Min: 3, Max: 5}, g.GroupBounds["discussion"])
	assert.Equal(t, model.Clock(12, 30), g.Lunch.Start)

	req.Tuning.Granularity = 7
	_, err = req.Global(base)
	require.Error(t, err)
}

func TestLoadPicksFormatByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "request.yml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))
	req, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, req.Days, 2)

	assert.Equal(t, FormatJSON, FormatOf("x.json"))
	assert.Equal(t, FormatYAML, FormatOf("X.YAML"))

	_, err = Load(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}
