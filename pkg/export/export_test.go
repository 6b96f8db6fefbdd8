package export

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jayquinn/interview-scheduler/core/model"
)

func sampleResult() model.ScheduleResult {
	date := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	return model.ScheduleResult{
		RunID:  "run-1",
		Status: model.StatusSuccess,
		Items: []model.ScheduleItem{
			{Date: date, CandidateID: "JOB01-001", JobCode: "JOB01", Activity: "discussion", Room: "discussion_room_A",
				Start: model.Clock(9, 0), End: model.Clock(9, 30), GroupID: "JOB01_G1"},
			{Date: date, CandidateID: "JOB01-001", JobCode: "JOB01", Activity: "prep", Room: "prep_room_A",
				Start: model.Clock(9, 35), End: model.Clock(9, 45), Stage: model.Stage{Chain: "prep>interview", Step: 1}},
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("csv")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sampleResult()))
	want := "date,candidate_id,job_code,activity_name,room_name,start,end,group_id,chain,step\n" +
		"2025-07-01,JOB01-001,JOB01,discussion,discussion_room_A,09:00,09:30,JOB01_G1,,\n" +
		"2025-07-01,JOB01-001,JOB01,prep,prep_room_A,09:35,09:45,,prep>interview,1\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sampleResult()))
	var got model.ScheduleResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "run-1", got.RunID)
	require.Len(t, got.Items, 2)
	assert.Equal(t, model.Clock(9, 35), got.Items[1].Start)
}
