// Package export writes schedule results in machine-readable formats.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/jayquinn/interview-scheduler/core/model"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat maps a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

var csvHeader = []string{
	"date", "candidate_id", "job_code", "activity_name", "room_name",
	"start", "end", "group_id", "chain", "step",
}

// Write encodes res to w using f.
func Write(w io.Writer, f Format, res model.ScheduleResult) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, res.Items)
	default:
		return WriteJSON(w, res)
	}
}

// WriteJSON writes the full result as indented JSON.
func WriteJSON(w io.Writer, res model.ScheduleResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// WriteCSV writes one row per schedule item with a header line.
func WriteCSV(w io.Writer, items []model.ScheduleItem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, it := range items {
		step := ""
		if it.Stage.Chain != "" {
			step = strconv.Itoa(it.Stage.Step)
		}
		rec := []string{
			it.Date.Format(model.DateLayout),
			it.CandidateID,
			it.JobCode,
			it.Activity,
			it.Room,
			it.Start.String(),
			it.End.String(),
			it.GroupID,
			it.Stage.Chain,
			step,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
