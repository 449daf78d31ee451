// Package sink writes finished run reports to their destination.
package sink

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zeusync/corestate/internal/core/aggregator"
	"github.com/zeusync/corestate/internal/core/config"
	"github.com/zeusync/corestate/internal/core/window"
)

const (
	PatternsFile = "core_state_patterns.csv"
	SummaryFile  = "state_pattern_summary.csv"
	DatabaseFile = "core_state.db"
)

var ErrUnknownFormat = errors.New("unknown output format")

var (
	PatternsHeader = []string{"Event_ID", "Instruction_Count", "Start_Time", "Core_ID", "Branch_IP", "Branch_Taken", "States"}
	SummaryHeader  = []string{"Branch_IP", "Count", "Avg_Idle_Position", "Idle_Time_Percent", "Branch_Taken_Ratio"}
)

type Sink interface {
	Write(ctx context.Context, report aggregator.Report) error
}

// New returns the sink for format rooted at dir.
func New(format, dir string) (Sink, error) {
	switch format {
	case config.FormatCSV:
		return &CSVSink{Dir: dir}, nil
	case config.FormatSQLite:
		return &SQLiteSink{Path: filepath.Join(dir, DatabaseFile)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// FormatIP renders an instruction address as lower-case 0x hex.
func FormatIP(ip uint64) string {
	return "0x" + strconv.FormatUint(ip, 16)
}

// FormatBool renders booleans the way downstream notebooks expect them.
func FormatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// FormatStates joins the sampled state ordinals with commas.
func FormatStates(rec window.Record) string {
	var sb strings.Builder
	for i, s := range rec.Samples {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(int(s.State)))
	}
	return sb.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// PatternRow is the raw-records dataset row for rec.
func PatternRow(rec window.Record) []string {
	return []string{
		strconv.FormatUint(rec.EventID, 10),
		strconv.FormatUint(rec.InstructionCount, 10),
		strconv.FormatInt(rec.StartTime, 10),
		strconv.Itoa(rec.CoreID),
		FormatIP(rec.IP),
		FormatBool(rec.BranchTaken),
		FormatStates(rec),
	}
}

// SummaryRow is the summary dataset row for row.
func SummaryRow(row aggregator.SummaryRow) []string {
	return []string{
		FormatIP(row.IP),
		strconv.Itoa(row.Count),
		formatFloat(row.AvgIdlePosition),
		formatFloat(row.IdleTimePercent),
		formatFloat(row.BranchTakenRatio),
	}
}
