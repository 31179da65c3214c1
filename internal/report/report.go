// Package report exports station timelines as Excel workbooks.
package report

import (
	"fmt"
	"io"
	"time"

	"stationhours/internal/availability"
	"stationhours/internal/model"
	"stationhours/internal/service"
)

const (
	SummarySheet  = "Summary"
	SegmentsSheet = "Segments"
)

// Filename returns the download name of a week report.
func Filename(st *model.Station, from availability.Date) string {
	return fmt.Sprintf("station_%d_%s.xlsx", st.ID, from)
}

// WriteWeek writes a workbook with a per-day summary sheet and a sheet of all segments.
func WriteWeek(out io.Writer, st *model.Station, plans []service.DayPlan, generatedAt time.Time) error {
	w := newSheetWriter()
	defer func() { _ = w.close() }()

	if err := writeSummary(w, st, plans, generatedAt); err != nil {
		return fmt.Errorf("summary sheet: %w", err)
	}
	if err := writeSegments(w, plans); err != nil {
		return fmt.Errorf("segments sheet: %w", err)
	}
	return w.save(out)
}

func writeSummary(w *sheetWriter, st *model.Station, plans []service.DayPlan, generatedAt time.Time) error {
	if err := w.addSheet(SummarySheet); err != nil {
		return err
	}
	if err := w.write([]any{"Station", st.Name}); err != nil {
		return err
	}
	if err := w.write([]any{"Generated", generatedAt.Format("2006-01-02 15:04 MST")}); err != nil {
		return err
	}
	w.row++

	if err := w.values("Date", "Weekday", "Open minutes", "First open", "Last close", "Live"); err != nil {
		return err
	}
	if err := w.styleRow(w.row-1, 6, w.headerID); err != nil {
		return err
	}

	for _, p := range plans {
		d := summarize(p.Segments)
		first, last := "", ""
		if d.openMinutes > 0 {
			first = availability.FormatMinutes(d.firstOpen)
			last = availability.FormatMinutes(d.lastClose)
		}
		row := []any{p.Date.String(), p.Weekday.String(), d.openMinutes, first, last, p.Live}
		if err := w.stateRow(row, d.openMinutes > 0); err != nil {
			return err
		}
	}
	return w.widths(12, 12, 14, 12, 12, 8)
}

func writeSegments(w *sheetWriter, plans []service.DayPlan) error {
	if err := w.addSheet(SegmentsSheet); err != nil {
		return err
	}
	if err := w.header("Date", "Weekday", "From", "To", "State", "Minutes"); err != nil {
		return err
	}

	for _, p := range plans {
		for _, seg := range p.Segments {
			state := "closed"
			if seg.Open {
				state = "open"
			}
			row := []any{
				p.Date.String(),
				p.Weekday.String(),
				availability.FormatMinutes(seg.StartMinute),
				availability.FormatMinutes(seg.EndMinute),
				state,
				seg.Duration(),
			}
			if err := w.stateRow(row, seg.Open); err != nil {
				return err
			}
		}
	}
	return w.widths(12, 12, 8, 8, 8, 10)
}

type daySummary struct {
	openMinutes int
	firstOpen   int
	lastClose   int
}

func summarize(segments []availability.Segment) daySummary {
	var d daySummary
	for _, seg := range segments {
		if !seg.Open {
			continue
		}
		if d.openMinutes == 0 {
			d.firstOpen = seg.StartMinute
		}
		d.openMinutes += seg.Duration()
		d.lastClose = seg.EndMinute
	}
	return d
}
