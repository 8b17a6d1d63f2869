package service

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	sessionsSheet = "Sessions"
	summarySheet  = "Summary"
)

var sessionHeaders = []string{"Day", "Date", "Start", "End", "Session", "Hours", "Focus"}
var summaryHeaders = []string{"#", "Node", "Estimated hours", "Focus"}

// ScheduleWorkbook renders a SchedulePlan as an xlsx file.
type ScheduleWorkbook struct{}

// NewScheduleWorkbook creates a workbook renderer.
func NewScheduleWorkbook() *ScheduleWorkbook {
	return &ScheduleWorkbook{}
}

// Generate writes a Sessions sheet with one row per session and a Summary
// sheet with the per-node estimates and totals.
func (g *ScheduleWorkbook) Generate(plan *SchedulePlan) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sessionsSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("create summary sheet: %w", err)
	}

	styles, err := newWorkbookStyles(f)
	if err != nil {
		return nil, fmt.Errorf("create styles: %w", err)
	}

	if err := g.writeHeaders(f, sessionsSheet, sessionHeaders, styles.header); err != nil {
		return nil, fmt.Errorf("write session headers: %w", err)
	}
	for i, s := range plan.Sessions {
		end := s.EndDate()
		row := []interface{}{
			i + 1,
			s.StartDate.Format("2006-01-02"),
			s.StartDate.Format("15:04"),
			end.Format("15:04"),
			s.Title,
			s.DurationHours,
			s.Description,
		}
		if err := g.writeRow(f, sessionsSheet, i+2, row, styles.row(i)); err != nil {
			return nil, fmt.Errorf("write session row: %w", err)
		}
	}

	if err := g.writeHeaders(f, summarySheet, summaryHeaders, styles.header); err != nil {
		return nil, fmt.Errorf("write summary headers: %w", err)
	}
	for i, n := range plan.Schedule.Nodes {
		row := []interface{}{i + 1, n.NodeTitle, n.EstimatedHours, n.Description}
		if err := g.writeRow(f, summarySheet, i+2, row, styles.row(i)); err != nil {
			return nil, fmt.Errorf("write summary row: %w", err)
		}
	}

	totals := len(plan.Schedule.Nodes) + 3
	footer := [][]interface{}{
		{"Total hours", plan.Schedule.TotalHours},
		{"Daily hours", plan.DailyHours},
		{"Suggested daily hours", plan.Schedule.SuggestedDailyHours},
		{"Sessions", len(plan.Sessions)},
	}
	for i, r := range footer {
		if err := g.writeRow(f, summarySheet, totals+i, append([]interface{}{nil}, r...), styles.total); err != nil {
			return nil, fmt.Errorf("write totals: %w", err)
		}
	}

	if err := g.setWidths(f, sessionsSheet, []float64{6, 12, 8, 8, 40, 8, 60}); err != nil {
		return nil, fmt.Errorf("set widths: %w", err)
	}
	if err := g.setWidths(f, summarySheet, []float64{6, 40, 16, 60}); err != nil {
		return nil, fmt.Errorf("set widths: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write buffer: %w", err)
	}
	return buf, nil
}

type workbookStyles struct {
	header, odd, even, total int
}

func (s workbookStyles) row(i int) int {
	if i%2 == 1 {
		return s.odd
	}
	return s.even
}

func newWorkbookStyles(f *excelize.File) (workbookStyles, error) {
	var s workbookStyles
	var err error

	border := func(color string) []excelize.Border {
		return []excelize.Border{
			{Type: "left", Color: color, Style: 1},
			{Type: "top", Color: color, Style: 1},
			{Type: "bottom", Color: color, Style: 1},
			{Type: "right", Color: color, Style: 1},
		}
	}

	s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border("000000"),
	})
	if err != nil {
		return s, err
	}

	s.odd, err = f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"F2F2F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		Border:    border("D9D9D9"),
	})
	if err != nil {
		return s, err
	}

	s.even, err = f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"FFFFFF"}, Pattern: 1},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		Border:    border("D9D9D9"),
	})
	if err != nil {
		return s, err
	}

	s.total, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	return s, err
}

func (g *ScheduleWorkbook) writeHeaders(f *excelize.File, sheet string, headers []string, style int) error {
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}
	return nil
}

func (g *ScheduleWorkbook) writeRow(f *excelize.File, sheet string, row int, values []interface{}, style int) error {
	for col, v := range values {
		cell, _ := excelize.CoordinatesToCellName(col+1, row)
		if v != nil {
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}
	return nil
}

func (g *ScheduleWorkbook) setWidths(f *excelize.File, sheet string, widths []float64) error {
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return err
		}
	}
	return nil
}
