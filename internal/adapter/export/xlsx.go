// Package export renders admin candidate views as spreadsheets.
package export

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fairyhunter13/softrate-ats/internal/domain"
	"github.com/fairyhunter13/softrate-ats/internal/usecase"
)

const (
	summarySheet    = "Summary"
	candidatesSheet = "Candidates"

	// ContentType is the media type of WriteXLSX output.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var candidateHeaders = []string{
	"Candidate", "Email", "University", "Role", "Stage", "Status", "Resume Score", "Final Score", "Disqualification", "Applied At",
}

// WriteXLSX writes a workbook with a Summary sheet and one Candidates row per
// application.
func WriteXLSX(w io.Writer, rows []usecase.CandidateRow, generatedAt time.Time) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("op=export.xlsx: %w", err)
	}
	if _, err := f.NewSheet(candidatesSheet); err != nil {
		return fmt.Errorf("op=export.xlsx: %w", err)
	}
	if err := writeSummary(f, usecase.Summarize(rows), generatedAt); err != nil {
		return fmt.Errorf("op=export.xlsx summary: %w", err)
	}
	if err := writeCandidates(f, rows); err != nil {
		return fmt.Errorf("op=export.xlsx candidates: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("op=export.xlsx write: %w", err)
	}
	return nil
}

func headerStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
}

func writeSummary(f *excelize.File, s usecase.Summary, generatedAt time.Time) error {
	label, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 24)
	_ = f.SetColWidth(summarySheet, "B", "B", 24)

	lines := [][2]any{
		{"Generated At", generatedAt.UTC().Format(time.RFC3339)},
		{"Candidates", s.Candidates},
		{"Applications", s.Applications},
	}
	statuses := make([]string, 0, len(s.ByStatus))
	for st := range s.ByStatus {
		statuses = append(statuses, st)
	}
	sort.Strings(statuses)
	for _, st := range statuses {
		lines = append(lines, [2]any{st, s.ByStatus[st]})
	}
	for i, l := range lines {
		a, _ := excelize.CoordinatesToCellName(1, i+1)
		b, _ := excelize.CoordinatesToCellName(2, i+1)
		if err := f.SetCellValue(summarySheet, a, l[0]); err != nil {
			return err
		}
		if err := f.SetCellValue(summarySheet, b, l[1]); err != nil {
			return err
		}
		_ = f.SetCellStyle(summarySheet, a, a, label)
	}
	return nil
}

func writeCandidates(f *excelize.File, rows []usecase.CandidateRow) error {
	hs, err := headerStyle(f)
	if err != nil {
		return err
	}
	styles := map[string]string{
		string(domain.StatusQualified):    "C6EFCE",
		string(domain.StatusIncomplete):   "FFEB9C",
		string(domain.StatusRejected):     "FFC7CE",
		string(domain.StatusDisqualified): "FF9999",
	}
	statusStyle := map[string]int{}
	for st, color := range styles {
		id, err := f.NewStyle(&excelize.Style{Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1}})
		if err != nil {
			return err
		}
		statusStyle[st] = id
	}

	for i, h := range candidateHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(candidatesSheet, cell, h); err != nil {
			return err
		}
		_ = f.SetCellStyle(candidatesSheet, cell, cell, hs)
	}
	_ = f.SetColWidth(candidatesSheet, "A", "D", 24)
	_ = f.SetColWidth(candidatesSheet, "E", "H", 12)
	_ = f.SetColWidth(candidatesSheet, "I", "J", 28)
	if err := f.SetPanes(candidatesSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}

	for i, r := range rows {
		row := i + 2
		applied := ""
		if !r.AppliedAt.IsZero() {
			applied = r.AppliedAt.UTC().Format(time.RFC3339)
		}
		values := []any{
			r.Name, r.Email, r.University, r.RoleTitle, r.Stage, r.Status,
			optional(r.ResumeScore), optional(r.FinalScore), r.Disqualified, applied,
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(candidatesSheet, start, &values); err != nil {
			return err
		}
		if id, ok := statusStyle[r.Status]; ok {
			cell, _ := excelize.CoordinatesToCellName(6, row)
			_ = f.SetCellStyle(candidatesSheet, cell, cell, id)
		}
	}
	if len(rows) > 0 {
		end, _ := excelize.CoordinatesToCellName(len(candidateHeaders), len(rows)+1)
		if err := f.AutoFilter(candidatesSheet, "A1:"+end, nil); err != nil {
			return err
		}
	}
	return nil
}

func optional(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}
