package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/regatta-tracker/internal/entity"
	"github.com/joseph-ayodele/regatta-tracker/internal/regatta"
	"github.com/joseph-ayodele/regatta-tracker/internal/repository"
)

// Service produces XLSX bytes from the job audit log and from single results.
type Service struct {
	jobs   repository.ExtractJobRepository
	logger *slog.Logger
}

func NewService(jobs repository.ExtractJobRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobs: jobs, logger: logger}
}

// ExportJobsXLSX returns the job history matching filter as a workbook.
func (s *Service) ExportJobsXLSX(ctx context.Context, filter entity.JobFilter) ([]byte, error) {
	start := time.Now()

	jobs, err := s.jobs.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	b, err := JobsWorkbook(jobs)
	if err != nil {
		return nil, err
	}

	s.logger.Info("export.xlsx.ok",
		"sheet", jobsSheet,
		"rows", len(jobs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return b, nil
}

const (
	jobsSheet   = "Jobs"
	rosterSheet = "Results"
)

// JobsWorkbook renders jobs as one row each.
func JobsWorkbook(jobs []*entity.ExtractJob) ([]byte, error) {
	f, err := newBook(jobsSheet, []string{
		"Started",
		"Kind",
		"Status",
		"Sail Number",
		"Regatta",
		"Rank",
		"Field Size",
		"Amount",
		"Confidence",
		"Method",
		"Feedback",
		"Job ID",
	})
	if err != nil {
		return nil, err
	}

	for i, j := range jobs {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(jobsSheet, cell, v)
		}
		write(1, j.StartedAt.Format("2006-01-02 15:04"))
		write(2, string(j.Kind))
		write(3, string(j.Status))
		write(4, deref(j.SailNumber))
		write(5, deref(j.RegattaName))
		if j.Rank != nil {
			write(6, *j.Rank)
		}
		if j.TotalParticipants != nil {
			write(7, *j.TotalParticipants)
		}
		if j.Amount != nil {
			write(8, *j.Amount)
		}
		write(9, deref(j.Confidence))
		write(10, deref(j.Method))
		feedback := deref(j.Feedback)
		if feedback == "" {
			feedback = deref(j.ErrorMessage)
		}
		write(11, truncate(feedback, 140))
		write(12, j.ID.String())
	}

	_ = f.SetColWidth(jobsSheet, "A", "A", 17) // started
	_ = f.SetColWidth(jobsSheet, "B", "C", 11)
	_ = f.SetColWidth(jobsSheet, "D", "D", 14)
	_ = f.SetColWidth(jobsSheet, "E", "E", 32) // regatta
	_ = f.SetColWidth(jobsSheet, "F", "J", 11)
	_ = f.SetColWidth(jobsSheet, "K", "K", 60) // feedback
	_ = f.SetColWidth(jobsSheet, "L", "L", 38)
	return writeBook(f)
}

// RosterWorkbook renders the full result table of one regatta, with the
// searched participant's row highlighted.
func RosterWorkbook(res regatta.Result) ([]byte, error) {
	f, err := newBook(rosterSheet, []string{"Rank", "Sail Number", "Name"})
	if err != nil {
		return nil, err
	}

	var highlight int
	if res.Participant != nil {
		highlight, _ = f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true},
			Fill: excelize.Fill{Type: "pattern", Color: []string{"FFF2CC"}, Pattern: 1},
		})
	}

	for i, r := range res.AllResults {
		row := i + 2
		_ = f.SetSheetRow(rosterSheet, fmt.Sprintf("A%d", row), &[]any{r.Rank, r.SailNumber, r.Name})
		if res.Participant != nil && regatta.NormalizeSailNumber(r.SailNumber) == regatta.NormalizeSailNumber(res.Participant.SailNumber) {
			_ = f.SetCellStyle(rosterSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("C%d", row), highlight)
		}
	}

	// metadata block to the right of the table
	meta := [][]any{
		{"Regatta", res.Metadata.Name},
		{"Date", res.Metadata.Date},
		{"Class", res.Metadata.BoatClass},
		{"Races", res.Metadata.RaceCount},
		{"Participants", res.Metadata.TotalParticipants},
		{"Confidence", string(res.Confidence)},
	}
	for i, m := range meta {
		_ = f.SetSheetRow(rosterSheet, fmt.Sprintf("E%d", i+1), &m)
	}

	_ = f.SetColWidth(rosterSheet, "A", "A", 8)
	_ = f.SetColWidth(rosterSheet, "B", "B", 14)
	_ = f.SetColWidth(rosterSheet, "C", "C", 36)
	_ = f.SetColWidth(rosterSheet, "E", "E", 14)
	_ = f.SetColWidth(rosterSheet, "F", "F", 32)
	return writeBook(f)
}

func newBook(sheet string, headers []string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	return f, nil
}

func writeBook(f *excelize.File) ([]byte, error) {
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
