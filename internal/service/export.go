package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/target/dispatch-api/internal/core"
	"github.com/target/dispatch-api/internal/domain/auth"
	"github.com/target/dispatch-api/internal/domain/dashboard"
	"github.com/target/dispatch-api/internal/domain/model"
)

const (
	exportSheet   = "Jobs"
	summarySheet  = "Summary"
	exportDateFmt = "2006-01-02 15:04"
)

var exportHeader = []any{
	"Job ID", "Created", "Status", "Customer", "Phone", "Address", "Region",
	"Subcontractor", "Issue", "Materials", "Sale Price", "Parts Cost", "Profit", "Receipt", "Notes",
}

// jobLister is the slice of DashboardService the exporter needs.
type jobLister interface {
	Jobs(ctx context.Context, actor auth.Actor, f dashboard.Filter) ([]model.Job, error)
	Now() time.Time
}

// ExportServiceOptions groups dependencies for ExportService.
type ExportServiceOptions struct {
	Jobs           jobLister
	Subcontractors core.SubcontractorRepository
}

// ExportService renders the filtered dashboard as an XLSX workbook.
type ExportService struct {
	jobs jobLister
	subs core.SubcontractorRepository
}

// NewExportService constructs a new ExportService.
func NewExportService(opts ExportServiceOptions) *ExportService {
	if opts.Jobs == nil {
		panic("job lister is required")
	}
	if opts.Subcontractors == nil {
		panic("SubcontractorRepository is required")
	}
	return &ExportService{jobs: opts.Jobs, subs: opts.Subcontractors}
}

// Filename suggests a download name for an export generated now.
func (s *ExportService) Filename() string {
	return "jobs-" + s.jobs.Now().Format("20060102") + ".xlsx"
}

// WriteXLSX writes the jobs matching f to w as a workbook with a Jobs sheet
// and a Summary sheet.
func (s *ExportService) WriteXLSX(ctx context.Context, actor auth.Actor, f dashboard.Filter, w io.Writer) error {
	jobs, err := s.jobs.Jobs(ctx, actor, f)
	if err != nil {
		return err
	}
	subs, err := s.subs.List(ctx)
	if err != nil {
		return fmt.Errorf("list subcontractors: %w", err)
	}
	names := make(map[string]string, len(subs))
	for _, sub := range subs {
		names[sub.ID] = sub.Name
	}

	book := excelize.NewFile()
	defer func() { _ = book.Close() }()

	if err := writeJobsSheet(book, jobs, names, s.jobs.Now().Location()); err != nil {
		return err
	}
	if err := writeSummarySheet(book, dashboard.Summarize(jobs)); err != nil {
		return err
	}
	if _, err := book.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeJobsSheet(book *excelize.File, jobs []model.Job, names map[string]string, loc *time.Location) error {
	if err := book.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := book.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	money, err := book.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return fmt.Errorf("create money style: %w", err)
	}

	if err := book.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := book.SetRowStyle(exportSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, j := range jobs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			j.ID,
			j.CreatedAt.In(loc).Format(exportDateFmt),
			string(j.Status),
			j.CustomerName,
			j.CustomerPhone,
			j.CustomerAddress,
			j.Region,
			subcontractorName(j, names),
			j.IssueDescription,
			j.Materials,
			j.SalePrice,
			j.PartsCost,
			j.Profit,
			deref(j.ReceiptURL),
			j.Notes,
		}
		if err := book.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if len(jobs) > 0 {
		if err := book.SetCellStyle(exportSheet, "K2", fmt.Sprintf("M%d", len(jobs)+1), money); err != nil {
			return fmt.Errorf("style money: %w", err)
		}
	}
	if err := book.SetColWidth(exportSheet, "A", "O", 16); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	return book.SetPanes(exportSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func writeSummarySheet(book *excelize.File, sum dashboard.Summary) error {
	if _, err := book.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	rows := [][]any{
		{"Total jobs", sum.Total},
		{"Unassigned", sum.Unassigned},
		{"Total sales", sum.TotalSales},
		{"Total parts", sum.TotalParts},
		{"Total profit", sum.TotalProfit},
	}
	for _, st := range model.JobStatuses() {
		rows = append(rows, []any{"Status " + string(st), sum.ByStatus[st]})
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := book.SetSheetRow(summarySheet, cell, &r); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	return nil
}

func subcontractorName(j model.Job, names map[string]string) string {
	if !j.IsAssigned() {
		return ""
	}
	if n, ok := names[*j.SubcontractorID]; ok {
		return n
	}
	return *j.SubcontractorID
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
