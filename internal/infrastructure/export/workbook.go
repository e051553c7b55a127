// Package export renders reports as spreadsheets.
package export

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/NathIMN/Lumiere-sub005/internal/application/service"
)

// Sheet names of the statistics workbook
const (
	SheetSummary  = "Summary"
	SheetStatus   = "By Status"
	SheetCategory = "By Category"
	SheetStages   = "Stages"
	SheetPolicies = "Policies"
)

// ContentType is the media type of the produced workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// StatisticsWorkbook writes a Statistics report as XLSX
type StatisticsWorkbook struct {
	logger *zap.Logger
}

// NewStatisticsWorkbook creates a new workbook writer
func NewStatisticsWorkbook(logger *zap.Logger) *StatisticsWorkbook {
	return &StatisticsWorkbook{logger: logger}
}

// Write renders stats to w
func (wb *StatisticsWorkbook) Write(w io.Writer, stats *service.Statistics) error {
	f := excelize.NewFile()
	defer f.Close()

	// NewFile starts with Sheet1
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetStatus, SheetCategory, SheetStages, SheetPolicies} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	summary := [][]interface{}{
		{"Metric", "Value"},
		{"Generated at", stats.GeneratedAt.Format(time.RFC3339)},
		{"Total claims", stats.Total},
		{"Decided claims", stats.Decided},
		{"Requested", cents(stats.RequestedCents)},
		{"Approved", cents(stats.ApprovedCents)},
		{"Deductible", cents(stats.DeductibleCents)},
		{"Final", cents(stats.FinalCents)},
		{"Approval ratio", stats.ApprovalRatio},
	}
	if err := wb.writeRows(f, SheetSummary, header, summary); err != nil {
		return err
	}

	statusRows := [][]interface{}{{"Status", "Claims"}}
	for _, k := range sortedKeys(stats.ByStatus) {
		statusRows = append(statusRows, []interface{}{k, stats.ByStatus[k]})
	}
	if err := wb.writeRows(f, SheetStatus, header, statusRows); err != nil {
		return err
	}

	categoryRows := [][]interface{}{{"Category", "Claims"}}
	for _, k := range sortedKeys(stats.ByCategory) {
		categoryRows = append(categoryRows, []interface{}{k, stats.ByCategory[k]})
	}
	if err := wb.writeRows(f, SheetCategory, header, categoryRows); err != nil {
		return err
	}

	stageRows := [][]interface{}{{"Stage", "Samples", "Average (hours)"}}
	for _, s := range stats.Stages {
		stageRows = append(stageRows, []interface{}{s.Stage, s.Samples, s.Average.Hours()})
	}
	if err := wb.writeRows(f, SheetStages, header, stageRows); err != nil {
		return err
	}

	policyRows := [][]interface{}{{"Policy", "Claims", "Approved", "Paid"}}
	for _, p := range stats.Policies {
		policyRows = append(policyRows, []interface{}{p.PolicyID, p.Claims, cents(p.ApprovedCents), cents(p.PaidCents)})
	}
	if err := wb.writeRows(f, SheetPolicies, header, policyRows); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		wb.logger.Error("Failed to write workbook", zap.Error(err))
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// writeRows fills sheet from A1 and bolds the first row
func (wb *StatisticsWorkbook) writeRows(f *excelize.File, sheet string, headerStyle int, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) > 0 {
		last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("failed to style %s header: %w", sheet, err)
		}
	}
	return nil
}

// cents renders an amount in major units
func cents(v int64) float64 {
	return float64(v) / 100
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
