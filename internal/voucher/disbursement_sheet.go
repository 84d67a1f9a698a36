package voucher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/expense-requirement/internal/application/port"
	"github.com/garyjia/expense-requirement/internal/domain/entity"
	"github.com/garyjia/expense-requirement/internal/domain/workflow"
)

const (
	sheetName  = "Disbursements"
	headerRow  = 3
	dataRowMin = headerRow + 1
)

var columns = []struct {
	title string
	width float64
	value func(r *entity.Requirement) interface{}
}{
	{"Serial No.", 16, func(r *entity.Requirement) interface{} { return r.SerialNumber }},
	{"Submitter", 14, func(r *entity.Requirement) interface{} { return r.SubmitterID }},
	{"Dept", 6, func(r *entity.Requirement) interface{} { return fmt.Sprintf("%02d", r.DepartmentID) }},
	{"Kind", 11, func(r *entity.Requirement) interface{} { return string(r.Kind) }},
	{"Bank", 7, func(r *entity.Requirement) interface{} { return r.Bank.BankCode }},
	{"Branch", 8, func(r *entity.Requirement) interface{} { return r.Bank.BranchCode }},
	{"Account", 22, func(r *entity.Requirement) interface{} { return r.Bank.Account }},
	{"Account Name", 16, func(r *entity.Requirement) interface{} { return r.Bank.AccountName }},
	{"Approved", 12, func(r *entity.Requirement) interface{} { return formatDate(r.FinalizeTime) }},
	{"Pay Date", 12, func(r *entity.Requirement) interface{} { return formatDate(r.PayDate) }},
	{"Expense Ref", 12, func(r *entity.Requirement) interface{} { return r.ExpenseReference }},
}

// SheetWriter renders completed requirements into a bank-transfer worksheet
type SheetWriter struct {
	outputDir   string
	companyName string
	logger      *zap.Logger
}

// NewSheetWriter creates a SheetWriter that saves under outputDir
func NewSheetWriter(outputDir, companyName string, logger *zap.Logger) *SheetWriter {
	return &SheetWriter{
		outputDir:   outputDir,
		companyName: companyName,
		logger:      logger,
	}
}

// FileName returns the export name for a given day
func FileName(day time.Time) string {
	return fmt.Sprintf("disbursement_%s.xlsx", day.Format("20060102"))
}

// WriteSheet writes reqs to <outputDir>/disbursement_YYYYMMDD.xlsx and returns the path.
// Every requirement must be COMPLETE.
func (w *SheetWriter) WriteSheet(ctx context.Context, reqs []*entity.Requirement, day time.Time) (string, error) {
	if len(reqs) == 0 {
		return "", ErrNoRequirements
	}
	for _, r := range reqs {
		if r.State != workflow.StateComplete {
			return "", fmt.Errorf("%w: %s is %s", ErrNotComplete, r.ID, r.State)
		}
	}

	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrFolderCreationFailed, w.outputDir, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return "", fmt.Errorf("failed to rename sheet: %w", err)
	}

	w.setCell(f, "A1", w.companyName)
	w.setCell(f, "A2", "Disbursement list "+day.Format("2006-01-02"))

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create header style: %w", err)
	}

	for i, col := range columns {
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheetName, name, name, col.width); err != nil {
			return "", fmt.Errorf("failed to set column width: %w", err)
		}
		w.setCell(f, fmt.Sprintf("%s%d", name, headerRow), col.title)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(columns))
	if err := f.SetCellStyle(sheetName, fmt.Sprintf("A%d", headerRow), fmt.Sprintf("%s%d", lastCol, headerRow), headerStyle); err != nil {
		return "", fmt.Errorf("failed to style header: %w", err)
	}

	for i, r := range reqs {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		row := make([]interface{}, len(columns))
		for j, col := range columns {
			row[j] = col.value(r)
		}
		cell := fmt.Sprintf("A%d", dataRowMin+i)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return "", fmt.Errorf("failed to write row for %s: %w", r.ID, err)
		}
	}

	outputPath := filepath.Join(w.outputDir, FileName(day))
	if err := f.SaveAs(outputPath); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrFileSaveFailed, outputPath, err)
	}

	w.logger.Info("Disbursement sheet written",
		zap.String("path", outputPath),
		zap.Int("rows", len(reqs)))
	return outputPath, nil
}

func (w *SheetWriter) setCell(f *excelize.File, cell string, value interface{}) {
	if err := f.SetCellValue(sheetName, cell, value); err != nil {
		w.logger.Warn("Failed to set cell value",
			zap.String("cell", cell),
			zap.Error(err))
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

var _ port.SheetWriter = (*SheetWriter)(nil)
