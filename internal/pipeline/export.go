package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// ExportReportToXLSX writes one purchase order's projections as a workbook
// with one sheet per view.
func ExportReportToXLSX(report Report, outputPath string) error {
	f := excelize.NewFile()

	sheet := f.GetSheetName(0)
	_ = f.SetSheetName(sheet, "StyleColor")
	writeHeader(f, "StyleColor", []string{"company", "customer_po", "version", "style", "color", "qty"})
	for i, row := range report.StyleColor {
		writeRow(f, "StyleColor", i+2, report.Header.Company, report.Header.CustomerPO, report.Header.Version, row.Style, row.Color, row.Qty)
	}

	_, _ = f.NewSheet("Store")
	writeHeader(f, "Store", []string{"company", "customer_po", "version", "store_number", "qty"})
	for i, row := range report.Store {
		writeRow(f, "Store", i+2, report.Header.Company, report.Header.CustomerPO, report.Header.Version, row.StoreNumber, row.Qty)
	}

	_, _ = f.NewSheet("StyleColorSize")
	writeHeader(f, "StyleColorSize", []string{"company", "customer_po", "version", "style", "color", "size", "qty"})
	for i, row := range report.StyleColorSize {
		writeRow(f, "StyleColorSize", i+2, report.Header.Company, report.Header.CustomerPO, report.Header.Version, row.Style, row.Color, row.Size, row.Qty)
	}

	_, _ = f.NewSheet("PrePackSummary")
	writeHeader(f, "PrePackSummary", []string{"company", "customer_po", "version", "parent_line_key", "pack_units", "signature"})
	for i, row := range report.PrePackSummary {
		writeRow(f, "PrePackSummary", i+2, report.Header.Company, report.Header.CustomerPO, report.Header.Version, row.ParentLineKey, row.PackUnits, row.Signature)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func writeHeader(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
}

func writeRow(f *excelize.File, sheet string, rowNum int, values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, rowNum)
		_ = f.SetCellValue(sheet, cell, v)
	}
}
