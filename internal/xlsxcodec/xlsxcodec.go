// Package xlsxcodec reads and writes student spreadsheets.
//
// It shares the header names and alias rules of package csvcodec: a
// workbook row decodes into the same csvcodec.Row a CSV line does, so the
// import path downstream of decoding is identical for both formats.
// Only the first sheet is read.
package xlsxcodec

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/aanand-mishra/student-records/internal/csvcodec"
	"github.com/aanand-mishra/student-records/internal/types"
)

// ExportFilename is the suggested download name for Encode's output.
const ExportFilename = "students_export.xlsx"

// ContentType is the MIME type of an .xlsx workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Encode writes students to w as a workbook with the csvcodec header in
// row 1 and one student per following row.
func Encode(w io.Writer, students []types.Student) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("closing workbook", slog.String("error", err.Error()))
		}
	}()

	sheet := f.GetSheetName(0)

	header := make([]interface{}, len(csvcodec.Header))
	for i, h := range csvcodec.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("xlsxcodec.Encode: header: %w", err)
	}

	for i, s := range students {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("xlsxcodec.Encode: row %d: %w", i+2, err)
		}
		row := []interface{}{s.ID, s.Name, s.Email, s.Roll, s.ClassName, s.Notes}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("xlsxcodec.Encode: row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsxcodec.Encode: write: %w", err)
	}
	return nil
}

// Decode reads the first sheet of the workbook in r. Blank rows are
// skipped; the first non-blank row is the header.
func Decode(r io.Reader) ([]csvcodec.Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("xlsxcodec.Decode: open workbook: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("closing workbook", slog.String("error", err.Error()))
		}
	}()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("xlsxcodec.Decode: workbook has no sheets")
	}

	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("xlsxcodec.Decode: read sheet %q: %w", sheet, err)
	}

	var (
		header []string
		rows   = []csvcodec.Row{}
	)
	for i, values := range cells {
		if blank(values) {
			continue
		}
		if header == nil {
			header = csvcodec.NormalizeHeader(values)
			continue
		}
		rows = append(rows, csvcodec.RowFromValues(i+1, header, values))
	}

	return rows, nil
}

func blank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
