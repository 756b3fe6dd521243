// Package export renders tabular data as csv, xlsx or pdf documents.
package export

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/shule/core"
)

// Formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

var (
	Formats = []string{FormatCSV, FormatXLSX, FormatPDF}

	mimeTypes = map[string]string{
		FormatCSV:  "text/csv",
		FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		FormatPDF:  "application/pdf",
	}

	ErrUnknownFormat = core.NewValidationError(nil, core.FieldError{
		Field: "format",
		Error: "format must be one of: " + strings.Join(Formats, ", "),
	})
)

// Table is the data of an export: a title, column headers and rows of cells.
type Table struct {
	Title   string
	Columns []string
	Rows    [][]string
}

// File is an exported document, base64 encoded.
type File struct {
	Filename string `json:"filename"`
	Mime     string `json:"mime"`
	Data     string `json:"data"`
}

// Render renders the table in the given format. name is the filename without extension.
func Render(tbl Table, format, name string) (File, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatCSV
	}

	var content []byte
	var err error
	switch format {
	case FormatCSV:
		content, err = renderCSV(tbl)
	case FormatXLSX:
		content, err = renderXLSX(tbl)
	case FormatPDF:
		content, err = renderPDF(tbl)
	default:
		return File{}, ErrUnknownFormat
	}
	if err != nil {
		return File{}, errors.Wrapf(err, "rendering %s", format)
	}

	return File{
		Filename: fmt.Sprintf("%s.%s", name, format),
		Mime:     mimeTypes[format],
		Data:     base64.StdEncoding.EncodeToString(content),
	}, nil
}

// FormatAmount formats an amount in minor units (eg. cents) as a decimal string.
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

func renderCSV(tbl Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(tbl.Columns); err != nil {
		return nil, err
	}
	if err := w.WriteAll(tbl.Rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderXLSX(tbl Table) ([]byte, error) {
	f := excelize.NewFile()
	//goland:noinspection GoUnhandledErrorResult
	defer f.Close()

	sheet := sheetName(tbl.Title)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	header := make([]interface{}, 0, len(tbl.Columns))
	for _, col := range tbl.Columns {
		header = append(header, col)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil && len(tbl.Columns) > 0 {
		lastCell, _ := excelize.CoordinatesToCellName(len(tbl.Columns), 1)
		_ = f.SetCellStyle(sheet, "A1", lastCell, style)
	}

	for i, row := range tbl.Rows {
		cells := make([]interface{}, 0, len(row))
		for _, cell := range row {
			cells = append(cells, cell)
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err = f.SetSheetRow(sheet, axis, &cells); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderPDF(tbl Table) ([]byte, error) {
	orientation := "P"
	if len(tbl.Columns) > 5 {
		orientation = "L"
	}
	pdf := fpdf.New(orientation, "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tbl.Title, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, tr(tbl.Title), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(tbl.Columns) == 0 {
		return outputPDF(pdf)
	}
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	colW := (pageW - left - right) / float64(len(tbl.Columns))

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range tbl.Columns {
		pdf.CellFormat(colW, 7, tr(col), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, row := range tbl.Rows {
		for i := range tbl.Columns {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			pdf.CellFormat(colW, 6, tr(truncate(cell, colW)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	return outputPDF(pdf)
}

func outputPDF(pdf *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// truncate shortens s so that it roughly fits a cell of width w (mm) at font size 9.
func truncate(s string, w float64) string {
	max := int(w / 1.8)
	if r := []rune(s); max > 3 && len(r) > max {
		return string(r[:max-3]) + "..."
	}
	return s
}

// sheetName returns a valid xlsx sheet name (max 31 chars, no []:*?/\).
func sheetName(title string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, strings.TrimSpace(title))
	if name == "" {
		return "Sheet1"
	}
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}
