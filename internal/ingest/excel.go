package ingest

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"eldercare-survey/internal/domain"
)

// Roster-only columns of the institution profile spreadsheet.
const (
	ColumnAddress  = "주소"
	ColumnExpected = "제출대상여부"
)

// UnresolvedRow a roster row whose region could not be matched.
type UnresolvedRow struct {
	Row  int    `json:"row"` // 1-based sheet row
	Code string `json:"institution_code"`
	Name string `json:"institution_name"`
	Text string `json:"region_text"`
}

// DirectoryImport result of reading a roster sheet.
type DirectoryImport struct {
	Institutions []domain.Institution `json:"institutions"`
	Unresolved   []UnresolvedRow      `json:"unresolved"`
}

// readFirstSheet returns the header-keyed records of the first sheet along
// with their 1-based row numbers. Blank rows are skipped.
func readFirstSheet(r io.Reader) ([]map[string]any, []int, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Excel file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, nil, fmt.Errorf("excel file has no sheets")
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, nil
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	var records []map[string]any
	var lines []int
	for idx := 1; idx < len(rows); idx++ {
		rec := make(map[string]any, len(header))
		for col, cell := range rows[idx] {
			if col >= len(header) || header[col] == "" || strings.TrimSpace(cell) == "" {
				continue
			}
			rec[header[col]] = cell
		}
		if len(rec) == 0 {
			continue
		}
		records = append(records, rec)
		lines = append(lines, idx+1)
	}
	return records, lines, nil
}

// ReadSubmissionsSheet reads one submission per row of the first sheet. The
// header row holds form field keys.
func ReadSubmissionsSheet(r io.Reader) ([]domain.Submission, error) {
	records, _, err := readFirstSheet(r)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Submission, 0, len(records))
	for _, rec := range records {
		out = append(out, ParseSubmission(rec))
	}
	return out, nil
}

// ReadDirectorySheet reads the institution roster. The region comes from the
// 시군 column when it resolves, else from the address. A missing or blank
// 제출대상여부 cell means the institution is expected to submit.
func ReadDirectorySheet(r io.Reader) (DirectoryImport, error) {
	records, lines, err := readFirstSheet(r)
	if err != nil {
		return DirectoryImport{}, err
	}

	var out DirectoryImport
	for i, rec := range records {
		code := StringField(rec, domain.FieldInstitutionCode)
		if code == "" {
			continue
		}
		inst := domain.Institution{
			Code:     code,
			Name:     StringField(rec, domain.FieldInstitutionName),
			Address:  StringField(rec, ColumnAddress),
			IsHub:    BoolField(rec, domain.FieldIsHub),
			Expected: true,
		}
		if _, ok := rec[ColumnExpected]; ok {
			inst.Expected = BoolField(rec, ColumnExpected)
		}

		regionText := StringField(rec, domain.FieldRegion)
		region, ok := domain.NormalizeRegion(regionText)
		if !ok {
			region, ok = domain.NormalizeRegion(inst.Address)
		}
		if !ok {
			text := regionText
			if text == "" {
				text = inst.Address
			}
			out.Unresolved = append(out.Unresolved, UnresolvedRow{Row: lines[i], Code: code, Name: inst.Name, Text: text})
			continue
		}
		inst.Region = region
		out.Institutions = append(out.Institutions, inst)
	}
	return out, nil
}

// SubmissionColumns header of a submissions sheet in form order.
func SubmissionColumns() []string {
	cols := []string{
		domain.FieldInstitutionCode,
		domain.FieldInstitutionName,
		domain.FieldRegion,
		domain.FieldSubmittedAt,
		domain.FieldIsHub,
	}
	cols = append(cols, domain.NumericFieldKeys()...)
	return append(cols,
		domain.FieldChangedSocialWorkers,
		domain.FieldChangedCareProviders,
		domain.FieldChangedUsers,
		domain.FieldChangeDate,
	)
}

// WriteSubmissionsSheet exports submissions in the layout ReadSubmissionsSheet reads.
func WriteSubmissionsSheet(subs []domain.Submission) ([]byte, error) {
	cols := SubmissionColumns()
	rows := make([][]any, 0, len(subs))
	for _, s := range subs {
		rec := FormatSubmission(s)
		row := make([]any, len(cols))
		for i, c := range cols {
			v, ok := rec[c]
			if !ok {
				continue
			}
			if c == domain.FieldIsHub {
				v = yesNo(s.IsHub)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	return writeWorkbook([]sheet{{name: "제출현황", header: cols, rows: rows}})
}

func yesNo(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}

type sheet struct {
	name   string
	header []string
	rows   [][]any
}

// writeWorkbook renders sheets with a bold frozen header row.
func writeWorkbook(sheets []sheet) ([]byte, error) {
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for _, sh := range sheets {
		if _, err := f.NewSheet(sh.name); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet: %w", err)
		}
		if err := writeSheet(f, sh, headerStyle); err != nil {
			f.Close()
			return nil, err
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	if index, err := f.GetSheetIndex(sheets[0].name); err == nil && index >= 0 {
		f.SetActiveSheet(index)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sh sheet, headerStyle int) error {
	for col, h := range sh.header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sh.name, cell, h); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sh.name, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}
	for r, row := range sh.rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sh.name, cell, v); err != nil {
				return fmt.Errorf("failed to set cell value at %s: %w", cell, err)
			}
		}
	}
	if err := f.SetPanes(sh.name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}
	return nil
}
