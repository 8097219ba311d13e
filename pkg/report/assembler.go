package report

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/reportly-app/reportly/pkg/models"
)

const (
	// ContentType is the MIME type of an assembled workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// SheetName is the name of the single worksheet.
	SheetName = "Report"

	tableName = "ReportData"

	// Default row height in pixels, used to size the logo's row span.
	defaultRowHeightPx = 20
)

// ErrNoData is returned when there is no header row to build a table from.
var ErrNoData = errors.New("no data to export")

var numericPattern = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?$`)

// Design is everything needed to lay out one report.
type Design struct {
	// Table is the preview table; Table[0] is the header row.
	Table          [][]string
	HeaderText     string
	FooterText     string
	Logo           []byte
	TableTheme     string
	ShowBorders    bool
	AutoFitColumns bool
}

// NewDesign combines a data table with stored layout options.
func NewDesign(table [][]string, layout models.DesignLayout, logo []byte) Design {
	return Design{
		Table:          table,
		HeaderText:     layout.HeaderText,
		FooterText:     layout.FooterText,
		Logo:           logo,
		TableTheme:     layout.TableTheme,
		ShowBorders:    layout.ShowBorders,
		AutoFitColumns: layout.AutoFitColumns,
	}
}

// Layout records where each block landed. Rows are 1-based; zero means the
// block is absent.
type Layout struct {
	LogoRow       int       `json:"logo_row"`
	HeaderRow     int       `json:"header_row"`
	TableFirstRow int       `json:"table_first_row"`
	TableLastRow  int       `json:"table_last_row"`
	FooterRow     int       `json:"footer_row"`
	Columns       int       `json:"columns"`
	ColumnWidths  []float64 `json:"column_widths,omitempty"`
	// Cursor is where the block after the table starts, the footer row when
	// there is a footer.
	Cursor int `json:"cursor"`
}

// Result is a serialized workbook.
type Result struct {
	Data        []byte
	FileName    string
	ContentType string
	Layout      Layout
}

// Assembler lays out reports as single-sheet workbooks.
type Assembler struct {
	now func() time.Time
}

// NewAssembler creates an assembler. now stamps the file name; nil uses time.Now.
func NewAssembler(now func() time.Time) *Assembler {
	if now == nil {
		now = time.Now
	}
	return &Assembler{now: now}
}

// FileName is the download name for a report produced at t.
func FileName(t time.Time) string {
	return "report_" + t.Format("2006-01-02") + ".xlsx"
}

// Assemble builds the workbook. Blocks are stacked top to bottom: logo,
// header text, data table, footer text.
func (a *Assembler) Assemble(d Design) (*Result, error) {
	if len(d.Table) == 0 || len(d.Table[0]) == 0 {
		return nil, ErrNoData
	}
	if err := ValidateTheme(d.TableTheme); err != nil {
		return nil, err
	}

	var logo *Logo
	if len(d.Logo) > 0 {
		var err error
		if logo, err = DecodeLogo(d.Logo); err != nil {
			return nil, err
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headers := uniqueHeaders(d.Table[0])
	cols := len(headers)
	layout := Layout{Columns: cols}
	cursor := 1

	if logo != nil {
		if err := a.placeLogo(f, logo, cursor); err != nil {
			return nil, err
		}
		layout.LogoRow = cursor
		cursor += int(math.Ceil(float64(logo.Height)/defaultRowHeightPx)) + 1
	}

	if d.HeaderText != "" {
		font := &excelize.Font{Bold: true, Size: 16}
		if err := writeBanner(f, cursor, cols, d.HeaderText, font); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		layout.HeaderRow = cursor
		cursor += 2
	}

	first, last, err := writeTable(f, cursor, headers, d)
	if err != nil {
		return nil, err
	}
	layout.TableFirstRow = first
	layout.TableLastRow = last
	cursor = first + len(d.Table) + 2

	if d.AutoFitColumns {
		widths, err := autoFit(f, d.Table[0], d.Table[1:])
		if err != nil {
			return nil, err
		}
		layout.ColumnWidths = widths
	}

	if d.FooterText != "" {
		font := &excelize.Font{Italic: true, Size: 12}
		if err := writeBanner(f, cursor, cols, d.FooterText, font); err != nil {
			return nil, fmt.Errorf("failed to write footer: %w", err)
		}
		layout.FooterRow = cursor
	}
	layout.Cursor = cursor

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}

	return &Result{
		Data:        buf.Bytes(),
		FileName:    FileName(a.now()),
		ContentType: ContentType,
		Layout:      layout,
	}, nil
}

func (a *Assembler) placeLogo(f *excelize.File, logo *Logo, row int) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	err = f.AddPictureFromBytes(SheetName, cell, &excelize.Picture{
		Extension: logo.Extension,
		File:      logo.Data,
		Format:    &excelize.GraphicOptions{AltText: "Logo"},
	})
	if err != nil {
		return fmt.Errorf("failed to embed logo: %w", err)
	}
	return nil
}

// writeBanner puts text in column A of row, styled, merged across the table
// width when the table has more than one column.
func writeBanner(f *excelize.File, row, cols int, text string, font *excelize.Font) error {
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetCellStr(SheetName, first, text); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{Font: font})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, first, first, style); err != nil {
		return err
	}
	if cols <= 1 {
		return nil
	}
	lastCell, err := excelize.CoordinatesToCellName(cols, row)
	if err != nil {
		return err
	}
	return f.MergeCell(SheetName, first, lastCell)
}

// writeTable writes the header and data rows starting at row start and
// formats them as a table. It returns the first and last rows used.
func writeTable(f *excelize.File, start int, headers []string, d Design) (int, int, error) {
	for c, h := range headers {
		cell, err := excelize.CoordinatesToCellName(c+1, start)
		if err != nil {
			return 0, 0, err
		}
		if err := f.SetCellStr(SheetName, cell, h); err != nil {
			return 0, 0, fmt.Errorf("failed to write header cell: %w", err)
		}
	}

	row := start
	for _, record := range d.Table[1:] {
		row++
		for c := 0; c < len(headers) && c < len(record); c++ {
			cell, err := excelize.CoordinatesToCellName(c+1, row)
			if err != nil {
				return 0, 0, err
			}
			if err := f.SetCellValue(SheetName, cell, cellValue(record[c])); err != nil {
				return 0, 0, fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	topLeft, _ := excelize.CoordinatesToCellName(1, start)
	bottomRight, err := excelize.CoordinatesToCellName(len(headers), row)
	if err != nil {
		return 0, 0, err
	}

	// A table needs at least one data row.
	if row > start {
		err := f.AddTable(SheetName, &excelize.Table{
			Range:          topLeft + ":" + bottomRight,
			Name:           tableName,
			StyleName:      themeOrDefault(d.TableTheme),
			ShowRowStripes: boolPtr(true),
		})
		if err != nil {
			return 0, 0, fmt.Errorf("failed to format table: %w", err)
		}
	}

	if d.ShowBorders {
		style, err := f.NewStyle(&excelize.Style{Border: thinBorder()})
		if err != nil {
			return 0, 0, err
		}
		if err := f.SetCellStyle(SheetName, topLeft, bottomRight, style); err != nil {
			return 0, 0, fmt.Errorf("failed to apply borders: %w", err)
		}
	}

	return start, row, nil
}

// autoFit sizes each column from the raw header cell and the data below it.
func autoFit(f *excelize.File, headers []string, rows [][]string) ([]float64, error) {
	widths := make([]float64, len(headers))
	for c := range headers {
		cells := []string{headers[c]}
		for _, record := range rows {
			if c < len(record) {
				cells = append(cells, record[c])
			}
		}
		widths[c] = AutoFitWidth(cells)

		name, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(SheetName, name, name, widths[c]); err != nil {
			return nil, fmt.Errorf("failed to set width of column %s: %w", name, err)
		}
	}
	return widths, nil
}

// AutoFitWidth is ceil(1.2 × longest line) + 2, where lines are split on
// '\n' and measured in runes.
func AutoFitWidth(cells []string) float64 {
	longest := 0
	for _, cell := range cells {
		for _, line := range strings.Split(cell, "\n") {
			if n := utf8.RuneCountInString(line); n > longest {
				longest = n
			}
		}
	}
	return math.Ceil(1.2*float64(longest)) + 2
}

// uniqueHeaders names blank headers "Column N" and suffixes repeats with
// " (2)", " (3)" and so on. Table column names must be unique.
func uniqueHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "Column " + strconv.Itoa(i+1)
		}
		name := h
		for n := 2; used[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s (%d)", h, n)
		}
		used[strings.ToLower(name)] = true
		headers[i] = name
	}
	return headers
}

// cellValue writes plain decimal numbers as numbers and everything else as text.
func cellValue(s string) any {
	if numericPattern.MatchString(s) {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
	}
	return s
}

func thinBorder() []excelize.Border {
	sides := []string{"left", "top", "right", "bottom"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{Type: side, Color: "000000", Style: 1}
	}
	return borders
}

func boolPtr(b bool) *bool { return &b }
