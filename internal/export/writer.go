package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/mohamedkhairy/session-range-stats/internal/orb"
	"github.com/mohamedkhairy/session-range-stats/pkg/logger"
)

// ErrUnknownFormat is returned for an unsupported export format
var ErrUnknownFormat = errors.New("unknown export format")

// SheetName is the worksheet holding an exported table
const SheetName = "Sheet1"

// Writer renders a table to w
type Writer interface {
	Write(w io.Writer, table *orb.Table) error
	Ext() string
}

// CSVWriter writes semicolon separated values
type CSVWriter struct {
	Options Options
}

func (c CSVWriter) Ext() string { return "csv" }

func (c CSVWriter) Write(w io.Writer, table *orb.Table) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	if err := cw.Write(Header()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	fields := make([]string, len(columns))
	for i := range table.Records {
		for j, v := range Row(&table.Records[i], c.Options) {
			fields[j] = formatCell(v)
		}
		if err := cw.Write(fields); err != nil {
			return fmt.Errorf("failed to write record %s: %w", table.Records[i].Date, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// XLSXWriter writes a single-sheet workbook
type XLSXWriter struct {
	Options Options
}

func (x XLSXWriter) Ext() string { return "xlsx" }

func (x XLSXWriter) Write(w io.Writer, table *orb.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	header := Header()
	row := make([]interface{}, len(header))
	for i, name := range header {
		row[i] = name
	}
	if err := sw.SetRow("A1", row); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := range table.Records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, Row(&table.Records[i], x.Options)); err != nil {
			return fmt.Errorf("failed to write record %s: %w", table.Records[i].Date, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// NewWriter returns the writer of format ("csv" or "xlsx")
func NewWriter(format string, opts Options) (Writer, error) {
	switch format {
	case "csv":
		return CSVWriter{Options: opts}, nil
	case "xlsx":
		return XLSXWriter{Options: opts}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// FileName returns <symbol>_<session>_<minutes>.<ext>
func FileName(table *orb.Table, ext string) string {
	return fmt.Sprintf("%s_%s_%d.%s", table.Symbol, table.Session, table.OpeningMinutes, ext)
}

// Exporter writes tables into a directory
type Exporter struct {
	dir    string
	writer Writer
}

// NewExporter creates an exporter writing format files into dir
func NewExporter(dir, format string, opts Options) (*Exporter, error) {
	writer, err := NewWriter(format, opts)
	if err != nil {
		return nil, err
	}
	return &Exporter{dir: dir, writer: writer}, nil
}

// Export writes table and returns the file path
func (e *Exporter) Export(table *orb.Table) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(e.dir, FileName(table, e.writer.Ext()))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if err := e.writer.Write(file, table); err != nil {
		return "", fmt.Errorf("failed to export %s: %w", path, err)
	}

	logger.Info("Exported table",
		logger.String("path", path),
		logger.String("symbol", table.Symbol),
		logger.String("session", string(table.Session)),
		logger.Int("rows", len(table.Records)),
	)
	return path, nil
}
