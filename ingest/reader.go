package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// File error codes
const (
	ErrCodeMalformedFile   = "MALFORMED_FILE"
	ErrCodeEmptyFile       = "EMPTY_FILE"
	ErrCodeMissingColumn   = "MISSING_COLUMN"
	ErrCodeUnsupportedFile = "UNSUPPORTED_FILE_TYPE"
)

// FileError aborts an import as a whole. Row-level defects never produce one.
type FileError struct {
	Code    string
	Message string
	Err     error
}

func (e *FileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// IsFileError reports whether err is (or wraps) a *FileError
func IsFileError(err error) bool {
	var fe *FileError
	return errors.As(err, &fe)
}

// Record is one data row with its 1-based line in the source file
type Record struct {
	Line  int
	Cells []string
}

// Table is a decoded spreadsheet: the raw header cells and the non-blank data rows
type Table struct {
	Header []string
	Rows   []Record
}

// ReadFile decodes a CSV or XLSX upload, choosing the reader from the file extension
func ReadFile(name string, r io.Reader) (*Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return ReadCSV(r)
	case ".xlsx":
		return ReadXLSX(r)
	default:
		return nil, &FileError{
			Code:    ErrCodeUnsupportedFile,
			Message: "Only .csv and .xlsx files are supported",
		}
	}
}

// ReadCSV decodes a comma-separated export. Rows may be ragged.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	// inch marks in unquoted cells (Table 60" x 30") are data, not quoting
	reader.LazyQuotes = true

	table := &Table{}
	headerSeen := false
	for {
		cells, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &FileError{Code: ErrCodeMalformedFile, Message: "CSV file could not be read", Err: err}
		}
		line, _ := reader.FieldPos(0)

		if !headerSeen {
			if len(cells) > 0 {
				cells[0] = strings.TrimPrefix(cells[0], "\ufeff")
			}
			if blank(cells) {
				continue
			}
			table.Header = cells
			headerSeen = true
			continue
		}
		if blank(cells) {
			continue
		}
		table.Rows = append(table.Rows, Record{Line: line, Cells: cells})
	}

	if !headerSeen {
		return nil, &FileError{Code: ErrCodeEmptyFile, Message: "File has no header row"}
	}
	return table, nil
}

// ReadXLSX decodes the first worksheet of an Excel workbook using formatted cell values
func ReadXLSX(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &FileError{Code: ErrCodeMalformedFile, Message: "Workbook could not be read", Err: err}
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &FileError{Code: ErrCodeMalformedFile, Message: "Workbook could not be opened", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &FileError{Code: ErrCodeEmptyFile, Message: "Workbook has no sheets"}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &FileError{Code: ErrCodeMalformedFile, Message: "Worksheet could not be read", Err: err}
	}

	table := &Table{}
	headerSeen := false
	for i, cells := range rows {
		if blank(cells) {
			continue
		}
		if !headerSeen {
			table.Header = cells
			headerSeen = true
			continue
		}
		table.Rows = append(table.Rows, Record{Line: i + 1, Cells: cells})
	}

	if !headerSeen {
		return nil, &FileError{Code: ErrCodeEmptyFile, Message: "File has no header row"}
	}
	return table, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
