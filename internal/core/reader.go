package core

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/catalogcsv/internal/catalog"
)

// ErrEmptyFile is returned when the input has no header row.
var ErrEmptyFile = errors.New("empty file: no header row")

// ErrUnsupportedFileType is returned for extensions other than csv, txt and xlsx.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// ProductsSheet is the preferred worksheet name in XLSX imports.
const ProductsSheet = "Products"

// RowSource yields the header and then one record at a time.
// Next returns io.EOF after the last record.
type RowSource interface {
	Header() []string
	Next() (line int, record []string, err error)
}

// OpenRowSource picks a source by file extension. CSV input is decoded to
// UTF-8 first; XLSX input is read as a zip archive.
func OpenRowSource(r io.Reader, fileName, delimiter string) (RowSource, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx":
		return NewXLSXSource(r)
	case ".csv", ".txt", "":
		return NewCSVSource(NewDecodingReader(r), delimiter)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, filepath.Ext(fileName))
	}
}

// ReadHeader returns the cleaned header row of a file.
func ReadHeader(r io.Reader, fileName, delimiter string) ([]string, error) {
	src, err := OpenRowSource(r, fileName, delimiter)
	if err != nil {
		return nil, err
	}
	return src.Header(), nil
}

// CSVSource reads delimited text.
type CSVSource struct {
	reader *csv.Reader
	header []string
}

// NewCSVSource reads the header row immediately. The delimiter must be a
// single character; "\t" and "tab" select a tab.
func NewCSVSource(r io.Reader, delimiter string) (*CSVSource, error) {
	comma, err := delimiterRune(delimiter)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("invalid csv header: %w", err)
	}

	return &CSVSource{reader: cr, header: cleanHeader(header)}, nil
}

func (s *CSVSource) Header() []string { return s.header }

func (s *CSVSource) Next() (int, []string, error) {
	record, err := s.reader.Read()
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return pe.StartLine, record, err
		}
		return 0, nil, err
	}
	line, _ := s.reader.FieldPos(0)
	return line, record, nil
}

func delimiterRune(delimiter string) (rune, error) {
	switch delimiter {
	case "":
		return ';', nil
	case `\t`, "tab", "TAB":
		return '\t', nil
	}
	if utf8.RuneCountInString(delimiter) != 1 {
		return 0, fmt.Errorf("invalid csv delimiter %q: must be a single character", delimiter)
	}
	r, _ := utf8.DecodeRuneInString(delimiter)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, fmt.Errorf("invalid csv delimiter %q", delimiter)
	}
	return r, nil
}

// XLSXSource reads the first worksheet, or the one named Products.
type XLSXSource struct {
	header []string
	rows   [][]string
	next   int
}

// NewXLSXSource loads the chosen sheet into memory.
func NewXLSXSource(r io.Reader) (*XLSXSource, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}

	sheet := sheets[0]
	for _, name := range sheets {
		if strings.EqualFold(name, ProductsSheet) {
			sheet = name
			break
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	return &XLSXSource{header: cleanHeader(rows[0]), rows: rows[1:]}, nil
}

func (s *XLSXSource) Header() []string { return s.header }

func (s *XLSXSource) Next() (int, []string, error) {
	if s.next >= len(s.rows) {
		return 0, nil, io.EOF
	}
	record := s.rows[s.next]
	s.next++
	// Header is line 1.
	return s.next + 1, record, nil
}

func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.TrimSuffix(CleanCell(h), " *")
	}
	return out
}

// FieldError is a conversion failure of one mapped field.
type FieldError struct {
	Column string
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("Column: %s, %s", e.Column, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

var errRequiredValue = errors.New("required field is empty")

type boundField struct {
	spec     FieldSpec
	column   int // -1 when only a constant is mapped
	constant *string
	required bool
}

type boundProperty struct {
	name   string
	column int
}

// Decoder turns raw records into transient products using one mapping.
type Decoder struct {
	codec      Codec
	fields     []boundField
	properties []boundProperty
}

// NewDecoder binds mapping entries to header positions. Entries naming an
// unknown field are ignored. A required entry whose column is absent from
// the header fails here rather than on every row.
func NewDecoder(mapping *MappingConfiguration, header []string, fields *FieldRegistry, codec Codec) (*Decoder, error) {
	idx := MakeHeaderIndex(header)
	d := &Decoder{codec: codec}

	for _, pm := range mapping.PropertyMaps {
		if !pm.Mapped() {
			continue
		}
		spec, ok := fields.Get(pm.EntityColumnName)
		if !ok {
			continue
		}

		bf := boundField{spec: spec, column: -1, constant: pm.CustomValue, required: pm.IsRequired || spec.Required}
		if pm.CsvColumnName != "" {
			if i, found := idx.Lookup(pm.CsvColumnName); found {
				bf.column = i
			} else if bf.required && bf.constant == nil {
				return nil, fmt.Errorf("required field %q: column %q not found in header", spec.Name, pm.CsvColumnName)
			}
		}
		d.fields = append(d.fields, bf)
	}

	for _, col := range mapping.PropertyCsvColumns {
		if i, found := idx.Lookup(col); found {
			d.properties = append(d.properties, boundProperty{name: col, column: i})
		}
	}

	return d, nil
}

// Decode builds a transient product from one record.
func (d *Decoder) Decode(line int, record []string) (*CsvProduct, error) {
	p := &CsvProduct{LineNumber: line}

	for _, f := range d.fields {
		value := ""
		if f.column >= 0 && f.column < len(record) {
			value = CleanCell(record[f.column])
		}
		if value == "" && f.constant != nil {
			value = strings.TrimSpace(*f.constant)
		}

		if value == "" {
			if f.required {
				return nil, &FieldError{Column: f.spec.Name, Err: errRequiredValue}
			}
			continue
		}

		if f.spec.Set == nil {
			if p.Extra == nil {
				p.Extra = make(map[string]string)
			}
			p.Extra[f.spec.Name] = value
			continue
		}

		if err := f.spec.Set(p, value); err != nil {
			return nil, &FieldError{Column: f.spec.Name, Err: err}
		}
	}

	for _, bp := range d.properties {
		cell := ""
		if bp.column < len(record) {
			cell = strings.TrimSpace(record[bp.column])
		}
		p.Properties = append(p.Properties, catalog.Property{
			Name:   bp.name,
			Values: d.codec.Decode(cell, bp.name),
		})
	}

	p.finalize()
	return p, nil
}

// ReadAll decodes every record of src. Failed rows are skipped and reported;
// blank records are ignored. The error is non-nil only when the underlying
// stream fails.
func (d *Decoder) ReadAll(src RowSource) ([]*CsvProduct, []RowError, error) {
	var (
		products []*CsvProduct
		rowErrs  []RowError
	)

	for {
		line, record, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return products, rowErrs, err
			}
			rowErrs = append(rowErrs, RowError{LineNumber: line, Message: err.Error(), Data: record})
			continue
		}
		if isBlank(record) {
			continue
		}

		p, err := d.Decode(line, record)
		if err != nil {
			rowErrs = append(rowErrs, RowError{LineNumber: line, Message: decodeErrorMessage(err), Data: record})
			continue
		}
		products = append(products, p)
	}

	return products, rowErrs, nil
}

// decodeErrorMessage appends the wrapped cause when the error text does not
// already include it.
func decodeErrorMessage(err error) string {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Error()
	}
	msg := err.Error()
	if cause := errors.Unwrap(err); cause != nil && !strings.Contains(msg, cause.Error()) {
		msg += " " + cause.Error()
	}
	return msg
}

func isBlank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
