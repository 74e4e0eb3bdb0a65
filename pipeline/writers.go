package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aluiziolira/go-scrape-market/models"
)

// OutputFileName derives the output file name for a query:
// spaces become underscores and "_DATA.<ext>" is appended.
func OutputFileName(query, ext string) string {
	return strings.ReplaceAll(query, " ", "_") + "_DATA." + ext
}

// CSVWriter writes records to CSV.
type CSVWriter struct {
	path   string
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter initialises a CSV writer and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	header := []string{"article_id", "title", "loyalty_price", "discount_price", "base_price", "rating_summary", "rating_score", "review_count"}
	if err := writer.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVWriter{
		path:   filename,
		file:   f,
		writer: writer,
	}, nil
}

// Write appends records to the CSV output. Nil fields become empty cells.
func (cw *CSVWriter) Write(records []models.ProductRecord) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, r := range records {
		row := []string{
			models.Value(r.ArticleID),
			models.Value(r.Title),
			models.Value(r.LoyaltyPrice),
			models.Value(r.DiscountPrice),
			models.Value(r.BasePrice),
			models.Value(r.RatingSummary),
			models.Value(r.RatingScore),
			models.Value(r.ReviewCount),
		}
		if err := cw.writer.Write(row); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// Validate ensures the file has content besides the header.
func (cw *CSVWriter) Validate() error {
	return validateFile(cw.path, "csv")
}

// JSONArrayWriter collects records and writes them as one indented JSON
// array on Close. Non-ASCII text and HTML characters are written literally.
type JSONArrayWriter struct {
	path    string
	file    *os.File
	records []models.ProductRecord
	mu      sync.Mutex
}

// NewJSONArrayWriter creates filename and prepares the writer.
func NewJSONArrayWriter(filename string) (*JSONArrayWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}

	return &JSONArrayWriter{
		path:    filename,
		file:    f,
		records: make([]models.ProductRecord, 0),
	}, nil
}

// Write buffers records until Close.
func (jw *JSONArrayWriter) Write(records []models.ProductRecord) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.file == nil {
		return fmt.Errorf("json writer closed")
	}
	jw.records = append(jw.records, records...)
	return nil
}

// Close encodes the buffered records and closes the file.
func (jw *JSONArrayWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.file == nil {
		return nil
	}
	f := jw.file
	jw.file = nil

	buffer := bufio.NewWriter(f)
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "    ")
	if err := encoder.Encode(jw.records); err != nil {
		f.Close()
		return fmt.Errorf("encode json records: %w", err)
	}
	if err := buffer.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush json writer: %w", err)
	}
	return f.Close()
}

// Validate ensures the JSON file has data.
func (jw *JSONArrayWriter) Validate() error {
	return validateFile(jw.path, "json")
}

// NewWriter creates the writer for format with files named after query
// inside dir. It returns the writer and the paths it will produce.
func NewWriter(format, dir, query string) (OutputWriter, []string, error) {
	jsonPath := filepath.Join(dir, OutputFileName(query, "json"))
	csvPath := filepath.Join(dir, OutputFileName(query, "csv"))

	switch format {
	case "json":
		w, err := NewJSONArrayWriter(jsonPath)
		return w, []string{jsonPath}, err
	case "csv":
		w, err := NewCSVWriter(csvPath)
		return w, []string{csvPath}, err
	case "dual":
		w, err := NewDualWriter(csvPath, jsonPath)
		return w, []string{csvPath, jsonPath}, err
	default:
		return nil, nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func validateFile(path, kind string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s file: %w", kind, err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("%s file is empty", kind)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
