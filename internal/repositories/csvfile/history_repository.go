package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"sync"

	"regwatch/internal/model"
	"regwatch/internal/repositories"
)

var Header = []string{"Title", "Link", "Source"}

// HistoryRepository stores history rows in a CSV file. Rows are only ever
// appended; the mutex serializes writers within the process.
type HistoryRepository struct {
	path string
	mu   sync.Mutex
}

func NewHistoryRepository(path string) *HistoryRepository {
	return &HistoryRepository{path: path}
}

func (r *HistoryRepository) Path() string {
	return r.path
}

func (r *HistoryRepository) EnsureExists(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, err := os.Stat(r.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("stat history: %w", err)
	case info.Size() > 0:
		return nil
	}

	f, err := os.OpenFile(r.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("create history: %w", err)
	}
	if err := writeAll(f, encode(Header)); err != nil {
		_ = f.Close()
		return fmt.Errorf("write history header: %w", err)
	}
	return f.Close()
}

func (r *HistoryRepository) LoadKnownURLs(ctx context.Context) (map[string]struct{}, error) {
	records, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(records))
	for _, rec := range records {
		known[rec.URL] = struct{}{}
	}
	return known, nil
}

// List reads every row. A missing or empty file is an empty history; a file
// whose header or rows are malformed yields ErrCorruptHistory.
func (r *HistoryRepository) List(_ context.Context) ([]model.HistoryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(Header)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", repositories.ErrCorruptHistory, err)
	}
	if !slices.Equal(header, Header) {
		return nil, fmt.Errorf("%w: unexpected header %q", repositories.ErrCorruptHistory, header)
	}

	var records []model.HistoryRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return nil, fmt.Errorf("%w: %v", repositories.ErrCorruptHistory, err)
			}
			return nil, fmt.Errorf("read history: %w", err)
		}
		records = append(records, model.HistoryRecord{Title: row[0], URL: row[1], Source: row[2]})
	}
	return records, nil
}

// Append encodes all rows up front and hands them to the file in one write,
// followed by fsync. If the file does not end in a newline (an earlier write
// was cut short) one is added first so the new rows cannot merge into the
// last existing row.
func (r *HistoryRepository) Append(_ context.Context, rows []model.HistoryRecord) error {
	if len(rows) == 0 {
		return nil
	}

	lines := make([][]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, []string{row.Title, row.URL, row.Source})
	}
	payload := encode(lines...)

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open history for append: %w", err)
	}

	prefix, err := repairPrefix(f)
	if err != nil {
		_ = f.Close()
		return err
	}

	if err := writeAll(f, append(prefix, payload...)); err != nil {
		_ = f.Close()
		return fmt.Errorf("append history: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close history: %w", err)
	}
	return nil
}

// repairPrefix returns what must precede new rows: the header for an empty
// file, a newline for a file with a truncated last line, or nothing.
func repairPrefix(f *os.File) ([]byte, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat history: %w", err)
	}
	if info.Size() == 0 {
		return encode(Header), nil
	}

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return nil, fmt.Errorf("read history tail: %w", err)
	}
	if last[0] != '\n' {
		return []byte("\r\n"), nil
	}
	return nil, nil
}

func writeAll(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// encode ends rows in \r\n, matching files written by Python's csv module.
func encode(rows ...[]string) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = true
	// encoding/csv only fails on write errors, which a bytes.Buffer never returns.
	_ = w.WriteAll(rows)
	return buf.Bytes()
}
