package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"tickermark/internal/domain"
)

// Compile-time interface check.
var _ NewsStore = (*ParquetStore)(nil)

// ParquetStore implements NewsStore using one Parquet file per day.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// NewsRecord is the Parquet schema for archived news articles.
type NewsRecord struct {
	ID        string `parquet:"id"`
	Timestamp int64  `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Source    string `parquet:"source"`
	Symbols   string `parquet:"symbols"` // comma separated
	Headline  string `parquet:"headline"`
	Summary   string `parquet:"summary"`
	Content   string `parquet:"content"` // raw HTML
	URL       string `parquet:"url"`
}

// WriteNews writes articles to Parquet files grouped by UTC publication day:
//
//	<DataDir>/us/news/<YYYY-MM-DD>.parquet
func (s *ParquetStore) WriteNews(_ context.Context, articles []domain.Article) error {
	if len(articles) == 0 {
		return nil
	}

	groups := make(map[string][]NewsRecord)
	for _, a := range articles {
		date := a.Time.UTC().Format("2006-01-02")
		groups[date] = append(groups[date], toNewsRecord(a))
	}

	for date, records := range groups {
		t, _ := time.Parse("2006-01-02", date)
		path := s.newsPath(t)

		existing, _ := readParquetFile[NewsRecord](path)
		merged := mergeNewsRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing news for %s: %w", date, err)
		}
	}
	return nil
}

// ReadNews reads the articles archived for the UTC day containing date.
// A missing file yields no articles.
func (s *ParquetStore) ReadNews(_ context.Context, date time.Time) ([]domain.Article, error) {
	path := s.newsPath(date)
	records, err := readParquetFile[NewsRecord](path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	articles := make([]domain.Article, 0, len(records))
	for _, r := range records {
		articles = append(articles, fromNewsRecord(r))
	}
	return articles, nil
}

// ListNewsDates lists every day that has an archive file.
func (s *ParquetStore) ListNewsDates(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.DataDir, "us", "news"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dates []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".parquet") {
			continue
		}
		dates = append(dates, strings.TrimSuffix(name, ".parquet"))
	}
	sort.Strings(dates)
	return dates, nil
}

// ---------------------------------------------------------------------------
// Path helpers
// ---------------------------------------------------------------------------

// newsPath returns the filesystem path for a news Parquet file.
// Layout: <dataDir>/us/news/<YYYY-MM-DD>.parquet
func (s *ParquetStore) newsPath(t time.Time) string {
	date := t.UTC().Format("2006-01-02")
	return filepath.Join(s.DataDir, "us", "news", date+".parquet")
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func toNewsRecord(a domain.Article) NewsRecord {
	return NewsRecord{
		ID:        a.ID,
		Timestamp: a.Time.UnixMilli(),
		Source:    a.Source,
		Symbols:   strings.Join(a.Symbols, ","),
		Headline:  a.Headline,
		Summary:   a.Summary,
		Content:   a.Content,
		URL:       a.URL,
	}
}

func fromNewsRecord(r NewsRecord) domain.Article {
	var symbols []string
	if r.Symbols != "" {
		symbols = strings.Split(r.Symbols, ",")
	}
	return domain.Article{
		ID:       r.ID,
		Time:     time.UnixMilli(r.Timestamp).UTC(),
		Source:   r.Source,
		Symbols:  symbols,
		Headline: r.Headline,
		Summary:  r.Summary,
		Content:  r.Content,
		URL:      r.URL,
	}
}

// mergeNewsRecords deduplicates records by (source, id), preferring new
// records over existing ones. Results are sorted by timestamp.
func mergeNewsRecords(existing, incoming []NewsRecord) []NewsRecord {
	type key struct {
		source string
		id     string
	}
	seen := make(map[key]NewsRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Source, r.ID}] = r
	}
	for _, r := range incoming {
		seen[key{r.Source, r.ID}] = r
	}

	merged := make([]NewsRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Timestamp != merged[j].Timestamp {
			return merged[i].Timestamp < merged[j].Timestamp
		}
		return merged[i].ID < merged[j].ID
	})
	return merged
}
