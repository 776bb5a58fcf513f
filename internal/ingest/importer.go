// internal/ingest/importer.go
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/repository"
	"github.com/andresuchdata/replenish/internal/storage"
)

// ImportResult summarizes one import run.
type ImportResult struct {
	FilesProcessed int        `json:"files_processed"`
	RowsImported   int        `json:"rows_imported"`
	RowsRejected   int        `json:"rows_rejected"`
	Errors         []RowError `json:"errors,omitempty"`
}

// Importer loads daily sales exports (CSV or XLSX) into sales history.
// Files can come from a local directory or an S3-compatible bucket.
type Importer struct {
	history repository.SalesHistoryRepository
	objects storage.ObjectStorage
	workDir string
}

func NewImporter(history repository.SalesHistoryRepository, objects storage.ObjectStorage, workDir string) *Importer {
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &Importer{
		history: history,
		objects: objects,
		workDir: workDir,
	}
}

// ImportFile parses one local file and upserts its rows.
func (i *Importer) ImportFile(ctx context.Context, path string) (*ImportResult, error) {
	result := &ImportResult{}
	if err := i.importOne(ctx, path, result); err != nil {
		return nil, err
	}
	return result, nil
}

// ImportDir imports every CSV/XLSX file in a local directory. Files that
// fail wholesale (bad header, unreadable) abort the run: a malformed export
// usually means the upstream feed changed shape.
func (i *Importer) ImportDir(ctx context.Context, dir string) (*ImportResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read import directory %s: %w", dir, err)
	}

	result := &ImportResult{}
	for _, entry := range entries {
		if entry.IsDir() || !importableFile(entry.Name()) {
			continue
		}
		if err := i.importOne(ctx, filepath.Join(dir, entry.Name()), result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// ImportBucket downloads every object under prefix and imports it.
func (i *Importer) ImportBucket(ctx context.Context, prefix string) (*ImportResult, error) {
	if i.objects == nil {
		return nil, fmt.Errorf("object storage is not configured")
	}

	objects, err := i.objects.ListObjects(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects under %s: %w", prefix, err)
	}

	result := &ImportResult{}
	for _, obj := range objects {
		if !importableFile(obj.Key) {
			continue
		}

		dest := filepath.Join(i.workDir, filepath.Base(obj.Key))
		if err := i.objects.DownloadObject(ctx, obj.Key, dest); err != nil {
			return nil, fmt.Errorf("failed to download %s: %w", obj.Key, err)
		}

		err := i.importOne(ctx, dest, result)
		os.Remove(dest)
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (i *Importer) importOne(ctx context.Context, path string, result *ImportResult) error {
	csvPath := path
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		converted := filepath.Join(i.workDir, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+".csv")
		rows, err := xlsxToCSV(path, converted)
		if err != nil {
			return err
		}
		log.Debug().Str("file", filepath.Base(path)).Int("rows", rows).Msg("converted workbook to csv")
		defer os.Remove(converted)
		csvPath = converted
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", csvPath, err)
	}
	defer f.Close()

	entries, rowErrs, err := ParseCSV(f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	imported := 0
	if len(entries) > 0 {
		imported, err = i.history.BulkUpsert(ctx, entries)
		if err != nil {
			return fmt.Errorf("failed to upsert rows from %s: %w", path, err)
		}
	}

	result.FilesProcessed++
	result.RowsImported += imported
	result.RowsRejected += len(rowErrs)
	result.Errors = append(result.Errors, rowErrs...)

	log.Info().
		Str("file", filepath.Base(path)).
		Int("imported", imported).
		Int("rejected", len(rowErrs)).
		Msg("sales file imported")

	return nil
}

func importableFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".csv" || ext == ".xlsx"
}
