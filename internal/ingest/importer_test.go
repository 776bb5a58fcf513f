// internal/ingest/importer_test.go
package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/replenish/internal/domain"
)

func TestParseCSVHappyPath(t *testing.T) {
	input := `product_id,location_id,date,units_sold,revenue,currency
p1,l1,2024-06-01,5,49.95,usd
p1,l1,2024-06-02,3,29.97,usd
p2,l1,2024-06-01,0,0,usd
`

	entries, rowErrs, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, entries, 3)

	first := entries[0]
	assert.Equal(t, "p1", first.ProductID)
	assert.Equal(t, "l1", first.LocationID)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, 5, first.UnitsSold)
	assert.Equal(t, "49.95", first.Revenue.String())
	assert.Equal(t, "USD", first.Currency)
	assert.Equal(t, domain.SourceImported, first.Source)
}

func TestParseCSVHeaderAliases(t *testing.T) {
	// Exports from different channels label the same columns differently.
	input := `SKU,Store ID,Sales Date,Qty
p1,l1,2024-06-01,5
`

	entries, rowErrs, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, entries, 1)
	assert.Equal(t, "p1", entries[0].ProductID)
	assert.Equal(t, "l1", entries[0].LocationID)
	assert.Equal(t, 5, entries[0].UnitsSold)
}

func TestParseCSVMissingRequiredColumn(t *testing.T) {
	input := `product_id,date,units_sold
p1,2024-06-01,5
`

	_, _, err := ParseCSV(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "location_id")
}

func TestParseCSVCollectsBadRows(t *testing.T) {
	input := `product_id,location_id,date,units_sold
p1,l1,2024-06-01,5
p1,l1,not-a-date,5
p1,l1,2024-06-02,-3
,l1,2024-06-03,2
p1,l1,2024-06-04,4
`

	entries, rowErrs, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	require.Len(t, rowErrs, 3)
	assert.Equal(t, 3, rowErrs[0].Line)
	assert.Contains(t, rowErrs[0].Reason, "date")
	assert.Contains(t, rowErrs[1].Reason, "negative")
	assert.Contains(t, rowErrs[2].Reason, "product")
}

func TestParseCSVAlternateDateFormats(t *testing.T) {
	input := `product_id,location_id,date,units_sold
p1,l1,2024/06/01,1
p1,l1,15/06/2024,2
`

	entries, rowErrs, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, entries, 2)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), entries[0].Date)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), entries[1].Date)
}

type recordingHistoryRepo struct {
	upserted []domain.SalesHistoryEntry
}

func (r *recordingHistoryRepo) FetchWindow(ctx context.Context, from, to time.Time) ([]domain.SalesHistoryEntry, error) {
	return nil, nil
}

func (r *recordingHistoryRepo) FetchPair(ctx context.Context, productID, locationID string, from, to time.Time) ([]domain.SalesHistoryEntry, error) {
	return nil, nil
}

func (r *recordingHistoryRepo) BulkUpsert(ctx context.Context, entries []domain.SalesHistoryEntry) (int, error) {
	r.upserted = append(r.upserted, entries...)
	return len(entries), nil
}

func TestImportDir(t *testing.T) {
	dir := t.TempDir()

	csvContent := `product_id,location_id,date,units_sold
p1,l1,2024-06-01,5
p1,l1,bad-date,5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sales.csv"), []byte(csvContent), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644))

	repo := &recordingHistoryRepo{}
	imp := NewImporter(repo, nil, t.TempDir())

	result, err := imp.ImportDir(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesProcessed)
	assert.Equal(t, 1, result.RowsImported)
	assert.Equal(t, 1, result.RowsRejected)
	require.Len(t, repo.upserted, 1)
	assert.Equal(t, "p1", repo.upserted[0].ProductID)
}

func TestImportBucketWithoutStorage(t *testing.T) {
	imp := NewImporter(&recordingHistoryRepo{}, nil, t.TempDir())

	_, err := imp.ImportBucket(context.Background(), "exports/")
	require.Error(t, err)
}
