package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assettrack/internal/asset/models"
)

func sampleAsset() *models.Asset {
	purchase := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	return &models.Asset{
		Tag:          "A-100",
		Name:         "Dell Latitude",
		Category:     "laptop",
		Location:     "HQ",
		Status:       models.StatusAvailable,
		PurchaseDate: &purchase,
	}
}

func TestTermMatchesAcrossFieldsCaseInsensitively(t *testing.T) {
	pred := Build(Params{Term: "latitude"})
	assert.True(t, pred.Match(sampleAsset()))

	pred = Build(Params{Term: "LATITUDE"})
	assert.True(t, pred.Match(sampleAsset()))

	pred = Build(Params{Term: "nonexistent"})
	assert.False(t, pred.Match(sampleAsset()))
}

func TestTermRestrictedToRequestedFields(t *testing.T) {
	pred := Build(Params{Term: "latitude", Fields: []string{"tag"}})
	assert.False(t, pred.Match(sampleAsset()))

	pred = Build(Params{Term: "A-100", Fields: []string{"tag"}})
	assert.True(t, pred.Match(sampleAsset()))
}

func TestUnknownFieldNamesIgnored(t *testing.T) {
	pred := Build(Params{Term: "latitude", Fields: []string{"bogus", "name"}})
	assert.True(t, pred.Match(sampleAsset()))

	// Only unknown fields requested: term filter drops out entirely.
	pred = Build(Params{Term: "anything", Fields: []string{"bogus"}})
	assert.True(t, pred.Match(sampleAsset()))
}

func TestDateTermMatchesCalendarDay(t *testing.T) {
	pred := Build(Params{Term: "2024-01-10", Fields: []string{"purchase_date"}})
	assert.True(t, pred.Match(sampleAsset()))

	pred = Build(Params{Term: "2024-01-11", Fields: []string{"purchase_date"}})
	assert.False(t, pred.Match(sampleAsset()))
}

func TestStructuredFiltersAndTermCompose(t *testing.T) {
	pred := Build(Params{Term: "latitude", Category: "laptop", Status: models.StatusAvailable})
	assert.True(t, pred.Match(sampleAsset()))

	pred = Build(Params{Term: "latitude", Category: "monitor"})
	assert.False(t, pred.Match(sampleAsset()))
}

func TestDeletedExcludedByDefault(t *testing.T) {
	deleted := sampleAsset()
	deleted.IsDeleted = true

	assert.False(t, Build(Params{}).Match(deleted))
	assert.True(t, Build(Params{IncludeDeleted: true}).Match(deleted))
}

func TestPurchaseDateRange(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	pred := Build(Params{From: &from, To: &to})
	assert.True(t, pred.Match(sampleAsset()))

	to = time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	pred = Build(Params{From: &from, To: &to})
	assert.False(t, pred.Match(sampleAsset()))
}

func TestSQLPlaceholderNumbering(t *testing.T) {
	pred := Build(Params{Term: "x", Fields: []string{"tag", "name"}, Category: "laptop"})
	clause, args := pred.SQL(1)

	assert.Contains(t, clause, "NOT is_deleted")
	assert.Contains(t, clause, "tag ILIKE $1")
	assert.Contains(t, clause, "name ILIKE $2")
	assert.Contains(t, clause, "category = $3")
	require.Len(t, args, 3)
	assert.Equal(t, "%x%", args[0])
}

func TestLikeEscaping(t *testing.T) {
	pred := Build(Params{Term: "100%", Fields: []string{"tag"}})
	_, args := pred.SQL(1)
	require.Len(t, args, 1)
	assert.Equal(t, `%100\%%`, args[0])
}

func TestNormalizeBounds(t *testing.T) {
	p := Params{Page: 0, PageSize: 1000}.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, maxPageSize, p.PageSize)
	assert.Equal(t, 0, p.Offset())

	p = Params{Page: 3, PageSize: 10}.Normalize()
	assert.Equal(t, 20, p.Offset())
}
