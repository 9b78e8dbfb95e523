package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"assettrack/internal/asset/models"
	"assettrack/internal/asset/query"
	"assettrack/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	mem    *Memory
	stores Stores
	ctx    context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.mem = NewMemory()
	s.stores = s.mem.Stores()
	s.ctx = context.Background()
}

func (s *MemoryStoreSuite) newAsset(tag string) *models.Asset {
	now := time.Now()
	return &models.Asset{
		ID:        uuid.New(),
		Tag:       tag,
		Name:      "Asset " + tag,
		Status:    models.StatusAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *MemoryStoreSuite) TestInsertAndFind() {
	asset := s.newAsset("A-1")
	s.Require().NoError(s.stores.Assets.Insert(s.ctx, asset))

	found, err := s.stores.Assets.FindByID(s.ctx, asset.ID, false)
	s.Require().NoError(err)
	s.Equal("A-1", found.Tag)

	_, err = s.stores.Assets.FindByID(s.ctx, uuid.New(), false)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestTagUniquenessAmongNonDeleted() {
	first := s.newAsset("DUP")
	s.Require().NoError(s.stores.Assets.Insert(s.ctx, first))

	second := s.newAsset("dup") // case-insensitive collision
	s.Require().ErrorIs(s.stores.Assets.Insert(s.ctx, second), sentinel.ErrConflict)

	// Soft-deleting the holder frees the tag.
	s.Require().NoError(s.stores.Assets.MarkDeleted(s.ctx, first.ID, time.Now()))
	s.Require().NoError(s.stores.Assets.Insert(s.ctx, second))
}

func (s *MemoryStoreSuite) TestSoftDeletedHiddenFromDefaultReads() {
	asset := s.newAsset("A-2")
	s.Require().NoError(s.stores.Assets.Insert(s.ctx, asset))
	s.Require().NoError(s.stores.Assets.MarkDeleted(s.ctx, asset.ID, time.Now()))

	_, err := s.stores.Assets.FindByID(s.ctx, asset.ID, false)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	found, err := s.stores.Assets.FindByID(s.ctx, asset.ID, true)
	s.Require().NoError(err)
	s.True(found.IsDeleted)
	s.NotNil(found.DeletedAt)
}

func (s *MemoryStoreSuite) TestListOrderingAndPagination() {
	for _, tag := range []string{"C-3", "A-1", "B-2"} {
		s.Require().NoError(s.stores.Assets.Insert(s.ctx, s.newAsset(tag)))
	}

	pred := query.Build(query.Params{})
	assets, err := s.stores.Assets.List(s.ctx, pred, 2, 0)
	s.Require().NoError(err)
	s.Require().Len(assets, 2)
	s.Equal("A-1", assets[0].Tag)
	s.Equal("B-2", assets[1].Tag)

	assets, err = s.stores.Assets.List(s.ctx, pred, 2, 2)
	s.Require().NoError(err)
	s.Require().Len(assets, 1)
	s.Equal("C-3", assets[0].Tag)

	count, err := s.stores.Assets.Count(s.ctx, pred)
	s.Require().NoError(err)
	s.Equal(3, count)
}

func (s *MemoryStoreSuite) TestSummarize() {
	a := s.newAsset("A-1")
	a.Cost = "100.50"
	b := s.newAsset("B-2")
	b.Cost = "49.50"
	b.Status = models.StatusCheckedOut
	s.Require().NoError(s.stores.Assets.Insert(s.ctx, a))
	s.Require().NoError(s.stores.Assets.Insert(s.ctx, b))

	summary, err := s.stores.Assets.Summarize(s.ctx, query.Build(query.Params{}))
	s.Require().NoError(err)
	s.Equal(2, summary.TotalCount)
	s.InDelta(150.0, summary.TotalCost, 0.001)
	s.Equal(1, summary.ByStatus["available"])
	s.Equal(1, summary.ByStatus["checked_out"])
}

func (s *MemoryStoreSuite) TestActiveCustodySelection() {
	assetID := uuid.New()
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	closedAt := old.AddDate(0, 0, 5)

	closed := &models.Custody{ID: uuid.New(), AssetID: assetID, EmployeeID: "e1", CheckedOut: old, CheckedIn: &closedAt}
	open := &models.Custody{ID: uuid.New(), AssetID: assetID, EmployeeID: "e2", CheckedOut: old.AddDate(0, 0, 10)}
	s.Require().NoError(s.stores.Custody.Insert(s.ctx, closed))
	s.Require().NoError(s.stores.Custody.Insert(s.ctx, open))

	active, err := s.stores.Custody.FindActive(s.ctx, assetID)
	s.Require().NoError(err)
	s.Equal("e2", active.EmployeeID)

	// Closing it leaves none active.
	now := time.Now()
	active.CheckedIn = &now
	s.Require().NoError(s.stores.Custody.Update(s.ctx, active))
	_, err = s.stores.Custody.FindActive(s.ctx, assetID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestLeaseActiveAt() {
	assetID := uuid.New()
	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	lease := &models.Lease{ID: uuid.New(), AssetID: assetID, Lessee: "Acme Corp", LeaseStart: end.AddDate(0, -2, 0), LeaseEnd: &end}
	s.Require().NoError(s.stores.Leases.Insert(s.ctx, lease))

	found, err := s.stores.Leases.FindActiveAt(s.ctx, assetID, end.AddDate(0, 0, -1))
	s.Require().NoError(err)
	s.Equal("Acme Corp", found.Lessee)

	_, err = s.stores.Leases.FindActiveAt(s.ctx, assetID, end.AddDate(0, 0, 1))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestRunInTxRollsBackAllStores() {
	asset := s.newAsset("A-1")
	s.Require().NoError(s.stores.Assets.Insert(s.ctx, asset))

	boom := errors.New("boom")
	err := s.mem.RunInTx(s.ctx, func(ctx context.Context) error {
		updated := asset.Clone()
		updated.Location = "Branch-2"
		if err := s.stores.Assets.Update(ctx, updated); err != nil {
			return err
		}
		event := &models.HistoryEvent{ID: uuid.New(), AssetID: asset.ID, Kind: models.EventEdited, CreatedAt: time.Now()}
		if err := s.stores.History.Append(ctx, event); err != nil {
			return err
		}
		return boom
	})
	s.Require().ErrorIs(err, boom)

	// Asset mutation and history append both rolled back.
	found, err := s.stores.Assets.FindByID(s.ctx, asset.ID, false)
	s.Require().NoError(err)
	s.Equal("", found.Location)

	events, err := s.stores.History.ListByAsset(s.ctx, asset.ID)
	s.Require().NoError(err)
	s.Empty(events)
}

func (s *MemoryStoreSuite) TestRunInTxCommits() {
	asset := s.newAsset("A-1")
	err := s.mem.RunInTx(s.ctx, func(ctx context.Context) error {
		return s.stores.Assets.Insert(ctx, asset)
	})
	s.Require().NoError(err)

	_, err = s.stores.Assets.FindByID(s.ctx, asset.ID, false)
	s.Require().NoError(err)
}

func (s *MemoryStoreSuite) TestPurgeSelection() {
	old := s.newAsset("OLD")
	fresh := s.newAsset("FRESH")
	s.Require().NoError(s.stores.Assets.Insert(s.ctx, old))
	s.Require().NoError(s.stores.Assets.Insert(s.ctx, fresh))

	now := time.Now()
	s.Require().NoError(s.stores.Assets.MarkDeleted(s.ctx, old.ID, now.AddDate(0, 0, -40)))
	s.Require().NoError(s.stores.Assets.MarkDeleted(s.ctx, fresh.ID, now.AddDate(0, 0, -5)))

	ids, err := s.stores.Assets.ListDeletedBefore(s.ctx, now.AddDate(0, 0, -30))
	s.Require().NoError(err)
	s.Require().Len(ids, 1)
	s.Equal(old.ID, ids[0])
}
