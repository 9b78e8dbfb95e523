package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"assettrack/internal/asset/cache"
	"assettrack/internal/asset/models"
	"assettrack/internal/asset/query"
	"assettrack/internal/asset/store"
	dErrors "assettrack/pkg/domain-errors"
	"assettrack/pkg/requestcontext"
)

func assetQuery(term string) query.Params {
	return query.Params{Term: term}
}

type ServiceSuite struct {
	suite.Suite

	mem        *store.Memory
	cacheStore *cache.MemoryStore
	svc        *Service
	ctx        context.Context
	now        time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.mem = store.NewMemory()
	s.cacheStore = cache.NewMemoryStore()
	logger := slog.New(slog.DiscardHandler)
	s.svc = New(s.mem.Stores(), s.mem,
		WithCache(cache.New(s.cacheStore, logger)),
		WithLogger(logger),
	)
	s.now = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(requestcontext.WithActor(context.Background(), "amelia"), s.now)
}

func (s *ServiceSuite) create(patch models.AssetPatch) *models.Asset {
	asset, err := s.svc.Create(s.ctx, patch)
	s.Require().NoError(err)
	return asset
}

func laptopPatch() models.AssetPatch {
	var p models.AssetPatch
	p.Tag = models.Set("LT-0042")
	p.Name = models.Set("Dev Laptop")
	p.Location = models.Set("Berlin HQ")
	p.Department = models.Set("Engineering")
	p.Cost = models.Set("1500.00")
	return p
}

func (s *ServiceSuite) TestCreateRecordsAddedEvent() {
	asset := s.create(laptopPatch())

	s.Equal("LT-0042", asset.Tag)
	s.Equal(models.StatusAvailable, asset.Status)

	events, err := s.svc.History(s.ctx, asset.ID)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(models.EventAdded, events[0].Kind)
	s.Empty(events[0].Field)
	s.Equal("amelia", events[0].Actor)
	s.Equal(s.now, events[0].EventDate)
}

func (s *ServiceSuite) TestCreateRequiresTagAndName() {
	var p models.AssetPatch
	p.Name = models.Set("No Tag")
	_, err := s.svc.Create(s.ctx, p)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	p = models.AssetPatch{}
	p.Tag = models.Set("LT-1")
	_, err = s.svc.Create(s.ctx, p)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestCreateRejectsDuplicateTag() {
	s.create(laptopPatch())
	_, err := s.svc.Create(s.ctx, laptopPatch())
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.ErrorContains(err, "LT-0042")
}

func (s *ServiceSuite) TestMutationsSucceedWithoutCache() {
	// Constructing without WithCache is a sanctioned wiring; every mutation
	// path must treat invalidation as a no-op rather than assume a backend.
	uncached := New(s.mem.Stores(), s.mem, WithLogger(slog.New(slog.DiscardHandler)))

	asset, err := uncached.Create(s.ctx, laptopPatch())
	s.Require().NoError(err)

	var p models.AssetPatch
	p.Location = models.Set("Munich")
	_, events, err := uncached.Update(s.ctx, asset.ID, p)
	s.Require().NoError(err)
	s.Len(events, 1)

	_, err = uncached.Move(s.ctx, models.MoveRequest{
		AssetID:  asset.ID,
		Target:   models.LocationTarget{Location: "Hamburg"},
		MoveDate: s.now,
	})
	s.Require().NoError(err)

	s.Require().NoError(uncached.SoftDelete(s.ctx, asset.ID))

	got, err := uncached.Get(s.ctx, asset.ID, true)
	s.Require().NoError(err)
	s.True(got.IsDeleted)
}

func (s *ServiceSuite) TestCreateAllowsTagOfSoftDeletedAsset() {
	first := s.create(laptopPatch())
	s.Require().NoError(s.svc.SoftDelete(s.ctx, first.ID))

	second, err := s.svc.Create(s.ctx, laptopPatch())
	s.Require().NoError(err)
	s.NotEqual(first.ID, second.ID)
}

func (s *ServiceSuite) TestUpdateEmitsOneEventPerChangedField() {
	asset := s.create(laptopPatch())

	var p models.AssetPatch
	p.Name = models.Set("Dev Laptop 2")
	p.Location = models.Set("Munich")
	p.Serial = models.Set("SN-9")
	updated, events, err := s.svc.Update(s.ctx, asset.ID, p)
	s.Require().NoError(err)
	s.Equal("Dev Laptop 2", updated.Name)
	s.Require().Len(events, 3)

	// Events follow the field registry order, not the patch order.
	s.Equal("name", events[0].Field)
	s.Equal("serial", events[1].Field)
	s.Equal("location", events[2].Field)
	s.Equal("Berlin HQ", events[2].ChangeFrom)
	s.Equal("Munich", events[2].ChangeTo)
	for _, ev := range events {
		s.Equal(models.EventEdited, ev.Kind)
	}
}

func (s *ServiceSuite) TestUpdateEquivalentCostIsNoOp() {
	asset := s.create(laptopPatch())

	var p models.AssetPatch
	p.Cost = models.Set("1500")
	updated, events, err := s.svc.Update(s.ctx, asset.ID, p)
	s.Require().NoError(err)
	s.Empty(events)
	s.Equal(asset.UpdatedAt, updated.UpdatedAt)

	history, err := s.svc.History(s.ctx, asset.ID)
	s.Require().NoError(err)
	s.Len(history, 1) // only the creation event
}

func (s *ServiceSuite) TestUpdateNullOntoEmptyIsNoOp() {
	asset := s.create(laptopPatch())

	// Serial was never set; explicit null clears it "again".
	var p models.AssetPatch
	p.Serial = models.Set("")
	_, events, err := s.svc.Update(s.ctx, asset.ID, p)
	s.Require().NoError(err)
	s.Empty(events)
}

func (s *ServiceSuite) TestUpdateClearingFieldAuditsEmptyTarget() {
	asset := s.create(laptopPatch())

	var p models.AssetPatch
	p.Location = models.Set("")
	updated, events, err := s.svc.Update(s.ctx, asset.ID, p)
	s.Require().NoError(err)
	s.Empty(updated.Location)
	s.Require().Len(events, 1)
	s.Equal("Berlin HQ", events[0].ChangeFrom)
	s.Empty(events[0].ChangeTo)
}

func (s *ServiceSuite) TestUpdateIsIdempotent() {
	asset := s.create(laptopPatch())

	var p models.AssetPatch
	p.Location = models.Set("Munich")
	_, events, err := s.svc.Update(s.ctx, asset.ID, p)
	s.Require().NoError(err)
	s.Len(events, 1)

	_, events, err = s.svc.Update(s.ctx, asset.ID, p)
	s.Require().NoError(err)
	s.Empty(events)

	history, err := s.svc.History(s.ctx, asset.ID)
	s.Require().NoError(err)
	s.Len(history, 2) // added + one edit
}

func (s *ServiceSuite) TestUpdateRejectsTagCollision() {
	s.create(laptopPatch())
	other := laptopPatch()
	other.Tag = models.Set("LT-0043")
	second := s.create(other)

	var p models.AssetPatch
	p.Tag = models.Set("LT-0042")
	_, _, err := s.svc.Update(s.ctx, second.ID, p)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestUpdateUnknownAsset() {
	var p models.AssetPatch
	p.Name = models.Set("x")
	_, _, err := s.svc.Update(s.ctx, uuid.New(), p)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// failingHistory rejects appends to force a rollback mid-mutation.
type failingHistory struct {
	store.HistoryStore
	failAfter int
	appended  int
}

func (f *failingHistory) Append(ctx context.Context, ev *models.HistoryEvent) error {
	if f.appended >= f.failAfter {
		return errors.New("history store down")
	}
	f.appended++
	return f.HistoryStore.Append(ctx, ev)
}

func (s *ServiceSuite) TestUpdateRollsBackWhenHistoryWriteFails() {
	asset := s.create(laptopPatch())

	stores := s.mem.Stores()
	stores.History = &failingHistory{HistoryStore: stores.History}
	broken := New(stores, s.mem, WithLogger(slog.New(slog.DiscardHandler)))

	var p models.AssetPatch
	p.Name = models.Set("Renamed")
	p.Location = models.Set("Munich")
	_, _, err := broken.Update(s.ctx, asset.ID, p)
	s.Require().Error(err)

	// The asset row and the audit trail are both untouched.
	got, err := s.svc.stores.Assets.FindByID(s.ctx, asset.ID, false)
	s.Require().NoError(err)
	s.Equal("Dev Laptop", got.Name)
	s.Equal("Berlin HQ", got.Location)

	events, err := s.svc.stores.History.ListByAsset(s.ctx, asset.ID)
	s.Require().NoError(err)
	s.Len(events, 1)
}

func (s *ServiceSuite) TestPartialHistoryWriteRollsBackEverything() {
	asset := s.create(laptopPatch())

	stores := s.mem.Stores()
	stores.History = &failingHistory{HistoryStore: stores.History, failAfter: 1}
	broken := New(stores, s.mem, WithLogger(slog.New(slog.DiscardHandler)))

	var p models.AssetPatch
	p.Name = models.Set("Renamed")
	p.Location = models.Set("Munich")
	_, _, err := broken.Update(s.ctx, asset.ID, p)
	s.Require().Error(err)

	// The first event of the batch was appended inside the transaction and
	// must not survive the rollback.
	events, err := s.svc.stores.History.ListByAsset(s.ctx, asset.ID)
	s.Require().NoError(err)
	s.Len(events, 1)
}

func (s *ServiceSuite) TestSoftDeleteHidesAssetButKeepsTrail() {
	asset := s.create(laptopPatch())
	s.Require().NoError(s.svc.SoftDelete(s.ctx, asset.ID))

	_, err := s.svc.Get(s.ctx, asset.ID, false)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	got, err := s.svc.Get(s.ctx, asset.ID, true)
	s.Require().NoError(err)
	s.True(got.IsDeleted)
	s.NotNil(got.DeletedAt)

	events, err := s.svc.History(s.ctx, asset.ID)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(models.EventDeleted, events[1].Kind)
}

func (s *ServiceSuite) TestSoftDeleteTwiceIsNotFound() {
	asset := s.create(laptopPatch())
	s.Require().NoError(s.svc.SoftDelete(s.ctx, asset.ID))
	err := s.svc.SoftDelete(s.ctx, asset.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestHardDeleteKeepsHistoryAndMoves() {
	asset := s.create(laptopPatch())
	_, err := s.svc.Move(s.ctx, models.MoveRequest{
		AssetID:  asset.ID,
		Target:   models.LocationTarget{Location: "Munich"},
		MoveDate: s.now,
	})
	s.Require().NoError(err)
	_, err = s.svc.Checkout(s.ctx, asset.ID, "emp-7", s.now, "")
	s.Require().NoError(err)

	s.Require().NoError(s.svc.HardDelete(s.ctx, asset.ID))

	_, err = s.svc.Get(s.ctx, asset.ID, true)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	events, err := s.svc.stores.History.ListByAsset(s.ctx, asset.ID)
	s.Require().NoError(err)
	s.NotEmpty(events)
	s.Equal(models.EventDeleted, events[len(events)-1].Kind)

	moves, err := s.svc.stores.Moves.ListByAsset(s.ctx, asset.ID)
	s.Require().NoError(err)
	s.Len(moves, 1)

	custody, err := s.svc.stores.Custody.ListByAsset(s.ctx, asset.ID)
	s.Require().NoError(err)
	s.Empty(custody)
}

func (s *ServiceSuite) TestPurgeRemovesOnlyExpiredDeletions() {
	keep := s.create(laptopPatch())
	expired := laptopPatch()
	expired.Tag = models.Set("LT-0099")
	old := s.create(expired)

	// Soft-delete the old asset well before the retention cutoff.
	pastCtx := requestcontext.WithTime(s.ctx, s.now.Add(-40*24*time.Hour))
	s.Require().NoError(s.svc.SoftDelete(pastCtx, old.ID))
	s.Require().NoError(s.svc.SoftDelete(s.ctx, keep.ID))

	historyBefore, err := s.svc.stores.History.ListByAsset(s.ctx, old.ID)
	s.Require().NoError(err)

	purged, err := s.svc.PurgeExpired(s.ctx, 30*24*time.Hour)
	s.Require().NoError(err)
	s.Equal(1, purged)

	_, err = s.svc.Get(s.ctx, old.ID, true)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	_, err = s.svc.Get(s.ctx, keep.ID, true)
	s.NoError(err)

	// Purge writes no additional history; the soft delete already did.
	historyAfter, err := s.svc.stores.History.ListByAsset(s.ctx, old.ID)
	s.Require().NoError(err)
	s.Len(historyAfter, len(historyBefore))
}

func (s *ServiceSuite) TestListFiltersAndSummarizes() {
	s.create(laptopPatch())
	second := laptopPatch()
	second.Tag = models.Set("PR-0001")
	second.Name = models.Set("Printer")
	second.Category = models.Set("peripherals")
	second.Cost = models.Set("300")
	s.create(second)

	result, err := s.svc.List(s.ctx, assetQuery("printer"))
	s.Require().NoError(err)
	s.Require().Len(result.Items, 1)
	s.Equal("PR-0001", result.Items[0].Tag)
	s.Equal(1, result.TotalCount)
	s.InDelta(300, result.Summary.TotalCost, 0.001)

	all, err := s.svc.List(s.ctx, assetQuery(""))
	s.Require().NoError(err)
	s.Len(all.Items, 2)
	s.InDelta(1800, all.Summary.TotalCost, 0.001)
	s.Equal(2, all.Summary.ByStatus[string(models.StatusAvailable)])
}

func (s *ServiceSuite) TestCacheServesStaleUntilInvalidated() {
	asset := s.create(laptopPatch())

	first, err := s.svc.Get(s.ctx, asset.ID, false)
	s.Require().NoError(err)
	s.Equal("Dev Laptop", first.Name)

	// Mutate the store behind the cache's back; the cached read still wins.
	raw, err := s.svc.stores.Assets.FindByID(s.ctx, asset.ID, false)
	s.Require().NoError(err)
	raw.Name = "Shadow Write"
	s.Require().NoError(s.svc.stores.Assets.Update(s.ctx, raw))

	cached, err := s.svc.Get(s.ctx, asset.ID, false)
	s.Require().NoError(err)
	s.Equal("Dev Laptop", cached.Name)

	// A committed update invalidates, so the next read observes new state.
	var p models.AssetPatch
	p.Name = models.Set("Visible Write")
	_, _, err = s.svc.Update(s.ctx, asset.ID, p)
	s.Require().NoError(err)

	fresh, err := s.svc.Get(s.ctx, asset.ID, false)
	s.Require().NoError(err)
	s.Equal("Visible Write", fresh.Name)
}

func (s *ServiceSuite) TestFailedMutationLeavesCacheIntact() {
	asset := s.create(laptopPatch())
	_, err := s.svc.Get(s.ctx, asset.ID, false) // warm the cache
	s.Require().NoError(err)
	warmed := s.cacheStore.Len()

	var p models.AssetPatch
	p.Name = models.Set("")
	_, _, err = s.svc.Update(s.ctx, asset.ID, p)
	s.Require().Error(err)
	s.Equal(warmed, s.cacheStore.Len())
}

func (s *ServiceSuite) TestHistoryUnknownAsset() {
	_, err := s.svc.History(s.ctx, uuid.New())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
