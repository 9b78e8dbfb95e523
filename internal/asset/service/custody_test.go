package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"assettrack/internal/asset/cache"
	"assettrack/internal/asset/models"
	"assettrack/internal/asset/store"
	dErrors "assettrack/pkg/domain-errors"
	"assettrack/pkg/requestcontext"
)

type CustodySuite struct {
	suite.Suite

	mem   *store.Memory
	svc   *Service
	ctx   context.Context
	now   time.Time
	asset *models.Asset
}

func TestCustodySuite(t *testing.T) {
	suite.Run(t, new(CustodySuite))
}

func (s *CustodySuite) SetupTest() {
	s.mem = store.NewMemory()
	logger := slog.New(slog.DiscardHandler)
	s.svc = New(s.mem.Stores(), s.mem,
		WithCache(cache.New(cache.NewMemoryStore(), logger)),
		WithLogger(logger),
	)
	s.now = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(requestcontext.WithActor(context.Background(), "amelia"), s.now)

	var err error
	s.asset, err = s.svc.Create(s.ctx, laptopPatch())
	s.Require().NoError(err)
}

func (s *CustodySuite) TestCheckoutOpensCustodyAndFlipsStatus() {
	custody, err := s.svc.Checkout(s.ctx, s.asset.ID, "emp-7", s.now, "field kit")
	s.Require().NoError(err)
	s.Equal("emp-7", custody.EmployeeID)
	s.True(custody.Active())

	got, err := s.svc.Get(s.ctx, s.asset.ID, false)
	s.Require().NoError(err)
	s.Equal(models.StatusCheckedOut, got.Status)

	events, err := s.svc.History(s.ctx, s.asset.ID)
	s.Require().NoError(err)
	kinds := make([]models.EventKind, 0, len(events))
	for _, ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	s.Equal([]models.EventKind{models.EventAdded, models.EventEdited, models.EventCheckout}, kinds)
}

func (s *CustodySuite) TestDoubleCheckoutNamesCurrentHolder() {
	_, err := s.svc.Checkout(s.ctx, s.asset.ID, "emp-7", s.now, "")
	s.Require().NoError(err)

	_, err = s.svc.Checkout(s.ctx, s.asset.ID, "emp-9", s.now, "")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.ErrorContains(err, "emp-7")
}

func (s *CustodySuite) TestCheckInClosesCustody() {
	_, err := s.svc.Checkout(s.ctx, s.asset.ID, "emp-7", s.now, "")
	s.Require().NoError(err)

	later := requestcontext.WithTime(s.ctx, s.now.Add(72*time.Hour))
	custody, err := s.svc.CheckIn(later, s.asset.ID, s.now.Add(72*time.Hour), "returned intact")
	s.Require().NoError(err)
	s.False(custody.Active())
	s.Equal("returned intact", custody.Note)

	got, err := s.svc.Get(later, s.asset.ID, false)
	s.Require().NoError(err)
	s.Equal(models.StatusAvailable, got.Status)

	rows, err := s.svc.ListCustody(later, s.asset.ID)
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.False(rows[0].Active())
}

func (s *CustodySuite) TestCheckInWithoutCheckoutIsConflict() {
	_, err := s.svc.CheckIn(s.ctx, s.asset.ID, s.now, "")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *CustodySuite) TestCheckoutAfterCheckInReopens() {
	_, err := s.svc.Checkout(s.ctx, s.asset.ID, "emp-7", s.now, "")
	s.Require().NoError(err)
	_, err = s.svc.CheckIn(s.ctx, s.asset.ID, s.now.Add(24*time.Hour), "")
	s.Require().NoError(err)
	_, err = s.svc.Checkout(s.ctx, s.asset.ID, "emp-9", s.now.Add(48*time.Hour), "")
	s.Require().NoError(err)

	rows, err := s.svc.ListCustody(s.ctx, s.asset.ID)
	s.Require().NoError(err)
	s.Len(rows, 2)

	active, err := s.svc.stores.Custody.FindActive(s.ctx, s.asset.ID)
	s.Require().NoError(err)
	s.Equal("emp-9", active.EmployeeID)
}

func (s *CustodySuite) TestCheckoutRequiresEmployee() {
	_, err := s.svc.Checkout(s.ctx, s.asset.ID, "", s.now, "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *CustodySuite) TestLeaseValidation() {
	_, err := s.svc.CreateLease(s.ctx, s.asset.ID, "", s.now, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	end := s.now.Add(-48 * time.Hour)
	_, err = s.svc.CreateLease(s.ctx, s.asset.ID, "Acme", s.now, &end)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *CustodySuite) TestListLeases() {
	end := s.now.Add(7 * 24 * time.Hour)
	_, err := s.svc.CreateLease(s.ctx, s.asset.ID, "Acme", s.now, &end)
	s.Require().NoError(err)

	leases, err := s.svc.ListLeases(s.ctx, s.asset.ID)
	s.Require().NoError(err)
	s.Require().Len(leases, 1)
	s.Equal("Acme", leases[0].Lessee)
	s.True(leases[0].ActiveAt(s.now))
	s.False(leases[0].ActiveAt(s.now.Add(8 * 24 * time.Hour)))
}
