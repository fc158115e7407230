package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dmarkhas/tinylink/internal/models"
)

type MockStore struct {
	mock.Mock
}

func (s *MockStore) CreateOwner(ctx context.Context, attrs models.OwnerAttrs) (*models.Owner, error) {
	args := s.Called(ctx, attrs)
	owner, _ := args.Get(0).(*models.Owner)
	return owner, args.Error(1)
}

func (s *MockStore) OwnerByEmail(ctx context.Context, email string) (*models.Owner, error) {
	args := s.Called(ctx, email)
	owner, _ := args.Get(0).(*models.Owner)
	return owner, args.Error(1)
}

func (s *MockStore) OwnerByID(ctx context.Context, id int64) (*models.Owner, error) {
	args := s.Called(ctx, id)
	owner, _ := args.Get(0).(*models.Owner)
	return owner, args.Error(1)
}

func (s *MockStore) FindByShortCode(ctx context.Context, shortCode string) (*models.Owner, *models.URLRecord, error) {
	args := s.Called(ctx, shortCode)
	owner, _ := args.Get(0).(*models.Owner)
	rec, _ := args.Get(1).(*models.URLRecord)
	return owner, rec, args.Error(2)
}

func (s *MockStore) ShortCodeExists(ctx context.Context, shortCode string) (bool, error) {
	args := s.Called(ctx, shortCode)
	return args.Bool(0), args.Error(1)
}

func (s *MockStore) AppendRecord(ctx context.Context, ownerID int64, rec *models.URLRecord) (*models.URLRecord, error) {
	args := s.Called(ctx, ownerID, rec)
	created, _ := args.Get(0).(*models.URLRecord)
	return created, args.Error(1)
}

func (s *MockStore) IncrementStats(ctx context.Context, shortCode string) error {
	args := s.Called(ctx, shortCode)
	return args.Error(0)
}

func (s *MockStore) ListRecords(ctx context.Context, ownerID int64) ([]models.URLRecord, error) {
	args := s.Called(ctx, ownerID)
	records, _ := args.Get(0).([]models.URLRecord)
	return records, args.Error(1)
}

func (s *MockStore) CollisionStats(ctx context.Context) (*models.CollisionStats, error) {
	args := s.Called(ctx)
	stats, _ := args.Get(0).(*models.CollisionStats)
	return stats, args.Error(1)
}
