package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/cinetick/cinetick/internal/domain"
)

type MockShowRepo struct {
	mock.Mock
	domain.ShowRepository
}

func (m *MockShowRepo) Create(ctx context.Context, show *domain.ShowInstance) error {
	args := m.Called(ctx, show)
	return args.Error(0)
}

func (m *MockShowRepo) GetById(ctx context.Context, id uuid.UUID) (*domain.ShowInstance, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShowInstance), args.Error(1)
}

func (m *MockShowRepo) GetUpcoming(
	ctx context.Context,
	after time.Time,
	pagination domain.Pagination) ([]*domain.ShowInstance, *domain.Metadata, error) {

	args := m.Called(ctx, after, pagination)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]*domain.ShowInstance), args.Get(1).(*domain.Metadata), args.Error(2)
}

func (m *MockShowRepo) Cancel(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
