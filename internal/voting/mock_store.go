package voting

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) LoadEvent(ctx context.Context, id string) (*Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Event), args.Error(1)
}

func (m *MockStore) CreateEvent(ctx context.Context, ev *Event, placeholders []VoteRecord) (string, error) {
	args := m.Called(ctx, ev, placeholders)
	return args.String(0), args.Error(1)
}

func (m *MockStore) UpdateEventPeriod(ctx context.Context, id string, start, end time.Time) error {
	args := m.Called(ctx, id, start, end)
	return args.Error(0)
}

func (m *MockStore) FindByUnifiedID(ctx context.Context, eventID, unifiedID string) (*VoteRecord, error) {
	args := m.Called(ctx, eventID, unifiedID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*VoteRecord), args.Error(1)
}

func (m *MockStore) FindIndividualVoter(ctx context.Context, voterID string) (*VoteRecord, error) {
	args := m.Called(ctx, voterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*VoteRecord), args.Error(1)
}

func (m *MockStore) FindDuplicateByEmail(ctx context.Context, eventID, email, excludingUnifiedID string) (*VoteRecord, error) {
	args := m.Called(ctx, eventID, email, excludingUnifiedID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*VoteRecord), args.Error(1)
}

func (m *MockStore) Upsert(ctx context.Context, eventID string, auth AuthContext, voteData []VoteItem, name string, votedAt time.Time) (*VoteRecord, error) {
	args := m.Called(ctx, eventID, auth, voteData, name, votedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*VoteRecord), args.Error(1)
}

func (m *MockStore) ListVoters(ctx context.Context, eventID string, socialOnly bool) ([]VoteRecord, error) {
	args := m.Called(ctx, eventID, socialOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]VoteRecord), args.Error(1)
}
