package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mockupdesk/listing-server-go/internal/model"
)

type mockSessionRepo struct {
	deleteExpiredCalls atomic.Int64
}

func (m *mockSessionRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.Session, error) {
	return nil, nil
}

func (m *mockSessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	return nil, nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, id string) error {
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	m.deleteExpiredCalls.Add(1)
	return 2, nil
}

type mockStateRepo struct {
	purgeCalls atomic.Int64
}

func (m *mockStateRepo) Insert(ctx context.Context, params model.CreateOAuthStateParams) (*model.OAuthState, error) {
	return nil, nil
}

func (m *mockStateRepo) Consume(ctx context.Context, state string) (*model.OAuthState, error) {
	return nil, nil
}

func (m *mockStateRepo) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	m.purgeCalls.Add(1)
	return 1, nil
}

func TestCleanupJob(t *testing.T) {
	t.Run("creates job with correct interval", func(t *testing.T) {
		job := NewCleanupJob(nil, nil, 5*time.Minute)

		assert.NotNil(t, job)
		assert.Equal(t, 5*time.Minute, job.interval)
	})

	t.Run("runs cleanup on start and stops cleanly", func(t *testing.T) {
		sessionRepo := &mockSessionRepo{}
		stateRepo := &mockStateRepo{}

		job := NewCleanupJob(sessionRepo, stateRepo, 1*time.Hour)

		job.Start()
		time.Sleep(20 * time.Millisecond)
		job.Stop()

		assert.GreaterOrEqual(t, sessionRepo.deleteExpiredCalls.Load(), int64(1))
		assert.GreaterOrEqual(t, stateRepo.purgeCalls.Load(), int64(1))
	})
}
