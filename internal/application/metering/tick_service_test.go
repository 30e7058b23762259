package metering

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vicemeter/backend/internal/domain/identity"
	"github.com/vicemeter/backend/internal/domain/metering"
	"github.com/vicemeter/backend/internal/domain/shared"
	"github.com/vicemeter/backend/internal/infrastructure/cache"
	"github.com/vicemeter/backend/internal/infrastructure/persistence"
)

type tickFixture struct {
	service  *TickService
	buckets  *persistence.MemoryBucketRepository
	sessions *persistence.MemorySessionRepository
	session  *identity.Session
}

func newTickFixture(t *testing.T, dedupe shared.IdempotencyStore) *tickFixture {
	t.Helper()
	f := &tickFixture{
		buckets:  persistence.NewMemoryBucketRepository(),
		sessions: persistence.NewMemorySessionRepository(),
	}

	session, err := identity.NewSession("user-1", "chrome")
	require.NoError(t, err)
	require.NoError(t, f.sessions.Create(context.Background(), session))
	f.session = session

	cfg := shared.DefaultIdempotencyConfig()
	cfg.Enabled = dedupe != nil
	f.service = NewTickService(f.buckets, f.sessions, nil, dedupe, cfg, zap.NewNop())
	return f
}

func TestTickService_IngestBatch(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2025, 6, 12, 14, 0, 0, 0, time.UTC)

	t.Run("accepts flagged usage", func(t *testing.T) {
		f := newTickFixture(t, nil)

		result, err := f.service.IngestBatch(ctx, TickBatchInput{
			SessionID: f.session.ID,
			UserID:    "user-1",
			Events: []TickEventInput{
				{EventID: "e1", URL: "https://www.pornhub.com/video/1", Seconds: 90, At: at},
				{EventID: "e2", URL: "bet365.com", Seconds: 30, At: at},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, result.Accepted)
		assert.Equal(t, 0, result.Rejected)

		bucket, err := f.buckets.GetBucket(ctx, "user-1", "2025-06-12")
		require.NoError(t, err)
		assert.Equal(t, 1, bucket.MinutesFor(metering.CategoryPorn))
		assert.Equal(t, 90, bucket.ByDomain["pornhub.com"].Seconds)
		assert.Equal(t, 30, bucket.ByDomain["bet365.com"].Seconds)
	})

	t.Run("rejects unflagged and invalid events without failing the batch", func(t *testing.T) {
		f := newTickFixture(t, nil)

		result, err := f.service.IngestBatch(ctx, TickBatchInput{
			SessionID: f.session.ID,
			UserID:    "user-1",
			Events: []TickEventInput{
				{EventID: "e1", URL: "https://wikipedia.org/wiki/Go", Seconds: 300, At: at},
				{EventID: "e2", URL: "pornhub.com", Seconds: 0, At: at},
				{EventID: "e3", URL: "", Seconds: 10, At: at},
				{EventID: "e4", URL: "pornhub.com", Seconds: 60, At: at},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Accepted)
		assert.Equal(t, 3, result.Rejected)
	})

	t.Run("client category hint wins when valid", func(t *testing.T) {
		f := newTickFixture(t, nil)

		result, err := f.service.IngestBatch(ctx, TickBatchInput{
			SessionID: f.session.ID,
			UserID:    "user-1",
			Events: []TickEventInput{
				{EventID: "e1", URL: "obscure-casino.example", Category: "gambling", Seconds: 120, At: at},
				{EventID: "e2", URL: "pornhub.com", Category: "nonsense", Seconds: 60, At: at},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, result.Accepted)

		bucket, err := f.buckets.GetBucket(ctx, "user-1", "2025-06-12")
		require.NoError(t, err)
		assert.Equal(t, 2, bucket.MinutesFor(metering.CategoryGambling))
		assert.Equal(t, 1, bucket.MinutesFor(metering.CategoryPorn), "invalid hint falls back to suffix match")
	})

	t.Run("duplicate event ids are skipped", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore()
		defer store.Close()
		f := newTickFixture(t, store)

		batch := TickBatchInput{
			SessionID: f.session.ID,
			UserID:    "user-1",
			Events: []TickEventInput{
				{EventID: "dup-1", URL: "pornhub.com", Seconds: 60, At: at},
			},
		}

		first, err := f.service.IngestBatch(ctx, batch)
		require.NoError(t, err)
		assert.Equal(t, 1, first.Accepted)

		second, err := f.service.IngestBatch(ctx, batch)
		require.NoError(t, err)
		assert.Equal(t, 0, second.Accepted)
		assert.Equal(t, 1, second.Rejected)

		bucket, err := f.buckets.GetBucket(ctx, "user-1", "2025-06-12")
		require.NoError(t, err)
		assert.Equal(t, 1, bucket.MinutesFor(metering.CategoryPorn), "redelivery never double counts")
	})

	t.Run("touches the session on accepted usage", func(t *testing.T) {
		f := newTickFixture(t, nil)
		before := f.session.LastSeenAt

		_, err := f.service.IngestBatch(ctx, TickBatchInput{
			SessionID: f.session.ID,
			UserID:    "user-1",
			Events: []TickEventInput{
				{EventID: "e1", URL: "pornhub.com", Seconds: 60, At: before.Add(time.Hour)},
			},
		})
		require.NoError(t, err)

		stored, err := f.sessions.FindByID(ctx, f.session.ID)
		require.NoError(t, err)
		assert.True(t, stored.LastSeenAt.After(before))
	})
}

func TestTickService_IngestBatch_SessionChecks(t *testing.T) {
	ctx := context.Background()

	t.Run("missing user id", func(t *testing.T) {
		f := newTickFixture(t, nil)
		_, err := f.service.IngestBatch(ctx, TickBatchInput{SessionID: f.session.ID})
		assertValidationError(t, err)
	})

	t.Run("missing session id", func(t *testing.T) {
		f := newTickFixture(t, nil)
		_, err := f.service.IngestBatch(ctx, TickBatchInput{UserID: "user-1"})
		assertValidationError(t, err)
	})

	t.Run("unknown session", func(t *testing.T) {
		f := newTickFixture(t, nil)
		_, err := f.service.IngestBatch(ctx, TickBatchInput{SessionID: uuid.New(), UserID: "user-1"})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("session owned by someone else", func(t *testing.T) {
		f := newTickFixture(t, nil)
		_, err := f.service.IngestBatch(ctx, TickBatchInput{SessionID: f.session.ID, UserID: "user-2"})
		assertValidationError(t, err)
	})

	t.Run("revoked session", func(t *testing.T) {
		f := newTickFixture(t, nil)
		f.session.Revoke()
		require.NoError(t, f.sessions.Update(ctx, f.session))

		_, err := f.service.IngestBatch(ctx, TickBatchInput{SessionID: f.session.ID, UserID: "user-1"})
		assertValidationError(t, err)
	})
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "VALIDATION_ERROR", domainErr.Code)
}
