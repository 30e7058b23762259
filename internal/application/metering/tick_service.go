package metering

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vicemeter/backend/internal/domain/identity"
	"github.com/vicemeter/backend/internal/domain/metering"
	"github.com/vicemeter/backend/internal/domain/shared"
)

// TickEventInput is one observed interval of foreground time on a domain.
// URL may be a full URL or a bare hostname. Category is an optional client
// hint; when absent or invalid the host is categorized server-side.
type TickEventInput struct {
	EventID  string
	URL      string
	Category string
	Seconds  int
	At       time.Time
}

// TickBatchInput is a batch of tick events submitted by one session on
// behalf of one user.
type TickBatchInput struct {
	SessionID uuid.UUID
	UserID    string
	Events    []TickEventInput
}

// TickBatchResult reports per-batch acceptance counts. Rejected events are
// skipped individually; they never fail the batch.
type TickBatchResult struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// TickService ingests tick batches into daily usage buckets.
type TickService struct {
	bucketRepo  metering.BucketRepository
	sessionRepo identity.SessionRepository
	categorizer *metering.Categorizer
	dedupe      shared.IdempotencyStore
	dedupeCfg   shared.IdempotencyConfig
	logger      *zap.Logger
}

// NewTickService creates a new TickService. dedupe may be nil, in which
// case event IDs are not checked for redelivery.
func NewTickService(
	bucketRepo metering.BucketRepository,
	sessionRepo identity.SessionRepository,
	categorizer *metering.Categorizer,
	dedupe shared.IdempotencyStore,
	dedupeCfg shared.IdempotencyConfig,
	logger *zap.Logger,
) *TickService {
	if categorizer == nil {
		categorizer = metering.NewDefaultCategorizer()
	}
	if dedupeCfg.TTL <= 0 {
		dedupeCfg = shared.DefaultIdempotencyConfig()
	}
	return &TickService{
		bucketRepo:  bucketRepo,
		sessionRepo: sessionRepo,
		categorizer: categorizer,
		dedupe:      dedupe,
		dedupeCfg:   dedupeCfg,
		logger:      logger,
	}
}

// IngestBatch validates session ownership, then accumulates each valid
// event into the (user, UTC day) bucket. Events on hosts outside the
// flagged categories, with non-positive seconds, or already seen by the
// deduplication store are counted as rejected and skipped.
func (s *TickService) IngestBatch(ctx context.Context, input TickBatchInput) (*TickBatchResult, error) {
	if input.UserID == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "user id is required")
	}
	if input.SessionID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "session id is required")
	}

	session, err := s.sessionRepo.FindByID(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if !session.Owns(input.UserID) {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "session does not belong to user")
	}

	result := &TickBatchResult{}
	var lastAt time.Time
	for _, event := range input.Events {
		host := resolveHost(event.URL)
		category, ok := s.resolveCategory(host, event.Category)
		if host == "" || !ok || event.Seconds <= 0 {
			result.Rejected++
			continue
		}

		at := event.At
		if at.IsZero() {
			at = time.Now()
		}

		if s.dedupe != nil && s.dedupeCfg.Enabled && event.EventID != "" {
			fresh, err := s.dedupe.MarkProcessed(ctx, event.EventID, s.dedupeCfg.TTL)
			if err != nil {
				// Dedupe store trouble must not drop usage; fall through
				// and count the event.
				s.logger.Warn("tick dedupe check failed",
					zap.String("event_id", event.EventID),
					zap.Error(err))
			} else if !fresh {
				result.Rejected++
				continue
			}
		}

		if err := s.bucketRepo.AddUsage(ctx, input.UserID, host, category, event.Seconds, at); err != nil {
			return nil, err
		}
		result.Accepted++
		if at.After(lastAt) {
			lastAt = at
		}
	}

	if result.Accepted > 0 {
		session.Touch(lastAt)
		if err := s.sessionRepo.Update(ctx, session); err != nil {
			s.logger.Warn("failed to touch session",
				zap.String("session_id", session.ID.String()),
				zap.Error(err))
		}
	}

	s.logger.Debug("tick batch ingested",
		zap.String("user_id", input.UserID),
		zap.Int("accepted", result.Accepted),
		zap.Int("rejected", result.Rejected))
	return result, nil
}

// resolveCategory prefers a valid client-supplied category and falls back
// to suffix matching on the host.
func (s *TickService) resolveCategory(host, hint string) (metering.Category, bool) {
	if c := metering.Category(hint); c.IsValid() {
		return c, true
	}
	return s.categorizer.Categorize(host)
}

// resolveHost reduces a raw URL or hostname to a normalized host.
func resolveHost(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "://") {
		parsed, err := url.Parse(raw)
		if err != nil {
			return ""
		}
		raw = parsed.Hostname()
	}
	return metering.NormalizeHost(raw)
}
