package activity

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Service records activity entries off the request path. Record enqueues and
// returns immediately; a background worker persists the entry and publishes
// it to Redis for realtime feeds. Every failure here is logged and dropped —
// activity must never block or roll back a balance mutation.
type Service struct {
	repo    *Repository
	redis   *redis.Client
	channel string
	queue   chan Entry
	done    chan struct{}
}

func NewService(repo *Repository, redisClient *redis.Client, channel string, queueSize int) *Service {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Service{
		repo:    repo,
		redis:   redisClient,
		channel: channel,
		queue:   make(chan Entry, queueSize),
		done:    make(chan struct{}),
	}
}

// Record enqueues an activity entry. Never blocks: if the queue is full the
// entry is dropped with a warning.
func (s *Service) Record(userID uuid.UUID, activityType, title string) {
	entry := Entry{
		ID:     uuid.New(),
		UserID: userID,
		Type:   activityType,
		Title:  title,
	}

	select {
	case s.queue <- entry:
	default:
		log.Warn().
			Str("user_id", userID.String()).
			Str("type", activityType).
			Msg("activity queue full, entry dropped")
	}
}

// Run drains the queue until Close is called. Start it from the composition
// root: go svc.Run().
func (s *Service) Run() {
	for entry := range s.queue {
		s.persist(entry)
	}
	close(s.done)
}

func (s *Service) persist(entry Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.repo.Insert(ctx, &entry); err != nil {
		log.Error().Err(err).
			Str("user_id", entry.UserID.String()).
			Str("type", entry.Type).
			Msg("failed to persist activity entry")
		return
	}

	if s.redis != nil {
		payload, err := json.Marshal(entry)
		if err == nil {
			if err := s.redis.Publish(ctx, s.channel, payload).Err(); err != nil {
				log.Warn().Err(err).Msg("failed to publish activity entry")
			}
		}
	}
}

// Close stops accepting entries and waits for the worker to drain the queue.
func (s *Service) Close() {
	close(s.queue)
	<-s.done
}

// List returns the user's recent activity, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Entry, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}
