package reminders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/aura-webinar/classroom/internal/models"
)

// Store is the durable home of a user's reminders, keyed by session id.
type Store interface {
	// Save upserts r. It returns *ValidationError for bad parameters and *StorageError when the
	// medium fails.
	Save(ctx context.Context, r models.Reminder) error
	// Remove deletes the reminder for sessionID. Removing an absent reminder is not an error.
	Remove(ctx context.Context, sessionID string) error
	// LoadAll returns every stored reminder ordered by trigger time. Undecodable records are
	// skipped and reported in a *StorageError next to the records that did load.
	LoadAll(ctx context.Context) ([]models.Reminder, error)
}

const keyPrefix = "reminders:"

// RedisStore keeps one user's reminders in a Redis hash: reminders:{user_id} → {session_id: json}.
// Each HSET/HDEL is atomic per field.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates the reminder store of userID.
func NewRedisStore(client *redis.Client, userID uuid.UUID) *RedisStore {
	return &RedisStore{client: client, key: keyPrefix + userID.String()}
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, r models.Reminder) error {
	if err := Validate(r); err != nil {
		return err
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return &StorageError{Op: "encode", SessionID: r.SessionID, Err: err}
	}
	if err := s.client.HSet(ctx, s.key, r.SessionID, raw).Err(); err != nil {
		return &StorageError{Op: "save", SessionID: r.SessionID, Err: err}
	}
	return nil
}

// Remove implements Store.
func (s *RedisStore) Remove(ctx context.Context, sessionID string) error {
	if err := s.client.HDel(ctx, s.key, sessionID).Err(); err != nil {
		return &StorageError{Op: "remove", SessionID: sessionID, Err: err}
	}
	return nil
}

// LoadAll implements Store.
func (s *RedisStore) LoadAll(ctx context.Context) ([]models.Reminder, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, &StorageError{Op: "load", Err: err}
	}
	list := make([]models.Reminder, 0, len(fields))
	var errs []error
	for sessionID, raw := range fields {
		var r models.Reminder
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			errs = append(errs, &StorageError{Op: "decode", SessionID: sessionID, Err: err})
			continue
		}
		if r.SessionID != sessionID {
			errs = append(errs, &StorageError{Op: "decode", SessionID: sessionID, Err: fmt.Errorf("record belongs to %q", r.SessionID)})
			continue
		}
		list = append(list, r)
	}
	SortByTrigger(list)
	return list, errors.Join(errs...)
}

// SortByTrigger orders reminders by trigger time, then session id.
func SortByTrigger(list []models.Reminder) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].TriggerAt.Equal(list[j].TriggerAt) {
			return list[i].TriggerAt.Before(list[j].TriggerAt)
		}
		return list[i].SessionID < list[j].SessionID
	})
}
