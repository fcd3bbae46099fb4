// Package meallog provides CRUD, privacy and like-set mutation for per-user
// meal logs.
package meallog

import (
	"context"
	"encoding/json"
	"time"

	"mealcraft/internal/docstore"
	"mealcraft/internal/models"
	"mealcraft/internal/schema"

	"github.com/google/uuid"
)

// Store owns the users/{uid}/mealLogs collections.
type Store struct {
	docs  docstore.Store
	now   func() int64
	newID func() string
}

// NewStore returns a meal-log store backed by the given document store.
func NewStore(docs docstore.Store) *Store {
	return &Store{
		docs:  docs,
		now:   func() int64 { return time.Now().UnixMilli() },
		newID: uuid.NewString,
	}
}

// Add creates a new meal log for uid. New logs are private with an empty
// like set regardless of what the caller passes in.
func (s *Store) Add(ctx context.Context, uid string, log models.MealLog) (*models.MealLog, error) {
	if uid == "" {
		return nil, models.NewValidationError("user id must not be empty")
	}

	log.ID = s.newID()
	log.OwnerUID = uid
	log.IsPublic = false
	log.Likes = []string{}
	if log.Timestamp == 0 {
		log.Timestamp = s.now()
	}
	if log.Dishes == nil {
		log.Dishes = []models.Dish{}
	}

	if err := s.docs.Set(ctx, schema.MealLogDoc(uid, log.ID), log); err != nil {
		return nil, err
	}
	return &log, nil
}

// Get reads one meal log.
func (s *Store) Get(ctx context.Context, uid, logID string) (*models.MealLog, error) {
	var log models.MealLog
	if err := s.docs.Get(ctx, schema.MealLogDoc(uid, logID), &log); err != nil {
		return nil, err
	}
	log.ID = logID
	return &log, nil
}

// List returns uid's meal logs, newest first.
func (s *Store) List(ctx context.Context, uid string) ([]models.MealLog, error) {
	snap, err := s.docs.Query(ctx, docstore.Query{
		Group:   schema.GroupMealLogs,
		Filters: []docstore.Filter{docstore.Eq(docstore.FieldOwnerUID, uid)},
		OrderBy: docstore.FieldTimestamp,
		Desc:    true,
	})
	if err != nil {
		return nil, err
	}

	logs := make([]models.MealLog, 0, len(snap))
	for _, doc := range snap {
		var log models.MealLog
		if err := doc.As(&log); err != nil {
			continue
		}
		log.ID = doc.ID
		logs = append(logs, log)
	}
	return logs, nil
}

// UpdateParams holds the owner-editable content fields; nil means leave
// unchanged. Privacy and likes are mutated through their own operations.
type UpdateParams struct {
	Description   *string
	TotalCalories *int
	Dishes        *[]models.Dish
}

// Update applies a partial content edit to one meal log.
func (s *Store) Update(ctx context.Context, uid, logID string, params UpdateParams) error {
	return s.docs.Mutate(ctx, schema.MealLogDoc(uid, logID), func(current json.RawMessage) (interface{}, error) {
		if current == nil {
			return nil, models.NewNotFoundError("meal log", logID)
		}
		var log models.MealLog
		if err := json.Unmarshal(current, &log); err != nil {
			return nil, models.NewInternalError(err)
		}
		if params.Description != nil {
			log.Description = *params.Description
		}
		if params.TotalCalories != nil {
			log.TotalCalories = *params.TotalCalories
		}
		if params.Dishes != nil {
			log.Dishes = *params.Dishes
		}
		return log, nil
	})
}

// Delete removes one meal log; deleting a missing log succeeds.
func (s *Store) Delete(ctx context.Context, uid, logID string) error {
	return s.docs.Delete(ctx, schema.MealLogDoc(uid, logID))
}

// SetPrivacy flips the public flag. Only the owner may call this; the rule
// is enforced by the surrounding application, which always addresses the
// caller's own collection.
func (s *Store) SetPrivacy(ctx context.Context, ownerID, logID string, isPublic bool) error {
	return s.docs.Mutate(ctx, schema.MealLogDoc(ownerID, logID), func(current json.RawMessage) (interface{}, error) {
		if current == nil {
			return nil, models.NewNotFoundError("meal log", logID)
		}
		var log models.MealLog
		if err := json.Unmarshal(current, &log); err != nil {
			return nil, models.NewInternalError(err)
		}
		log.IsPublic = isPublic
		return log, nil
	})
}

// Like adds likerID to the log's like set. Adding an already-present liker
// is a no-op, so concurrent and retried likes converge.
func (s *Store) Like(ctx context.Context, ownerID, logID, likerID string) error {
	return s.mutateLikes(ctx, ownerID, logID, func(likes []string) []string {
		for _, l := range likes {
			if l == likerID {
				return likes
			}
		}
		return append(likes, likerID)
	})
}

// Unlike removes likerID from the log's like set.
func (s *Store) Unlike(ctx context.Context, ownerID, logID, likerID string) error {
	return s.mutateLikes(ctx, ownerID, logID, func(likes []string) []string {
		next := likes[:0]
		for _, l := range likes {
			if l != likerID {
				next = append(next, l)
			}
		}
		return next
	})
}

func (s *Store) mutateLikes(ctx context.Context, ownerID, logID string, apply func([]string) []string) error {
	return s.docs.Mutate(ctx, schema.MealLogDoc(ownerID, logID), func(current json.RawMessage) (interface{}, error) {
		if current == nil {
			return nil, models.NewNotFoundError("meal log", logID)
		}
		var log models.MealLog
		if err := json.Unmarshal(current, &log); err != nil {
			return nil, models.NewInternalError(err)
		}
		log.Likes = apply(log.Likes)
		if log.Likes == nil {
			log.Likes = []string{}
		}
		return log, nil
	})
}
