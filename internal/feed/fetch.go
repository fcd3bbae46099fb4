package feed

import (
	"context"

	"mealcraft/internal/docstore"
	"mealcraft/internal/models"
	"mealcraft/internal/schema"
)

// Fetch computes the feed projection once, outside any subscription: public
// meal logs owned by the given friends, newest first, enriched with owner
// names. Used by the HTTP feed endpoint; the live path goes through
// Projector.
func Fetch(ctx context.Context, docs docstore.Store, names *NameCache, friendIDs []string) ([]models.FeedEntry, error) {
	if len(friendIDs) == 0 {
		return []models.FeedEntry{}, nil
	}

	snap, err := docs.Query(ctx, feedQuery(friendIDs))
	if err != nil {
		return nil, err
	}
	return project(ctx, names, snap), nil
}

func feedQuery(friendIDs []string) docstore.Query {
	return docstore.Query{
		Group: schema.GroupMealLogs,
		Filters: []docstore.Filter{
			docstore.Eq(docstore.FieldIsPublic, true),
			docstore.In(docstore.FieldOwnerUID, friendIDs),
		},
		OrderBy: docstore.FieldTimestamp,
		Desc:    true,
	}
}

// project maps a raw query snapshot into enriched feed entries.
func project(ctx context.Context, names *NameCache, snap docstore.Snapshot) []models.FeedEntry {
	entries := make([]models.FeedEntry, 0, len(snap))
	for _, doc := range snap {
		var log models.MealLog
		if err := doc.As(&log); err != nil {
			continue
		}
		log.ID = doc.ID
		if log.OwnerUID == "" {
			log.OwnerUID = docstore.ParentID(doc.Collection)
		}
		if log.Likes == nil {
			log.Likes = []string{}
		}
		entries = append(entries, models.FeedEntry{
			MealLog:   log,
			OwnerName: names.Resolve(ctx, log.OwnerUID),
		})
	}
	return entries
}
