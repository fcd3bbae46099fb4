package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mealcraft/internal/models"
	"mealcraft/internal/observability"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// row is the relational representation of one document. The owner_uid,
// public, ts and email columns are materialized from the JSON body at
// write time so queries can run without JSON extraction.
type row struct {
	Collection string `gorm:"primaryKey;size:512"`
	DocID      string `gorm:"primaryKey;size:128;column:doc_id"`
	CollGroup  string `gorm:"index;size:64;column:coll_group"`
	OwnerUID   string `gorm:"index;size:128;column:owner_uid"`
	Public     bool   `gorm:"index"`
	TS         int64  `gorm:"index;column:ts"`
	Email      string `gorm:"index;size:255"`
	Data       []byte
	UpdatedAt  time.Time
}

// TableName specifies the table name for GORM
func (row) TableName() string {
	return "documents"
}

// fieldColumns maps queryable document fields to their materialized columns.
var fieldColumns = map[string]string{
	FieldOwnerUID:  "owner_uid",
	FieldIsPublic:  "public",
	FieldTimestamp: "ts",
	FieldEmail:     "email",
}

// indexedFields is the subset of a document body that gets materialized.
type indexedFields struct {
	OwnerUID  string `json:"ownerUid"`
	IsPublic  bool   `json:"isPublic"`
	Timestamp int64  `json:"timestamp"`
	Email     string `json:"email"`
}

// DB is the GORM-backed Store implementation.
type DB struct {
	db  *gorm.DB
	log *slog.Logger

	mu       sync.RWMutex
	watchers map[uint64]*watcher
	nextID   uint64
	closed   bool
}

var _ Store = (*DB)(nil)

// Open connects to the configured database and migrates the document table.
// Supported drivers: "sqlite" and "postgres".
func Open(driver, dsn string) (*DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported docstore driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("docstore connection failed: %w", err)
	}
	return New(db)
}

// New wraps an existing GORM connection and migrates the document table.
func New(db *gorm.DB) (*DB, error) {
	if err := db.AutoMigrate(&row{}); err != nil {
		return nil, fmt.Errorf("docstore migration failed: %w", err)
	}
	return &DB{
		db:       db,
		log:      observability.Component("docstore"),
		watchers: make(map[uint64]*watcher),
	}, nil
}

func (s *DB) toRow(path Path, doc interface{}) (*row, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, models.NewValidationError(fmt.Sprintf("document is not serializable: %v", err))
	}

	var idx indexedFields
	// Index extraction is best effort; non-object documents simply have no
	// indexed fields.
	_ = json.Unmarshal(data, &idx)
	if idx.OwnerUID == "" {
		idx.OwnerUID = ParentID(path.Collection)
	}

	return &row{
		Collection: path.Collection,
		DocID:      path.ID,
		CollGroup:  GroupOf(path.Collection),
		OwnerUID:   idx.OwnerUID,
		Public:     idx.IsPublic,
		TS:         idx.Timestamp,
		Email:      idx.Email,
		Data:       data,
	}, nil
}

// Get reads one document into dest.
func (s *DB) Get(ctx context.Context, path Path, dest interface{}) error {
	var r row
	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", path.Collection, path.ID).
		First(&r).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("document", path.Collection+"/"+path.ID)
		}
		return models.NewInternalError(err)
	}
	return json.Unmarshal(r.Data, dest)
}

// Set upserts one document.
func (s *DB) Set(ctx context.Context, path Path, doc interface{}) error {
	return s.RunBatch(ctx, []BatchOp{Put(path, doc)})
}

// Delete removes one document. Deleting a missing document succeeds: the
// usual cause is a concurrent completion of the same protocol step by the
// other party, which callers treat as idempotent success.
func (s *DB) Delete(ctx context.Context, path Path) error {
	return s.RunBatch(ctx, []BatchOp{Del(path)})
}

// GetAll returns every document in one collection, ordered by id.
func (s *DB) GetAll(ctx context.Context, collection string) (Snapshot, error) {
	var rows []row
	err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("doc_id").
		Find(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rowsToSnapshot(rows), nil
}

// Query runs a collection-group query on indexed fields.
func (s *DB) Query(ctx context.Context, q Query) (Snapshot, error) {
	tx, err := s.compileQuery(s.db.WithContext(ctx), q)
	if err != nil {
		return nil, err
	}

	var rows []row
	if err := tx.Find(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return rowsToSnapshot(rows), nil
}

func (s *DB) compileQuery(tx *gorm.DB, q Query) (*gorm.DB, error) {
	if q.Group == "" {
		return nil, models.NewValidationError("query requires a collection group")
	}
	tx = tx.Model(&row{}).Where("coll_group = ?", q.Group)

	for _, f := range q.Filters {
		col, ok := fieldColumns[f.Field]
		if !ok {
			return nil, models.NewValidationError(fmt.Sprintf("field %q is not indexed", f.Field))
		}
		switch f.Op {
		case OpEq:
			tx = tx.Where(col+" = ?", f.Value)
		case OpIn:
			vals, ok := f.Value.([]string)
			if !ok {
				return nil, models.NewValidationError(fmt.Sprintf("membership filter on %q requires a string list", f.Field))
			}
			if len(vals) == 0 {
				return nil, models.NewValidationError(fmt.Sprintf("membership filter on %q has no values", f.Field))
			}
			tx = tx.Where(col+" IN ?", vals)
		default:
			return nil, models.NewValidationError("unknown filter operator")
		}
	}

	if q.OrderBy != "" {
		col, ok := fieldColumns[q.OrderBy]
		if !ok {
			return nil, models.NewValidationError(fmt.Sprintf("field %q is not indexed", q.OrderBy))
		}
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		tx = tx.Order(col + " " + dir)
	} else {
		tx = tx.Order("collection, doc_id")
	}
	return tx, nil
}

// Mutate applies fn to the current body of one document inside a
// transaction and writes the result back.
func (s *DB) Mutate(ctx context.Context, path Path, fn func(current json.RawMessage) (interface{}, error)) error {
	touched := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("collection = ? AND doc_id = ?", path.Collection, path.ID)
		if s.db.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var r row
		var current json.RawMessage
		if err := q.First(&r).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		} else {
			current = r.Data
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}

		nr, err := s.toRow(path, next)
		if err != nil {
			return err
		}
		touched = true
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "doc_id"}},
			UpdateAll: true,
		}).Create(nr).Error
	})
	if err != nil {
		return err
	}
	if touched {
		s.notify(map[string]struct{}{GroupOf(path.Collection): {}})
	}
	return nil
}

// RunBatch applies all operations in a single all-or-nothing transaction.
// The raw transaction error is returned unwrapped; callers classify it
// (the friend graph surfaces it as TXN_ABORTED with operation context).
func (s *DB) RunBatch(ctx context.Context, ops []BatchOp) error {
	if len(ops) == 0 {
		return nil
	}

	groups := make(map[string]struct{}, len(ops))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range ops {
			switch op.Kind {
			case BatchPut:
				r, err := s.toRow(op.Path, op.Doc)
				if err != nil {
					return err
				}
				if err := tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "collection"}, {Name: "doc_id"}},
					UpdateAll: true,
				}).Create(r).Error; err != nil {
					return err
				}
			case BatchDelete:
				if err := tx.
					Where("collection = ? AND doc_id = ?", op.Path.Collection, op.Path.ID).
					Delete(&row{}).Error; err != nil {
					return err
				}
			default:
				return models.NewValidationError("unknown batch operation")
			}
			groups[GroupOf(op.Path.Collection)] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notify(groups)
	return nil
}

func rowsToSnapshot(rows []row) Snapshot {
	snap := make(Snapshot, 0, len(rows))
	for _, r := range rows {
		snap = append(snap, Doc{
			Collection: r.Collection,
			ID:         r.DocID,
			Data:       json.RawMessage(r.Data),
		})
	}
	return snap
}
