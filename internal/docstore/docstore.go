// Package docstore implements a multi-collection document store over a
// relational database: JSON documents keyed by collection path and id,
// collection-group queries on a fixed set of indexed fields, atomic
// multi-document batches, and live snapshot subscriptions.
package docstore

import (
	"context"
	"encoding/json"
	"strings"
)

// Path identifies a single document: a collection path plus a document id,
// e.g. {"users/abc/friends", "def"}.
type Path struct {
	Collection string
	ID         string
}

// Doc is one raw document as returned by reads, queries and subscriptions.
type Doc struct {
	Collection string
	ID         string
	Data       json.RawMessage
}

// As unmarshals the document body into v.
func (d Doc) As(v interface{}) error {
	return json.Unmarshal(d.Data, v)
}

// Snapshot is the complete, authoritative result set of a query at one
// point in time. Subscribers always receive whole snapshots, never diffs.
type Snapshot []Doc

// Fields that queries may filter or order on. They are materialized into
// indexed columns at write time; filtering on anything else is an error.
const (
	FieldOwnerUID  = "ownerUid"
	FieldIsPublic  = "isPublic"
	FieldTimestamp = "timestamp"
	FieldEmail     = "email"
)

// FilterOp is a query filter operator.
type FilterOp int

const (
	// OpEq matches documents whose field equals the value.
	OpEq FilterOp = iota
	// OpIn matches documents whose field is a member of the value list.
	OpIn
)

// Filter is one query predicate.
type Filter struct {
	Field string
	Op    FilterOp
	Value interface{}
}

// Eq builds an equality filter.
func Eq(field string, value interface{}) Filter {
	return Filter{Field: field, Op: OpEq, Value: value}
}

// In builds a membership filter. An empty value list is rejected at query
// time: "member of nothing" means no results, and callers are expected to
// short-circuit instead of issuing the query.
func In(field string, values []string) Filter {
	return Filter{Field: field, Op: OpIn, Value: values}
}

// Query describes a collection-group query: all documents across every
// collection whose last path segment equals Group, narrowed by filters,
// optionally ordered on one indexed field.
type Query struct {
	Group   string
	Filters []Filter
	OrderBy string
	Desc    bool
}

// BatchKind discriminates batch operations.
type BatchKind int

const (
	// BatchPut upserts a document.
	BatchPut BatchKind = iota
	// BatchDelete removes a document; deleting a missing document is a no-op.
	BatchDelete
)

// BatchOp is one operation inside an atomic batch.
type BatchOp struct {
	Kind BatchKind
	Path Path
	Doc  interface{}
}

// Put builds a batch upsert.
func Put(path Path, doc interface{}) BatchOp {
	return BatchOp{Kind: BatchPut, Path: path, Doc: doc}
}

// Del builds a batch delete.
func Del(path Path) BatchOp {
	return BatchOp{Kind: BatchDelete, Path: path}
}

// Unsubscribe tears down a live subscription. It is synchronous and
// idempotent: after it returns no further callbacks are delivered. It must
// not be called from inside the subscription's own callback.
type Unsubscribe func()

// Store is the document store consumed by the friend graph, the
// relationship views and the feed projector.
type Store interface {
	// Get reads one document into dest. Returns a NOT_FOUND AppError when
	// the document does not exist.
	Get(ctx context.Context, path Path, dest interface{}) error
	// Set upserts one document.
	Set(ctx context.Context, path Path, doc interface{}) error
	// Delete removes one document. Deleting a missing document succeeds.
	Delete(ctx context.Context, path Path) error
	// GetAll returns every document in one collection, ordered by id.
	GetAll(ctx context.Context, collection string) (Snapshot, error)
	// Query runs a collection-group query.
	Query(ctx context.Context, q Query) (Snapshot, error)
	// Mutate applies fn to the current body of one document inside a
	// transaction and writes the result back. fn receives nil when the
	// document does not exist; returning nil, nil leaves it absent.
	Mutate(ctx context.Context, path Path, fn func(current json.RawMessage) (interface{}, error)) error
	// RunBatch applies all operations in a single all-or-nothing
	// transaction.
	RunBatch(ctx context.Context, ops []BatchOp) error
	// Subscribe opens a live subscription on a query. The initial full
	// snapshot and every subsequent one are delivered on a dedicated
	// goroutine; callbacks from different subscriptions may interleave in
	// any order.
	Subscribe(q Query, onNext func(Snapshot), onErr func(error)) Unsubscribe
	// SubscribeCollection opens a live subscription on one collection.
	SubscribeCollection(collection string, onNext func(Snapshot), onErr func(error)) Unsubscribe
	// Close tears down every open subscription.
	Close() error
}

// GroupOf returns the collection-group name of a collection path: its last
// path segment ("users/abc/friends" -> "friends", "users" -> "users").
func GroupOf(collection string) string {
	if i := strings.LastIndexByte(collection, '/'); i >= 0 {
		return collection[i+1:]
	}
	return collection
}

// ParentID returns the id of the document owning a subcollection
// ("users/abc/friends" -> "abc"), or "" for a top-level collection.
func ParentID(collection string) string {
	parts := strings.Split(collection, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[len(parts)-2]
}
