// Package friendgraph owns the friend request/accept/reject/cancel/unfriend
// protocol and its atomicity guarantees against the document store.
//
// Each relationship is denormalized into two mirror documents, one per
// participant. Accept is the only transition that must be atomic: it clears
// both request mirrors and creates both friend edges in one batch, so no
// observer ever sees a half-accepted state. Reject and cancel issue two
// independent deletes and rely on convergence instead; a delete of an
// already-gone mirror is a benign no-op, which is what makes every
// operation here safely retryable.
package friendgraph

import (
	"context"
	"strings"
	"time"

	"mealcraft/internal/docstore"
	"mealcraft/internal/models"
	"mealcraft/internal/schema"
)

// Engine performs friend-protocol operations for authenticated callers.
type Engine struct {
	store docstore.Store
	now   func() int64
}

// NewEngine returns an Engine backed by the given store.
func NewEngine(store docstore.Store) *Engine {
	return &Engine{
		store: store,
		now:   func() int64 { return time.Now().UnixMilli() },
	}
}

func validatePair(uid, peerID string) error {
	if uid == "" || peerID == "" {
		return models.NewValidationError("user id must not be empty")
	}
	if uid == peerID {
		return models.NewValidationError("Cannot send a friend request to yourself")
	}
	return nil
}

// SendRequest writes the mirrored pending-request documents for from -> to.
// A request in the opposite direction may already exist; the two coexist
// until one side accepts.
func (e *Engine) SendRequest(ctx context.Context, from, to string) error {
	if err := validatePair(from, to); err != nil {
		return err
	}

	req := models.FriendRequest{
		From:      from,
		To:        to,
		Status:    models.RequestStatusPending,
		Timestamp: e.now(),
	}
	ops := []docstore.BatchOp{
		docstore.Put(schema.OutgoingDoc(from, to), req),
		docstore.Put(schema.IncomingDoc(to, from), req),
	}
	if err := e.store.RunBatch(ctx, ops); err != nil {
		return models.NewTxnAbortedError("send friend request", err)
	}
	return nil
}

// AcceptRequest is invoked by the recipient of a pending request from
// peerID. It deletes both request mirrors and creates both friend edges in
// a single all-or-nothing batch. On failure nothing is committed and the
// caller may retry: a retried accept on an already-accepted pair degrades
// to no-op deletes and a harmless edge overwrite.
func (e *Engine) AcceptRequest(ctx context.Context, uid, peerID string) error {
	if err := validatePair(uid, peerID); err != nil {
		return err
	}

	edge := models.FriendEdge{Since: e.now()}
	ops := []docstore.BatchOp{
		docstore.Del(schema.IncomingDoc(uid, peerID)),
		docstore.Del(schema.OutgoingDoc(peerID, uid)),
		docstore.Put(schema.FriendDoc(uid, peerID), edge),
		docstore.Put(schema.FriendDoc(peerID, uid), edge),
	}
	if err := e.store.RunBatch(ctx, ops); err != nil {
		return models.NewTxnAbortedError("accept friend request", err)
	}
	return nil
}

// RejectRequest is invoked by the recipient; it deletes both mirrors of the
// pending request from peerID. The two deletes are independent: a partial
// failure leaves a stale mirror that the next retry (or the other party's
// cancel) converges away.
func (e *Engine) RejectRequest(ctx context.Context, uid, peerID string) error {
	if err := validatePair(uid, peerID); err != nil {
		return err
	}
	if err := e.store.Delete(ctx, schema.IncomingDoc(uid, peerID)); err != nil {
		return models.NewInternalError(err)
	}
	if err := e.store.Delete(ctx, schema.OutgoingDoc(peerID, uid)); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// CancelRequest is invoked by the sender; it deletes the same mirror pair
// as RejectRequest, addressed from the opposite side.
func (e *Engine) CancelRequest(ctx context.Context, uid, peerID string) error {
	if err := validatePair(uid, peerID); err != nil {
		return err
	}
	if err := e.store.Delete(ctx, schema.OutgoingDoc(uid, peerID)); err != nil {
		return models.NewInternalError(err)
	}
	if err := e.store.Delete(ctx, schema.IncomingDoc(peerID, uid)); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// RemoveFriend deletes both friend edges in a single atomic batch, so the
// friendship can never become asymmetric under partial failure.
func (e *Engine) RemoveFriend(ctx context.Context, uid, peerID string) error {
	if err := validatePair(uid, peerID); err != nil {
		return err
	}

	ops := []docstore.BatchOp{
		docstore.Del(schema.FriendDoc(uid, peerID)),
		docstore.Del(schema.FriendDoc(peerID, uid)),
	}
	if err := e.store.RunBatch(ctx, ops); err != nil {
		return models.NewTxnAbortedError("remove friend", err)
	}
	return nil
}

// SearchUserByEmail looks up a profile by normalized email address.
// Returns nil, nil when no account matches.
func (e *Engine) SearchUserByEmail(ctx context.Context, email string) (*models.User, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return nil, models.NewValidationError("email must not be empty")
	}

	snap, err := e.store.Query(ctx, docstore.Query{
		Group:   schema.GroupUsers,
		Filters: []docstore.Filter{docstore.Eq(docstore.FieldEmail, normalized)},
	})
	if err != nil {
		return nil, err
	}
	if len(snap) == 0 {
		return nil, nil
	}

	var user models.User
	if err := snap[0].As(&user); err != nil {
		return nil, models.NewInternalError(err)
	}
	user.ID = snap[0].ID
	return &user, nil
}

// Friends returns uid's friend list (point-in-time read, not a subscription).
func (e *Engine) Friends(ctx context.Context, uid string) ([]models.Friend, error) {
	snap, err := e.store.GetAll(ctx, schema.FriendsCollection(uid))
	if err != nil {
		return nil, err
	}
	return FriendsFromSnapshot(snap), nil
}

// Incoming returns uid's pending incoming requests.
func (e *Engine) Incoming(ctx context.Context, uid string) ([]models.FriendRequest, error) {
	snap, err := e.store.GetAll(ctx, schema.IncomingCollection(uid))
	if err != nil {
		return nil, err
	}
	return RequestsFromSnapshot(snap), nil
}

// Outgoing returns uid's pending outgoing requests.
func (e *Engine) Outgoing(ctx context.Context, uid string) ([]models.FriendRequest, error) {
	snap, err := e.store.GetAll(ctx, schema.OutgoingCollection(uid))
	if err != nil {
		return nil, err
	}
	return RequestsFromSnapshot(snap), nil
}

// FriendsFromSnapshot projects a friends-collection snapshot into typed
// entries. Documents that fail to decode are skipped; the set is replaced
// wholesale on the next delivery anyway.
func FriendsFromSnapshot(snap docstore.Snapshot) []models.Friend {
	friends := make([]models.Friend, 0, len(snap))
	for _, doc := range snap {
		var edge models.FriendEdge
		if err := doc.As(&edge); err != nil {
			continue
		}
		friends = append(friends, models.Friend{ID: doc.ID, Since: edge.Since})
	}
	return friends
}

// RequestsFromSnapshot projects a request-collection snapshot into typed
// entries.
func RequestsFromSnapshot(snap docstore.Snapshot) []models.FriendRequest {
	reqs := make([]models.FriendRequest, 0, len(snap))
	for _, doc := range snap {
		var req models.FriendRequest
		if err := doc.As(&req); err != nil {
			continue
		}
		reqs = append(reqs, req)
	}
	return reqs
}
