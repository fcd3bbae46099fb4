package models

// RequestStatusPending is the only transient state of a friend request.
// Terminal states are "none" (rejected/cancelled) and friendship (accepted);
// neither is stored on the request itself, the mirrors are simply deleted.
const RequestStatusPending = "pending"

// FriendEdge is one directional friendship record, stored under
// users/{ownerId}/friends/{peerId}. A real friendship exists only when both
// directions exist; Accept creates the pair atomically and RemoveFriend
// deletes it atomically.
type FriendEdge struct {
	Since int64 `json:"since"`
}

// Friend is the projection of a FriendEdge document as surfaced to callers:
// the peer id (the document id) plus the edge payload.
type Friend struct {
	ID    string `json:"id"`
	Since int64  `json:"since"`
}

// FriendRequest is a pending request, denormalized into two mirror
// documents: users/{to}/incomingRequests/{from} and
// users/{from}/outgoingRequests/{to}. Both mirrors carry the same payload;
// the writer keeps them in sync.
type FriendRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}
