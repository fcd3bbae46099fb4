// Package schema defines the document store layout shared by every
// component:
//
//	users/{uid}                           profile
//	users/{uid}/friends/{peerId}          friend edge
//	users/{uid}/incomingRequests/{peerId} request mirror, recipient side
//	users/{uid}/outgoingRequests/{peerId} request mirror, sender side
//	users/{uid}/mealLogs/{logId}          meal log
package schema

import "mealcraft/internal/docstore"

// Collection group names.
const (
	GroupUsers    = "users"
	GroupFriends  = "friends"
	GroupIncoming = "incomingRequests"
	GroupOutgoing = "outgoingRequests"
	GroupMealLogs = "mealLogs"
)

// UsersCollection is the flat profile collection.
func UsersCollection() string { return GroupUsers }

// UserDoc addresses a profile document.
func UserDoc(uid string) docstore.Path {
	return docstore.Path{Collection: GroupUsers, ID: uid}
}

// FriendsCollection is a user's friend-edge collection.
func FriendsCollection(uid string) string {
	return GroupUsers + "/" + uid + "/" + GroupFriends
}

// FriendDoc addresses one directional friend edge.
func FriendDoc(uid, peerID string) docstore.Path {
	return docstore.Path{Collection: FriendsCollection(uid), ID: peerID}
}

// IncomingCollection is a user's incoming-request collection.
func IncomingCollection(uid string) string {
	return GroupUsers + "/" + uid + "/" + GroupIncoming
}

// IncomingDoc addresses the recipient-side mirror of a request, keyed by
// the sender.
func IncomingDoc(uid, fromID string) docstore.Path {
	return docstore.Path{Collection: IncomingCollection(uid), ID: fromID}
}

// OutgoingCollection is a user's outgoing-request collection.
func OutgoingCollection(uid string) string {
	return GroupUsers + "/" + uid + "/" + GroupOutgoing
}

// OutgoingDoc addresses the sender-side mirror of a request, keyed by the
// recipient.
func OutgoingDoc(uid, toID string) docstore.Path {
	return docstore.Path{Collection: OutgoingCollection(uid), ID: toID}
}

// MealLogsCollection is a user's meal-log collection.
func MealLogsCollection(uid string) string {
	return GroupUsers + "/" + uid + "/" + GroupMealLogs
}

// MealLogDoc addresses one meal log.
func MealLogDoc(uid, logID string) docstore.Path {
	return docstore.Path{Collection: MealLogsCollection(uid), ID: logID}
}
