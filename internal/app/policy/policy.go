// Package policy holds the pure authorization decisions for the chat
// gateway. Every function reads already-fetched entity fields and
// returns a bool; callers turn false into a denial event, never an
// error.
package policy

import "crypto/subtle"

// CanSendAdminMessage reports whether a top-level message requested as
// admin-flagged should actually carry the admin flag. A non-admin
// requesting admin delivery is downgraded, never rejected.
func CanSendAdminMessage(userID uint64, userIsAdmin bool, roomAdminID *uint64, requested bool) bool {
	if !requested {
		return false
	}
	if userIsAdmin {
		return true
	}
	return roomAdminID != nil && *roomAdminID == userID
}

// CanSendAdminReply is the thread-reply variant: only a global admin
// gets the flag. Owning the room does not grant admin status on
// replies. Downstream clients depend on this asymmetry, so it is kept
// even though it looks like it should match CanSendAdminMessage.
func CanSendAdminReply(userIsAdmin bool, requested bool) bool {
	return requested && userIsAdmin
}

// CanDeleteMessage allows the message author, the room admin, or a
// global admin. authorID is nil for system messages.
func CanDeleteMessage(actorID uint64, actorIsAdmin bool, authorID, roomAdminID *uint64) bool {
	if actorIsAdmin {
		return true
	}
	if authorID != nil && *authorID == actorID {
		return true
	}
	return roomAdminID != nil && *roomAdminID == actorID
}

// CanGrantAdmin checks the shared admin secret. Granting is the only
// way a user's admin flag turns true; it is idempotent and never
// revokes.
func CanGrantAdmin(supplied, secret string) bool {
	if supplied == "" || secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(secret)) == 1
}
