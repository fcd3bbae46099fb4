package models

// User represents an account profile stored in the flat users collection.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName,omitempty"`
	CreatedAt    int64  `json:"createdAt"`
	PasswordHash string `json:"passwordHash,omitempty"`
}

// Name returns the display name, falling back to the email address and
// finally to the raw id. Feed entries are labeled with this value.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Email != "" {
		return u.Email
	}
	return u.ID
}

// Public returns a copy safe to serialize in API responses.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}
