// Package models defines the core data structures for users and sessions.
package models

import "time"

// User represents a registered principal with credentials and 2FA state.
type User struct {
	// ID is the unique identifier for the user.
	ID string
	// Username is the login name chosen by the user.
	Username string
	// PasswordHash is the hashed password of the user.
	PasswordHash string
	// MFASecret is the base32 TOTP secret. Nil until 2FA setup begins.
	MFASecret *string
	// MFAEnabled is set once a TOTP code has been verified against MFASecret.
	MFAEnabled bool
	// CreatedAt is the registration time.
	CreatedAt time.Time
	// UpdatedAt is the time of the last write.
	UpdatedAt time.Time
}

// View returns the public projection of the user.
func (u *User) View() UserView {
	return UserView{Username: u.Username, MFAEnabled: u.MFAEnabled}
}

// UserView is the subset of User fields safe to return to clients.
type UserView struct {
	Username   string `json:"username"`
	MFAEnabled bool   `json:"mfaEnabled"`
}

// Session binds an opaque session identifier to a user ID.
type Session struct {
	// ID is the opaque identifier carried in the session cookie.
	ID string `json:"-"`
	// UserID is the ID of the authenticated user.
	UserID string `json:"user_id"`
	// CreatedAt is the time the session was established.
	CreatedAt time.Time `json:"created_at"`
}

// MFASetup holds the material returned when 2FA enrollment starts.
type MFASetup struct {
	// Secret is the base32 shared secret for manual entry.
	Secret string
	// ProvisioningURI is the otpauth:// URI encoded in the QR code.
	ProvisioningURI string
	// QRCodeURL is a PNG data URL rendering ProvisioningURI.
	QRCodeURL string
}
