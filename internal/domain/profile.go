package domain

import "time"

// Profile is the helpdesk view of a user account.
type Profile struct {
	ID         string
	Email      string
	FullName   string
	Role       Role
	Department *string
	Phone      *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Ref returns the denormalized summary embedded in ticket listings.
func (p *Profile) Ref() *ProfileRef {
	if p == nil {
		return nil
	}
	return &ProfileRef{ID: p.ID, FullName: p.FullName, Email: p.Email}
}

// Credential holds the login secret for a profile.
type Credential struct {
	UserID       string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
