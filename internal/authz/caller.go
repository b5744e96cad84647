package authz

import "propflow/api/internal/models"

// Caller is the resolved identity of an authenticated request. A nil
// *Caller is an anonymous request.
type Caller struct {
	ID       string
	Email    string
	Role     models.Role
	IsActive bool
}

func (c *Caller) IsAdmin() bool { return c != nil && c.Role == models.RoleAdmin }
func (c *Caller) IsAgent() bool { return c != nil && c.Role == models.RoleAgent }

// CallerFromUser builds a caller from a stored profile.
func CallerFromUser(u *models.User) *Caller {
	return &Caller{ID: u.ID, Email: u.Email, Role: u.Role, IsActive: u.IsActive}
}
