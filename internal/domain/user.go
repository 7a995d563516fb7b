package domain

import "time"

// Role is the access level stored on a user
type Role int

const (
	RoleMember     Role = 1 // Default role assigned at registration
	RoleAdmin      Role = 2 // Can manage users and posts
	RoleSuperAdmin Role = 3 // Same privileges as admin
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	return r == RoleMember || r == RoleAdmin || r == RoleSuperAdmin
}

// IsAdmin reports whether r grants access to admin-only operations
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// User Model
type User struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`                                  // Primary key
	FirstName            string     `gorm:"size:10;not null" json:"firstName"`                     // Given name
	LastName             string     `gorm:"size:10;not null" json:"lastName"`                      // Family name
	Address              string     `gorm:"size:29" json:"address"`                                // Postal address
	Contact              string     `gorm:"size:20" json:"contact"`                                // Digits-only phone number
	Email                string     `gorm:"type:varchar(191);uniqueIndex;not null" json:"email"`   // Unique email
	Username             string     `gorm:"type:varchar(15);uniqueIndex;not null" json:"username"` // Unique username
	Password             string     `gorm:"not null" json:"-"`                                     // Hashed password, never serialized
	Image                *string    `json:"image"`                                                 // Relative path of the profile image
	Role                 Role       `gorm:"not null;default:1" json:"role"`                        // Member, Admin or SuperAdmin
	ResetPasswordToken   *string    `gorm:"type:varchar(64);index" json:"-"`                       // SHA-256 hex of the raw reset token
	ResetPasswordExpires *time.Time `json:"-"`                                                     // Expiry of the reset token
	CreatedAt            time.Time  `json:"createdAt"`                                             // Creation timestamp
	UpdatedAt            time.Time  `json:"updatedAt"`                                             // Last update timestamp
}

// PublicProfile is the subset of user fields returned after login
type PublicProfile struct {
	ID        uint   `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Role      Role   `json:"role"`
}

// Public returns the login view of the user
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Username:  u.Username,
		Role:      u.Role,
	}
}
