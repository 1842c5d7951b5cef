package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role 用户角色
type Role string

const (
	RoleMember       Role = "member"
	RoleOrganization Role = "organization" // officer of exactly one organization
	RoleAdmin        Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleOrganization, RoleAdmin:
		return true
	}
	return false
}

// User represents an account. Officers carry the organization they run in OrganizationID.
type User struct {
	ID               string    `json:"uid" bson:"_id" db:"id"`
	Email            string    `json:"email" bson:"email" db:"email"`
	Password         string    `json:"-" bson:"passwordHash,omitempty" db:"password_hash"` // never serialized to clients
	Name             string    `json:"name,omitempty" bson:"name" db:"name"`
	Photo            string    `json:"photo,omitempty" bson:"photo" db:"photo"`
	Provider         string    `json:"provider,omitempty" bson:"provider" db:"provider"` // "email", "google"
	Role             Role      `json:"role" bson:"role" db:"role"`
	OrganizationID   string    `json:"organizationId,omitempty" bson:"organizationId,omitempty" db:"organization_id"`
	MemberID         string    `json:"memberId,omitempty" bson:"memberId,omitempty" db:"member_id"`
	LikedEvents      []string  `json:"likedEvents" bson:"likedEvents" db:"liked_events"`
	InterestedEvents []string  `json:"interestedEvents" bson:"interestedEvents" db:"interested_events"`
	CreatedAt        time.Time `json:"createdAt" bson:"createdAt" db:"created_at"`
	UpdatedAt        time.Time `json:"updatedAt" bson:"updatedAt" db:"updated_at"`
}

// IsOfficerOf reports whether the user runs the given organization.
func (u *User) IsOfficerOf(orgID string) bool {
	return u != nil && u.Role == RoleOrganization && orgID != "" && u.OrganizationID == orgID
}

// UserRegisterRequest represents the request payload for user registration
type UserRegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,max=120"`
	Role     Role   `json:"role" validate:"omitempty,oneof=member organization"`

	// Only used when Role is organization: the application created alongside the account.
	OrganizationName        string   `json:"organizationName" validate:"required_if=Role organization,max=160"`
	OrganizationDescription string   `json:"organizationDescription" validate:"max=4000"`
	OrganizationTags        []string `json:"organizationTags" validate:"max=20,dive,max=40"`
}

// UserLoginRequest represents the request payload for user login
type UserLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserLoginResponse represents the response payload for user login
type UserLoginResponse struct {
	User         User   `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// UserProfileUpdate is the editable subset of a profile.
type UserProfileUpdate struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=120"`
	Photo *string `json:"photo" validate:"omitempty,url"`
}

// RefreshTokenRequest represents the request payload for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenClaims represents the JWT token claims
type TokenClaims struct {
	UserID         string `json:"user_id"`
	Email          string `json:"email"`
	Role           Role   `json:"role"`
	OrganizationID string `json:"org_id,omitempty"`
	Type           string `json:"type"` // "access" or "refresh"
	Exp            int64  `json:"exp"`
	Iat            int64  `json:"iat"`
}

// GetExpirationTime implements jwt.Claims interface
func (c *TokenClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Exp, 0)), nil
}

// GetIssuedAt implements jwt.Claims interface
func (c *TokenClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Iat, 0)), nil
}

// GetNotBefore implements jwt.Claims interface
func (c *TokenClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetIssuer implements jwt.Claims interface
func (c *TokenClaims) GetIssuer() (string, error) {
	return "", nil
}

// GetSubject implements jwt.Claims interface
func (c *TokenClaims) GetSubject() (string, error) {
	return c.UserID, nil
}

// GetAudience implements jwt.Claims interface
func (c *TokenClaims) GetAudience() (jwt.ClaimStrings, error) {
	return nil, nil
}
