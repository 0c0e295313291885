package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role identifies what kind of account a user holds.
type Role string

const (
	RoleArtist  Role = "artist"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleArtist, RoleManager, RoleAdmin:
		return true
	default:
		return false
	}
}

// Provisionable reports whether accounts of this role are created together with a profile.
func (r Role) Provisionable() bool {
	return r == RoleArtist || r == RoleManager
}

func (r Role) String() string { return string(r) }

// User models an authenticated identity.
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	CredentialHash string    `json:"-"`
	Role           Role      `json:"role"`
	IsActive       bool      `json:"is_active"`
	IsFirstLogin   bool      `json:"is_first_login"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ArtistProfile holds the artist-specific attributes. UserID is the owning User's ID.
type ArtistProfile struct {
	UserID    string    `json:"artist_id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	StageName string    `json:"stage_name,omitempty"`
	Genre     string    `json:"genre,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ManagerProfile holds the manager-specific attributes. UserID is the owning User's ID.
type ManagerProfile struct {
	UserID               string          `json:"manager_id"`
	FullName             string          `json:"full_name"`
	Email                string          `json:"email"`
	Phone                string          `json:"phone,omitempty"`
	Company              string          `json:"company,omitempty"`
	CommissionPercentage decimal.Decimal `json:"commission_percentage"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// Account is a user together with its role profile. Exactly one of Artist or
// Manager is set for non-admin users.
type Account struct {
	User    *User           `json:"user"`
	Artist  *ArtistProfile  `json:"artist,omitempty"`
	Manager *ManagerProfile `json:"manager,omitempty"`
}

// ProfilePatch carries a partial profile update. Nil fields are left untouched.
type ProfilePatch struct {
	FullName             *string `validate:"omitnil,min=1,max=128"`
	Email                *string `validate:"omitnil,email"`
	Phone                *string `validate:"omitnil,max=32"`
	StageName            *string `validate:"omitnil,max=128"`
	Genre                *string `validate:"omitnil,max=64"`
	Company              *string `validate:"omitnil,max=128"`
	CommissionPercentage *decimal.Decimal
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.FullName == nil && p.Email == nil && p.Phone == nil && p.StageName == nil &&
		p.Genre == nil && p.Company == nil && p.CommissionPercentage == nil
}

// ApplyToArtist mutates a copy of a according to the patch.
// Manager-only fields are rejected with ErrRoleMismatch.
func (p ProfilePatch) ApplyToArtist(a ArtistProfile) (ArtistProfile, error) {
	if p.Company != nil || p.CommissionPercentage != nil {
		return a, fmtRoleMismatch("company and commission apply to managers only")
	}
	if p.FullName != nil {
		a.FullName = *p.FullName
	}
	if p.Email != nil {
		a.Email = *p.Email
	}
	if p.Phone != nil {
		a.Phone = *p.Phone
	}
	if p.StageName != nil {
		a.StageName = *p.StageName
	}
	if p.Genre != nil {
		a.Genre = *p.Genre
	}
	return a, nil
}

// ApplyToManager mutates a copy of m according to the patch.
// Artist-only fields are rejected with ErrRoleMismatch.
func (p ProfilePatch) ApplyToManager(m ManagerProfile) (ManagerProfile, error) {
	if p.StageName != nil || p.Genre != nil {
		return m, fmtRoleMismatch("stage name and genre apply to artists only")
	}
	if p.FullName != nil {
		m.FullName = *p.FullName
	}
	if p.Email != nil {
		m.Email = *p.Email
	}
	if p.Phone != nil {
		m.Phone = *p.Phone
	}
	if p.Company != nil {
		m.Company = *p.Company
	}
	if p.CommissionPercentage != nil {
		if err := ValidateCommission(*p.CommissionPercentage); err != nil {
			return m, err
		}
		m.CommissionPercentage = *p.CommissionPercentage
	}
	return m, nil
}

var hundred = decimal.NewFromInt(100)

// ValidateCommission checks that pct is a percentage between 0 and 100.
func ValidateCommission(pct decimal.Decimal) error {
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return Validationf("commission percentage must be between 0 and 100, got %s", pct)
	}
	return nil
}
