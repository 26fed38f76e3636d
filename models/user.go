package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is a police rank. Ranks are ordered; see Rank.
type Role string

const (
	RoleConstable     Role = "constable"
	RoleHeadConstable Role = "head_constable"
	RoleSI            Role = "si"  // Sub-Inspector
	RoleSHO           Role = "sho" // Inspector / Station House Officer
	RoleDySP          Role = "dy_sp"
	RoleSP            Role = "sp"
	RoleDIG           Role = "dig"
	RoleIGP           Role = "igp"
	RoleDGP           Role = "dgp"
	RoleAdmin         Role = "admin"

	// RoleOfficer is the pre-hierarchy role kept for existing accounts
	RoleOfficer Role = "officer"
)

var roleRanks = map[Role]int{
	RoleConstable:     1,
	RoleHeadConstable: 2,
	RoleSI:            3,
	RoleOfficer:       3,
	RoleSHO:           4,
	RoleDySP:          5,
	RoleSP:            6,
	RoleDIG:           7,
	RoleIGP:           8,
	RoleDGP:           9,
	RoleAdmin:         10,
}

// Rank returns the ordinal position of the role, 0 for unknown roles
func (r Role) Rank() int {
	return roleRanks[r]
}

// AtLeast reports whether r ranks at or above min
func (r Role) AtLeast(min Role) bool {
	return r.Rank() > 0 && r.Rank() >= min.Rank()
}

// IsValidRole checks if a role string is recognised
func IsValidRole(role string) bool {
	_, ok := roleRanks[Role(role)]
	return ok
}

// User is a police officer account. The unit attributes describe where the
// officer is posted; which one bounds their visibility depends on Role.
type User struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Username       string  `gorm:"uniqueIndex;not null" json:"username"`
	FullName       string  `json:"full_name"`
	HashedPassword string  `gorm:"not null" json:"-"`
	Role           Role    `gorm:"type:varchar(32);not null;default:constable;index" json:"role"`
	IsActive       bool    `gorm:"not null;default:true" json:"is_active"`
	BadgeNumber    *string `json:"badge_number,omitempty"`

	// Posting
	StationName  string `gorm:"index" json:"station_name"`
	SubDivision  string `json:"sub_division"`
	DistrictName string `json:"district_name"`
	RangeName    string `json:"range_name"`
	ZoneName     string `json:"zone_name"`
	StateName    string `json:"state_name"`

	LastLoginAt *time.Time `json:"last_login_at"`
}

// BeforeCreate hook to generate UUID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}
