package services

import (
	"fmt"

	"cyber_case_app_go/config"
	"cyber_case_app_go/models"

	"gorm.io/gorm"
)

// ScopeLevel names the organisational unit that bounds a role's visibility
type ScopeLevel string

const (
	ScopeStation     ScopeLevel = "station"
	ScopeSubDivision ScopeLevel = "sub_division"
	ScopeDistrict    ScopeLevel = "district"
	ScopeRange       ScopeLevel = "range"
	ScopeZone        ScopeLevel = "zone"
	ScopeAll         ScopeLevel = "all"
)

type scopeRule struct {
	level  ScopeLevel
	column string // column on cases
	value  func(u *models.User) string
	field  func(c *models.Case) string
}

var (
	stationRule = scopeRule{ScopeStation, "police_station",
		func(u *models.User) string { return u.StationName },
		func(c *models.Case) string { return c.PoliceStation }}
	subDivisionRule = scopeRule{ScopeSubDivision, "sub_division",
		func(u *models.User) string { return u.SubDivision },
		func(c *models.Case) string { return c.SubDivision }}
	districtRule = scopeRule{ScopeDistrict, "district_name",
		func(u *models.User) string { return u.DistrictName },
		func(c *models.Case) string { return c.DistrictName }}
	rangeRule = scopeRule{ScopeRange, "range_name",
		func(u *models.User) string { return u.RangeName },
		func(c *models.Case) string { return c.RangeName }}
	zoneRule = scopeRule{ScopeZone, "zone_name",
		func(u *models.User) string { return u.ZoneName },
		func(c *models.Case) string { return c.ZoneName }}
)

// Roles absent from this table (dgp, admin and the legacy officer role) are
// not geographically restricted.
var scopeRules = map[models.Role]scopeRule{
	models.RoleConstable:     stationRule,
	models.RoleHeadConstable: stationRule,
	models.RoleSI:            stationRule,
	models.RoleSHO:           stationRule,
	models.RoleDySP:          subDivisionRule,
	models.RoleSP:            districtRule,
	models.RoleDIG:           rangeRule,
	models.RoleIGP:           zoneRule,
}

// ScopePolicy holds the deployment decisions that shape every AccessScope
type ScopePolicy struct {
	// UnsetOpen lets a scoped role with an empty unit attribute see
	// everything. When false such users see nothing.
	UnsetOpen bool
}

// ScopePolicyFromConfig builds the policy from UNSET_SCOPE_POLICY
func ScopePolicyFromConfig(cfg *config.Config) ScopePolicy {
	if cfg == nil {
		return ScopePolicy{}
	}
	return ScopePolicy{UnsetOpen: cfg.UnsetScopePolicy == config.UnsetScopeOpen}
}

// AccessScope is the read boundary of one officer, resolved once per request.
// It answers list filters and single-record checks from the same rule.
type AccessScope struct {
	Role   models.Role
	Level  ScopeLevel
	Column string
	Value  string

	unrestricted bool
	denyAll      bool
}

// ResolveScope maps a user's role and posting to their read boundary
func ResolveScope(user *models.User, policy ScopePolicy) AccessScope {
	if user == nil {
		return AccessScope{denyAll: true}
	}

	rule, scoped := scopeRules[user.Role]
	if !scoped {
		return AccessScope{Role: user.Role, Level: ScopeAll, unrestricted: true}
	}

	scope := AccessScope{
		Role:   user.Role,
		Level:  rule.level,
		Column: rule.column,
		Value:  rule.value(user),
	}
	if scope.Value == "" {
		if policy.UnsetOpen {
			scope.unrestricted = true
		} else {
			scope.denyAll = true
		}
	}
	return scope
}

// Unrestricted reports whether the scope applies no filter
func (s AccessScope) Unrestricted() bool {
	return s.unrestricted
}

// DeniesAll reports whether the scope matches no case at all
func (s AccessScope) DeniesAll() bool {
	return s.denyAll
}

// ApplyToCases restricts a query over the cases table
func (s AccessScope) ApplyToCases(q *gorm.DB) *gorm.DB {
	switch {
	case s.denyAll:
		return q.Where("1 = 0")
	case s.unrestricted:
		return q
	default:
		return q.Where(fmt.Sprintf("cases.%s = ?", s.Column), s.Value)
	}
}

// ApplyViaCase restricts a query over a table that carries case_id. The
// child rows inherit visibility from their parent case.
func (s AccessScope) ApplyViaCase(q *gorm.DB, table string) *gorm.DB {
	switch {
	case s.denyAll:
		return q.Where("1 = 0")
	case s.unrestricted:
		return q
	default:
		visible := q.Session(&gorm.Session{NewDB: true}).
			Model(&models.Case{}).
			Select("id").
			Where(fmt.Sprintf("%s = ?", s.Column), s.Value)
		return q.Where(fmt.Sprintf("%s.case_id IN (?)", table), visible)
	}
}

// Allows reports whether a single case lies inside the scope
func (s AccessScope) Allows(c *models.Case) bool {
	if c == nil || s.denyAll {
		return false
	}
	if s.unrestricted {
		return true
	}
	rule, ok := scopeRules[s.Role]
	if !ok {
		return false
	}
	return rule.field(c) == s.Value
}

// Check returns ErrOutOfScope when the case lies outside the scope
func (s AccessScope) Check(c *models.Case) error {
	if !s.Allows(c) {
		return ErrOutOfScope
	}
	return nil
}

// RequireRank is the write-level threshold check, independent of geography
func RequireRank(user *models.User, min models.Role) error {
	if user == nil || !user.Role.AtLeast(min) {
		return fmt.Errorf("%w: requires %s or above", ErrInsufficientRank, min)
	}
	return nil
}

// RequireRole accepts only the listed roles
func RequireRole(user *models.User, roles ...models.Role) error {
	if user != nil {
		for _, r := range roles {
			if user.Role == r {
				return nil
			}
		}
	}
	return ErrRoleNotPermitted
}
