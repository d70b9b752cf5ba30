// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"fmt"
	"strings"
)

// # User Roles

// UserRole is the authorization level carried in the "rol" token claim.
type UserRole string

const (
	RoleAdmin     UserRole = "admin"     // wallet reconciliation and every moderator right
	RoleModerator UserRole = "moderator" // imports into any story
	RoleAuthor    UserRole = "author"    // imports into the author's own stories
	RoleMember    UserRole = "member"    // reading, wallet and unlocks
)

// roleRank orders the roles. Unknown roles rank 0 and satisfy nothing.
var roleRank = map[UserRole]int{
	RoleMember:    1,
	RoleAuthor:    2,
	RoleModerator: 3,
	RoleAdmin:     4,
}

// AtLeast reports whether r ranks at or above target.
func (r UserRole) AtLeast(target UserRole) bool {
	rank := roleRank[r]
	return rank > 0 && rank >= roleRank[target]
}

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	return roleRank[r] > 0
}

// ParseRole accepts a role name in any case.
func ParseRole(name string) (UserRole, error) {
	role := UserRole(strings.ToLower(strings.TrimSpace(name)))
	if !role.Valid() {
		return "", fmt.Errorf("sec: unknown role %q", name)
	}
	return role, nil
}
