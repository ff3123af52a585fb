// Package scope models the mutually exclusive ownership context under
// which every read and write is filtered: a personal account (user ID,
// with organization explicitly absent) or an organization. Modeling
// this as a closed type instead of an optional org field removes the
// class of queries that forget the "must be absent" filter.
package scope

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/boxlens/boxlens-go/internal/errors"
)

// Kind discriminates the two ownership scopes.
type Kind string

const (
	KindPersonal     Kind = "personal"
	KindOrganization Kind = "organization"
)

// Scope is the ownership context of a request. The zero value is
// invalid; construct one with Personal or Organization.
type Scope struct {
	kind   Kind
	userID string
	orgID  string
}

// Personal returns a scope owned by a single user account.
func Personal(userID string) Scope {
	return Scope{kind: KindPersonal, userID: userID}
}

// Organization returns a scope owned by an organization.
func Organization(orgID string) Scope {
	return Scope{kind: KindOrganization, orgID: orgID}
}

// Kind returns the scope discriminator.
func (s Scope) Kind() Kind { return s.kind }

// UserID returns the owning user ID for personal scopes, "" otherwise.
func (s Scope) UserID() string { return s.userID }

// OrgID returns the owning organization ID for organization scopes,
// "" otherwise.
func (s Scope) OrgID() string { return s.orgID }

// IsZero reports whether the scope was never constructed.
func (s Scope) IsZero() bool { return s.kind == "" }

// Validate checks that the scope carries the ID its kind requires.
func (s Scope) Validate() error {
	switch s.kind {
	case KindPersonal:
		if s.userID == "" {
			return errors.Newf("personal scope requires a user ID").
				Component("scope").
				Category(errors.CategoryScope).
				Build()
		}
	case KindOrganization:
		if s.orgID == "" {
			return errors.Newf("organization scope requires an organization ID").
				Component("scope").
				Category(errors.CategoryScope).
				Build()
		}
	default:
		return errors.Newf("ownership scope is not set").
			Component("scope").
			Category(errors.CategoryScope).
			Build()
	}
	return nil
}

// Filter narrows a query to rows owned by this scope. Personal scopes
// require the organization column to be empty; the two scopes never
// merge.
func (s Scope) Filter(tx *gorm.DB) *gorm.DB {
	switch s.kind {
	case KindOrganization:
		return tx.Where("org_id = ?", s.orgID)
	case KindPersonal:
		return tx.Where("user_id = ? AND org_id = ?", s.userID, "")
	default:
		// An unset scope must never widen a query.
		return tx.Where("1 = 0")
	}
}

// Owner returns the (userID, orgID) column values for rows created
// under this scope. Exactly one of the two is non-empty.
func (s Scope) Owner() (userID, orgID string) {
	return s.userID, s.orgID
}

// String implements fmt.Stringer without leaking the raw IDs.
func (s Scope) String() string {
	switch s.kind {
	case KindPersonal:
		return "personal"
	case KindOrganization:
		return "organization"
	default:
		return "unset"
	}
}

// Parse reconstructs a scope from stored owner columns, validating
// mutual exclusivity.
func Parse(userID, orgID string) (Scope, error) {
	switch {
	case orgID != "" && userID != "":
		return Scope{}, fmt.Errorf("owner columns carry both user %q and organization", userID)
	case orgID != "":
		return Organization(orgID), nil
	case userID != "":
		return Personal(userID), nil
	default:
		return Scope{}, fmt.Errorf("owner columns are both empty")
	}
}
