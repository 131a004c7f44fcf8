// Package access decides what a caller may see and change.
//
// Every function here is pure: it looks only at the caller and the record
// passed in and returns nil or an apperror. Services call these before
// touching storage; handlers never make authorization decisions.
//
// A nil *auth.Caller is an anonymous request.
package access

import (
	"fmt"

	"github.com/sakif/navigation/internal/apperror"
	"github.com/sakif/navigation/internal/auth"
	"github.com/sakif/navigation/internal/model"
)

// RequireRole fails with Unauthorized for anonymous callers and with
// Forbidden when the caller's role ranks below required.
func RequireRole(caller *auth.Caller, required auth.Role) error {
	if caller == nil {
		return apperror.Unauthorized("authentication required")
	}
	if !auth.Satisfies(caller.Role, required) {
		return apperror.Forbidden(fmt.Sprintf("role %s or higher required", required))
	}
	return nil
}

// RequireAdmin gates category create, update and delete.
func RequireAdmin(caller *auth.Caller) error {
	return RequireRole(caller, auth.RoleAdmin)
}

// RequireUser gates website create and every favorite operation.
func RequireUser(caller *auth.Caller) error {
	return RequireRole(caller, auth.RoleUser)
}

// CanReadWebsite permits anyone to read a public website. A private one is
// readable by its owner and by admins; everyone else gets Forbidden, so
// the website's existence is not hidden.
func CanReadWebsite(caller *auth.Caller, w *model.Website) error {
	if w.IsPublic {
		return nil
	}
	if caller != nil && (w.OwnedBy(caller.ID) || caller.IsAdmin()) {
		return nil
	}
	return apperror.Forbidden("this website is private")
}

// CanMutateWebsite permits update and delete for users who own the website
// and for admins.
func CanMutateWebsite(caller *auth.Caller, w *model.Website) error {
	if err := RequireUser(caller); err != nil {
		return err
	}
	if w.OwnedBy(caller.ID) || caller.IsAdmin() {
		return nil
	}
	return apperror.Forbidden("only the owner or an admin can modify this website")
}

// Placement is where a website lands after create or update: its category
// and whether it is publicly listed.
type Placement struct {
	CategoryID *int64
	IsPublic   bool
}

// DeriveVisibility computes the placement of a website written by caller
// who asked for requested as its category.
//
//   - non-admin: always uncategorized and private ("mine"), whatever was asked
//   - admin with no category or the Mine id: uncategorized and private
//   - admin with a real category: that category, public
//
// A client-supplied isPublic never takes part in the decision.
func DeriveVisibility(caller *auth.Caller, requested *int64) Placement {
	if !caller.IsAdmin() || requested == nil || *requested == model.MineCategoryID {
		return Placement{CategoryID: nil, IsPublic: false}
	}
	id := *requested
	return Placement{CategoryID: &id, IsPublic: true}
}

// StripPrivilegedFields removes categoryId and isPublic from a non-admin's
// update. The fields are dropped silently; the rest of the patch applies.
func StripPrivilegedFields(caller *auth.Caller, patch model.WebsitePatch) model.WebsitePatch {
	if !caller.IsAdmin() {
		patch.CategoryID = nil
		patch.IsPublic = nil
	}
	return patch
}
