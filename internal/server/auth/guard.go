package auth

import (
	"github.com/dmitrijs2005/yelpcamp/internal/common"
	"github.com/dmitrijs2005/yelpcamp/internal/server/models"
)

// Owned is any resource with a single immutable author.
type Owned interface {
	OwnerID() string
}

// Authorize decides whether principal may mutate resource. It returns nil
// when allowed, common.ErrorUnauthenticated when there is no principal and
// common.ErrorForbidden when the principal is not the author.
//
// Call it after the resource has been loaded (a missing resource is a
// not-found condition, not a denial) and before any write.
func Authorize(principal *models.User, resource Owned) error {
	if principal == nil || principal.ID == "" {
		return common.ErrorUnauthenticated
	}
	if resource == nil || resource.OwnerID() != principal.ID {
		return common.ErrorForbidden
	}
	return nil
}
