package httpkit

import (
	"slices"

	"github.com/gin-gonic/gin"
)

// Role names issued by the identity provider.
const (
	RoleAdmin    = "admin"
	RoleAgent    = "agent"
	RoleCustomer = "customer"
)

// Identity is the caller resolved by AuthRequired.
type Identity struct {
	userID int64
	roles  []string
}

func (i *Identity) UserID() int64 { return i.userID }

func (i *Identity) Roles() []string { return i.roles }

func (i *Identity) HasRole(role string) bool { return slices.Contains(i.roles, role) }

// GetIdentity reads the identity stored by AuthRequired. ok is false for
// anonymous requests.
func GetIdentity(c *gin.Context) (*Identity, bool) {
	raw, exists := c.Get(ContextUserIDKey)
	if !exists {
		return nil, false
	}
	uid, isInt := raw.(int64)
	if !isInt || uid <= 0 {
		return nil, false
	}
	roles, _ := c.Get(ContextRolesKey)
	roleList, _ := roles.([]string)
	return &Identity{userID: uid, roles: roleList}, true
}

// MustGetIdentity returns the caller or aborts with 401 and returns nil.
func MustGetIdentity(c *gin.Context) *Identity {
	id, ok := GetIdentity(c)
	if !ok {
		abortUnauthorized(c, "unauthorized")
		return nil
	}
	return id
}
