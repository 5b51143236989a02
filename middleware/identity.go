package middleware

import (
	"fmt"

	"food-ordering-api/models"
)

// Identity is the authenticated caller. It is one of Customer,
// RestaurantOwner or Admin; handlers switch on the concrete type.
type Identity interface {
	UserID() uint
	Role() models.UserRole
	identity()
}

type Customer struct {
	ID    uint
	Email string
}

type RestaurantOwner struct {
	ID    uint
	Email string
}

type Admin struct {
	ID    uint
	Email string
}

func (c Customer) UserID() uint          { return c.ID }
func (c Customer) Role() models.UserRole { return models.RoleCustomer }
func (Customer) identity()               {}

func (o RestaurantOwner) UserID() uint          { return o.ID }
func (o RestaurantOwner) Role() models.UserRole { return models.RoleRestaurant }
func (RestaurantOwner) identity()               {}

func (a Admin) UserID() uint          { return a.ID }
func (a Admin) Role() models.UserRole { return models.RoleAdmin }
func (Admin) identity()               {}

// IdentityFromClaims resolves the token's role once. Unknown roles are rejected.
func IdentityFromClaims(c *Claims) (Identity, error) {
	switch c.Role {
	case models.RoleCustomer:
		return Customer{ID: c.UserID, Email: c.Email}, nil
	case models.RoleRestaurant:
		return RestaurantOwner{ID: c.UserID, Email: c.Email}, nil
	case models.RoleAdmin:
		return Admin{ID: c.UserID, Email: c.Email}, nil
	}
	return nil, fmt.Errorf("unknown role %q", c.Role)
}
