// README: Common value types shared across modules.
package types

// ID identifies users, orders, messages, and notifications.
type ID string

// Money is an integer amount in the campus currency (rupees).
type Money struct {
	Amount   int64
	Currency string
}

// Point is an advisory coordinate pair; no geo queries run against it.
type Point struct {
	Lat float64
	Lng float64
}

type Role string

const (
	RoleCustomer Role = "customer"
	RoleDelivery Role = "delivery"
	RoleAdmin    Role = "admin"
)

// Actor is the authenticated caller supplied by the identity collaborator.
// The core never performs credential checks itself.
type Actor struct {
	ID   ID
	Name string
	Role Role
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }
