package domain

// Roles carried in the access token's role claim.
const (
	RoleAdmin       = "admin"
	RoleCustomer    = "customer"
	RoleGarageOwner = "garage_owner"
)
