package entity

// Actor is the caller identity resolved for one request
type Actor struct {
	UserID       string `json:"user_id"`
	Role         Role   `json:"role"`
	ProductionID string `json:"production_id"`
}

// Is reports whether the actor holds role
func (a Actor) Is(role Role) bool {
	return a.Role == role
}
