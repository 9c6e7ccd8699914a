package core

// Actor identifies who performed an action. It is resolved by the
// authentication layer and passed down explicitly.
type Actor struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

func (a Actor) IsZero() bool {
	return a.ID == ""
}
