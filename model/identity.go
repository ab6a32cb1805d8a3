package model

// Identity is the authenticated caller resolved from a bearer token.
// All ledger operations are scoped by UID.
type Identity struct {
	UID     string `json:"uid"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}
