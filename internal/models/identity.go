package models

// Identity is the verified caller of an authenticated request.
//
// Subject is the issuer-scoped stable id; it is what [User] rows are keyed by.
type Identity struct {
	Subject string `json:"sub"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
}
