package domain

// AdminAccountRequest is the body of the privileged provisioning endpoint.
// Secret is the shared operator secret; Profile carries optional form fields
// for the profile row; Role defaults to super_admin, matching the endpoint's
// primary purpose.
type AdminAccountRequest struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Secret   string         `json:"secret,omitempty"`
	Role     string         `json:"role,omitempty"`
	Profile  SignupSnapshot `json:"profile,omitempty"`
}

// PromoteRequest is the body of the super-admin promotion endpoint.
type PromoteRequest struct {
	Email  string `json:"email"`
	Secret string `json:"secret,omitempty"`
}
