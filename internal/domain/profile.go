package domain

import "time"

// Roles stored on user_profiles.role.
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// Payment status recorded on the profile at provisioning time.
const PaymentStatusCompleted = "completed"

// UserProfile is the application's own record of a user, one-to-one with a
// Supabase auth identity (id == auth user id).
type UserProfile struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	FirstName          string    `json:"first_name"`
	LastName           string    `json:"last_name"`
	Phone              string    `json:"phone,omitempty"`
	Company            string    `json:"company,omitempty"`
	BusinessType       string    `json:"business_type,omitempty"`
	Address            string    `json:"address,omitempty"`
	City               string    `json:"city,omitempty"`
	State              string    `json:"state,omitempty"`
	ZipCode            string    `json:"zip_code,omitempty"`
	YearsInBusiness    string    `json:"years_in_business,omitempty"`
	AverageJobValue    string    `json:"average_job_value,omitempty"`
	CallVolume         string    `json:"call_volume,omitempty"`
	CurrentChallenges  string    `json:"current_challenges,omitempty"`
	PreferredStartDate string    `json:"preferred_start_date,omitempty"`
	HearAboutUs        string    `json:"hear_about_us,omitempty"`
	SelectedPlan       string    `json:"selected_plan,omitempty"`
	PaymentStatus      string    `json:"payment_status,omitempty"`
	Role               string    `json:"role"`
	AgentNumber        string    `json:"agent_number,omitempty"`
	HasAgentNumber     bool      `json:"has_agent_number"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// SessionBootstrap is the session-start payload: the profile plus the
// resolved agent-number view the dashboard renders.
type SessionBootstrap struct {
	Profile      *UserProfile `json:"profile"`
	AgentNumber  string       `json:"agent_number"`
	NumberStatus NumberStatus `json:"number_status"`
}

// Identity is an authentication principal in Supabase Auth.
type Identity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionTokens are the tokens GoTrue hands back at signup/login. Returning
// them from provisioning lands the user directly in an authenticated session.
type SessionTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}
