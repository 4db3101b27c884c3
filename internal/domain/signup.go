// Package domain defines the core entities for the FieldCall backend:
// signup snapshots, checkout sessions, user profiles and the agent-number
// assignment. These models are independent of the external providers.
package domain

// SignupSnapshot is the complete signup form payload captured at submission
// time. It is treated as opaque: serialized whole into checkout-session
// metadata and recovered unchanged after payment confirmation. Only a handful
// of fields are ever split out by name.
type SignupSnapshot map[string]string

// Form field keys the backend interprets. Everything else passes through.
const (
	FieldEmail    = "email"
	FieldPassword = "password"
)

func (s SignupSnapshot) Email() string    { return s[FieldEmail] }
func (s SignupSnapshot) Password() string { return s[FieldPassword] }

// profileFieldMap translates form keys to user_profiles columns. Fields not
// listed here (password, confirmPassword, selectedPlan) never reach the
// profile row.
var profileFieldMap = map[string]string{
	"firstName":          "first_name",
	"lastName":           "last_name",
	"phone":              "phone",
	"company":            "company",
	"businessType":       "business_type",
	"address":            "address",
	"city":               "city",
	"state":              "state",
	"zipCode":            "zip_code",
	"yearsInBusiness":    "years_in_business",
	"averageJobValue":    "average_job_value",
	"callVolume":         "call_volume",
	"currentChallenges":  "current_challenges",
	"preferredStartDate": "preferred_start_date",
	"hearAboutUs":        "hear_about_us",
}

// ProfileColumns maps the snapshot's business fields onto user_profiles
// column names. Unknown keys are dropped; values are copied verbatim.
func (s SignupSnapshot) ProfileColumns() map[string]any {
	cols := make(map[string]any, len(profileFieldMap))
	for key, col := range profileFieldMap {
		if v, ok := s[key]; ok {
			cols[col] = v
		}
	}
	return cols
}

// Plan is a purchasable subscription plan. The price table is server-owned;
// the client only ever sends the plan id.
type Plan struct {
	ID          string
	Name        string
	Description string
	AmountCents int64 // USD minor units
}

var plans = map[string]Plan{
	"starter": {
		ID:          "starter",
		Name:        "FieldCall™ Starter Plan",
		Description: "Monthly subscription - 40 calls included",
		AmountCents: 9900,
	},
	"pro": {
		ID:          "pro",
		Name:        "FieldCall™ Pro Plan",
		Description: "Monthly subscription - 160 calls included",
		AmountCents: 37500,
	},
	// growth and pay-as-you-go are display-only and not purchasable here.
}

// PlanByID returns the plan for a known purchasable plan id.
func PlanByID(id string) (Plan, bool) {
	p, ok := plans[id]
	return p, ok
}
