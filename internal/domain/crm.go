package domain

// CRMCustomField is a custom-field value on a CRM contact. Field ids are
// opaque configuration constants, not semantic names.
type CRMCustomField struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// CRMContact is a contact record in the external CRM, matched by email.
type CRMContact struct {
	ID           string           `json:"id"`
	Email        string           `json:"email"`
	CustomFields []CRMCustomField `json:"customFields"`
}

// CustomField returns the value of the custom field with the given id.
func (c *CRMContact) CustomField(id string) (string, bool) {
	for _, f := range c.CustomFields {
		if f.ID == id {
			return f.Value, true
		}
	}
	return "", false
}

// CRMLead is the lead record mirrored into the CRM after provisioning.
type CRMLead struct {
	LocationID   string           `json:"locationId"`
	Type         string           `json:"type"`
	FirstName    string           `json:"firstName,omitempty"`
	LastName     string           `json:"lastName,omitempty"`
	Email        string           `json:"email"`
	Phone        string           `json:"phone,omitempty"`
	City         string           `json:"city,omitempty"`
	Address1     string           `json:"address1,omitempty"`
	CompanyName  string           `json:"companyName,omitempty"`
	State        string           `json:"state,omitempty"`
	PostalCode   string           `json:"postalCode,omitempty"`
	CustomFields []CRMCustomField `json:"customFields,omitempty"`
}
