// Package domain contains core domain types for the frontdesk application.
package domain

// ClientProfile is the immutable per-tenant configuration bundle.
// It is loaded once by the profile store and shared read-only between
// requests; a config change requires an explicit cache invalidation.
type ClientProfile struct {
	ClientID          string   `json:"client_id"`
	DisplayName       string   `json:"display_name"`
	FAQText           string   `json:"-"`
	ToneDescriptor    string   `json:"-"`
	RequiredFields    []string `json:"required_fields"`
	NotificationEmail string   `json:"notification_email"`
}

// HasRequiredField reports whether name is one of the profile's lead fields.
func (p *ClientProfile) HasRequiredField(name string) bool {
	for _, f := range p.RequiredFields {
		if f == name {
			return true
		}
	}
	return false
}
