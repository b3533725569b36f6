// Package wire defines the message shapes exchanged with the FPRAX
// notification backend: the notification record itself, user preferences,
// inbound frames on the real-time transport, and outbound commands.
package wire

import (
	"encoding/json"
	"time"
)

// Priority governs alert persistence and visual treatment.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Notification type constants
const (
	TypeNewApplication      = "new_application"
	TypeApplicationAccepted = "application_accepted"
	TypeApplicationRejected = "application_rejected"
	TypeInterviewRequest    = "interview_request"
	TypeCompanyContact      = "company_contact"
	TypeRelevantOffer       = "relevant_offer"
	TypeOfferExpiring       = "offer_expiring"
	TypeTest                = "test"
)

// Action is an optional follow-up surfaced to the user (e.g. a deep link).
type Action struct {
	Type    string `json:"type"`
	URL     string `json:"url,omitempty"`
	Message string `json:"message,omitempty"`
}

// Notification is a received event record. ID is stable across
// retransmission and is the de-duplication key.
type Notification struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Type      string          `json:"type"`
	Priority  Priority        `json:"priority"`
	Read      bool            `json:"read"`
	Timestamp time.Time       `json:"timestamp"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	Action    *Action         `json:"action,omitempty"`
}

// Preferences is a flat record of per-type toggles plus two channel toggles.
// Fetched once per authenticated session, mutated only by explicit updates.
type Preferences struct {
	NewApplication      bool `json:"new_application"`
	ApplicationAccepted bool `json:"application_accepted"`
	ApplicationRejected bool `json:"application_rejected"`
	InterviewRequest    bool `json:"interview_request"`
	CompanyContact      bool `json:"company_contact"`
	RelevantOffer       bool `json:"relevant_offer"`
	OfferExpiring       bool `json:"offer_expiring"`
	EmailNotifications  bool `json:"email_notifications"`
	PushNotifications   bool `json:"push_notifications"`
}

// PreferencesPatch is a partial preferences update. Nil fields are left
// unchanged server-side.
type PreferencesPatch struct {
	NewApplication      *bool `json:"new_application,omitempty"`
	ApplicationAccepted *bool `json:"application_accepted,omitempty"`
	ApplicationRejected *bool `json:"application_rejected,omitempty"`
	InterviewRequest    *bool `json:"interview_request,omitempty"`
	CompanyContact      *bool `json:"company_contact,omitempty"`
	RelevantOffer       *bool `json:"relevant_offer,omitempty"`
	OfferExpiring       *bool `json:"offer_expiring,omitempty"`
	EmailNotifications  *bool `json:"email_notifications,omitempty"`
	PushNotifications   *bool `json:"push_notifications,omitempty"`
}

// Apply merges the patch into prefs and returns the result.
func (p PreferencesPatch) Apply(prefs Preferences) Preferences {
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&prefs.NewApplication, p.NewApplication)
	set(&prefs.ApplicationAccepted, p.ApplicationAccepted)
	set(&prefs.ApplicationRejected, p.ApplicationRejected)
	set(&prefs.InterviewRequest, p.InterviewRequest)
	set(&prefs.CompanyContact, p.CompanyContact)
	set(&prefs.RelevantOffer, p.RelevantOffer)
	set(&prefs.OfferExpiring, p.OfferExpiring)
	set(&prefs.EmailNotifications, p.EmailNotifications)
	set(&prefs.PushNotifications, p.PushNotifications)
	return prefs
}

// DefaultPreferences enables every notification type and channel.
func DefaultPreferences() Preferences {
	return Preferences{
		NewApplication:      true,
		ApplicationAccepted: true,
		ApplicationRejected: true,
		InterviewRequest:    true,
		CompanyContact:      true,
		RelevantOffer:       true,
		OfferExpiring:       true,
		EmailNotifications:  true,
		PushNotifications:   true,
	}
}
