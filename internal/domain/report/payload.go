package report

import (
	"net/mail"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DateLayout           = "2006-01-02"
	MinDescriptionLength = 10
	MaxDescriptionLength = 10000
)

type Category string

const (
	CategoryHarassment      Category = "harassment"
	CategoryCensorship      Category = "censorship"
	CategoryDigitalSecurity Category = "digital_security"
	CategoryRightsViolation Category = "rights_violation"
	CategoryOther           Category = "other"
)

var categories = map[Category]bool{
	CategoryHarassment:      true,
	CategoryCensorship:      true,
	CategoryDigitalSecurity: true,
	CategoryRightsViolation: true,
	CategoryOther:           true,
}

func (c Category) Valid() bool {
	return categories[c]
}

// Payload is the structured body of an incident report. It is immutable once
// a PendingReport has been created from it.
type Payload struct {
	Category     Category `json:"category"`
	IncidentDate string   `json:"incident_date"`
	Description  string   `json:"description"`
	Location     string   `json:"location,omitempty"`
	Geotagging   bool     `json:"geotagging"`
	Anonymous    bool     `json:"anonymous"`
	ContactEmail string   `json:"contact_email,omitempty"`
	ContactPhone string   `json:"contact_phone,omitempty"`
}

// Normalize trims every text field and drops contact details from anonymous
// reports.
func (p Payload) Normalize() Payload {
	p.Category = Category(strings.ToLower(strings.TrimSpace(string(p.Category))))
	p.IncidentDate = strings.TrimSpace(p.IncidentDate)
	p.Description = strings.TrimSpace(p.Description)
	p.Location = strings.TrimSpace(p.Location)
	p.ContactEmail = strings.TrimSpace(p.ContactEmail)
	p.ContactPhone = strings.TrimSpace(p.ContactPhone)
	if p.Anonymous {
		p.ContactEmail = ""
		p.ContactPhone = ""
	}
	return p
}

func (p Payload) Validate() error {
	verr := &ValidationError{}

	switch {
	case p.Category == "":
		verr.add("category", "please select an incident type")
	case !p.Category.Valid():
		verr.add("category", "unknown incident type "+string(p.Category))
	}

	if p.IncidentDate == "" {
		verr.add("incident_date", "please provide the incident date")
	} else if _, err := time.Parse(DateLayout, p.IncidentDate); err != nil {
		verr.add("incident_date", "date must be formatted as YYYY-MM-DD")
	}

	n := utf8.RuneCountInString(strings.TrimSpace(p.Description))
	switch {
	case n < MinDescriptionLength:
		verr.add("description", "description must be at least 10 characters")
	case n > MaxDescriptionLength:
		verr.add("description", "description must be at most 10000 characters")
	}

	if p.ContactEmail != "" {
		if _, err := mail.ParseAddress(p.ContactEmail); err != nil {
			verr.add("contact_email", "invalid email address")
		}
	}

	return verr.orNil()
}

// Title is the headline stored by the backend, e.g. "harassment incident on 2024-03-01".
func (p Payload) Title() string {
	return string(p.Category) + " incident on " + p.IncidentDate
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
