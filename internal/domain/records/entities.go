package records

import "encoding/json"

// UserSnapshot is the identity of the signed-in visitor copied onto a record.
type UserSnapshot struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
}

// Lead is the payload of a contact-form submission.
type Lead struct {
	Timestamp int64         `json:"timestamp"`
	Name      string        `json:"name"`
	Contact   string        `json:"contact"`
	Course    string        `json:"course"`
	Page      string        `json:"page"`
	User      *UserSnapshot `json:"user"`
}

// Agreement is the payload of an enrollment submission.
type Agreement struct {
	Timestamp      int64         `json:"timestamp"`
	User           *UserSnapshot `json:"user"`
	Course         string        `json:"course"`
	FullName       string        `json:"full_name"`
	Phone          string        `json:"phone"`
	Email          string        `json:"email"`
	Telegram       string        `json:"telegram"`
	Agreement      string        `json:"agreement"`
	Consent        string        `json:"consent"`
	ContractToken  string        `json:"contract_token"`
	ContractStatus string        `json:"contract_status"`
}

// Document converts the lead to its stored form.
func (l Lead) Document() (Document, error) { return toDocument(l) }

// Document converts the agreement to its stored form.
func (a Agreement) Document() (Document, error) { return toDocument(a) }

func toDocument(v any) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return DecodeDocument(data)
}
