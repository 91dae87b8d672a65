package request

// IssueSessionRequest is pushed by the identity provider after it signed the
// caller in.
type IssueSessionRequest struct {
	Subject    string `json:"subject" validate:"required,max=128"`
	Email      string `json:"email" validate:"required,email"`
	TTLMinutes int    `json:"ttl_minutes" validate:"omitempty,min=1,max=43200"`
}
