package replaydto

// Error codes carried by DomainError.
const (
	CodeInvalidRequest = "invalid_request"
	CodeParse          = "parse_error"
	CodeIllegalMove    = "illegal_move"
	CodeNotFound       = "not_found"
	CodeCapacity       = "capacity_exceeded"
	CodeConflict       = "conflict"
	CodeInternal       = "internal"
)

type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "replay service error"
}
