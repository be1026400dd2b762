package types

// SuccessEnvelope wraps every successful API payload. Warnings carry the
// non-fatal conditions the engine surfaced while processing the request
// (oversell proceeded, pricing scheme fallback, and the like).
type SuccessEnvelope struct {
	Data     any      `json:"data"`
	Warnings []string `json:"warnings,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
