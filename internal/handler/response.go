package handler

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the envelope every failed request returns. Codes are
// stable machine-readable strings ("bad_request", "payment_failed",
// "amount_mismatch", "insufficient_stock", ...); messages are for humans
// and may change. Internal failures always carry a generic message so
// driver and provider errors never reach the client.
type ErrorResponse struct {
	Error errorPayload `json:"error"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: errorPayload{
			Code:    code,
			Message: message,
		},
	}
}
