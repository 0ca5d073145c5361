package api

// Codes for failures that happen on the client side of the wire.
const (
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeInvalidResponse = "INVALID_RESPONSE"
	CodeTokenStore      = "TOKEN_STORE_ERROR"
)
