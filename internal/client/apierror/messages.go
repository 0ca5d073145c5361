package apierror

var networkMessages = map[string]string{
	CodeTimeout:            "The server took too long to respond. Please try again.",
	CodeConnectionRefused:  "Unable to connect to the server. Please make sure it is running and try again.",
	CodeServerNotFound:     "Server not found. Please check the server address.",
	CodeNetworkUnreachable: "Network is unreachable. Please check your internet connection.",
	CodeNetworkError:       "Network error. Please check your connection and try again.",
}

var kindMessages = map[Kind]string{
	KindValidation:     "The request contains invalid data. Please check your input.",
	KindUnauthorized:   "Authentication required. Please log in.",
	KindForbidden:      "You do not have permission to perform this action.",
	KindNotFound:       "The requested resource was not found.",
	KindTimeout:        "The request timed out. Please try again.",
	KindRateLimited:    "Too many requests. Please wait a moment and try again.",
	KindServer:         "Server error. Please try again later.",
	KindSessionExpired: "Your session has expired. Please log in again.",
	KindUnknown:        "An unexpected error occurred. Please try again.",
}

func defaultMessage(kind Kind, code string) string {
	if kind == KindNetwork {
		if msg, ok := networkMessages[code]; ok {
			return msg
		}
		return networkMessages[CodeNetworkError]
	}
	if msg, ok := kindMessages[kind]; ok {
		return msg
	}
	return kindMessages[KindUnknown]
}
