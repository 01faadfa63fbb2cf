package middleware

var (
	SanitizeRemoteAddr = sanitizeRemoteAddr
	SanitizeQuery      = sanitizeQuery
	ClassifyError      = classifyError
)
