package chat

import "errors"

// User-facing replies.
const (
	RateLimitReply   = "Groq limit hit 😅 Wait 30-60 sec!"
	errorReplyPrefix = "Oops: "
	maxErrorRunes    = 200
)

// ErrorReply turns a completion failure into the text sent back to the user.
func ErrorReply(err error) string {
	if errors.Is(err, ErrRateLimited) {
		return RateLimitReply
	}
	return errorReplyPrefix + Truncate(err.Error(), maxErrorRunes)
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
