package dex

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// InsufficientBalanceMarker is the substring the exchange embeds in balance
// failures. The agent keys its deposit-and-retry path off this marker.
const InsufficientBalanceMarker = "INSUFFICIENT_BALANCE"

// ErrInsufficientBalance is the canonical balance failure.
var ErrInsufficientBalance = errors.New(InsufficientBalanceMarker + ": trading balance too low")

// Error is a typed exchange failure. Message may be plain text or a JSON body
// forwarded from the chain ({"code": ..., "message": ...}).
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError builds a typed exchange error.
func NewError(code, format string, v ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, v...)}
}

// InsufficientBalanceError builds the canonical balance failure for a token.
func InsufficientBalanceError(token string, want, have int64) *Error {
	return &Error{
		Code:    InsufficientBalanceMarker,
		Message: fmt.Sprintf("token %s: need %d, have %d", token, want, have),
	}
}

// IsInsufficientBalance reports whether err is a balance failure, whatever
// shape it arrived in: the sentinel, a typed *Error, a marker substring, or a
// JSON error body whose code/message carries the marker.
func IsInsufficientBalance(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInsufficientBalance) {
		return true
	}
	var de *Error
	if errors.As(err, &de) && de.Code == InsufficientBalanceMarker {
		return true
	}
	msg := err.Error()
	if strings.Contains(msg, InsufficientBalanceMarker) {
		return true
	}
	if body := extractJSONBody(msg); body != "" && gjson.Valid(body) {
		parsed := gjson.Parse(body)
		if strings.Contains(parsed.Get("code").String(), InsufficientBalanceMarker) {
			return true
		}
		if strings.Contains(parsed.Get("message").String(), InsufficientBalanceMarker) {
			return true
		}
	}
	return false
}

// extractJSONBody pulls a trailing {...} object out of an error string, the
// usual shape of RPC failures wrapped by transport layers.
func extractJSONBody(msg string) string {
	start := strings.Index(msg, "{")
	end := strings.LastIndex(msg, "}")
	if start < 0 || end <= start {
		return ""
	}
	return msg[start : end+1]
}
