package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrTransport         = errors.New("api: transport failure")
	ErrMalformedResponse = errors.New("api: malformed response")
)

// Business error codes carried in the error envelope's data.
const (
	CodeInsufficientPoints = "INSUFFICIENT_POINTS"
	CodeAlreadyOwned       = "ALREADY_OWNED"
	CodeUsernameTaken      = "USERNAME_TAKEN"
	CodeCodeUsed           = "CODE_USED"
	CodeConstraint         = "CONSTRAINT_VIOLATION"
)

// Error is a rejection reported by the backend.
type Error struct {
	StatusCode     int
	Message        string
	Code           string
	RequiredPoints int64
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api: %d: %s", e.StatusCode, e.Message)
}

// errorPayload is the structured form of a business error.
type errorPayload struct {
	Code           string `json:"code"`
	RequiredPoints *int64 `json:"requiredPoints"`
}

// Older backends only describe business errors in prose.
var (
	requiredPointsPattern = regexp.MustCompile(`(?i)required(?:\s+points)?\s*:\s*(\d+)`)
	legacyCodes           = []struct {
		code    string
		matches []string
	}{
		{CodeAlreadyOwned, []string{"already own"}},
		{CodeUsernameTaken, []string{"already exists", "username taken", "用户名已存在"}},
		{CodeCodeUsed, []string{"already used", "invalid or used", "已使用"}},
		{CodeConstraint, []string{"foreign key", "constraint"}},
	}
)

func newError(status int, message string, data json.RawMessage) *Error {
	e := &Error{StatusCode: status, Message: message}

	var payload errorPayload
	if len(data) > 0 && data[0] == '{' && json.Unmarshal(data, &payload) == nil {
		e.Code = strings.ToUpper(payload.Code)
		if payload.RequiredPoints != nil {
			e.RequiredPoints = *payload.RequiredPoints
			if e.Code == "" {
				e.Code = CodeInsufficientPoints
			}
		}
	}
	if e.Code == "" {
		e.Code = classifyMessage(message)
	}
	if e.Code == CodeInsufficientPoints && e.RequiredPoints == 0 {
		e.RequiredPoints = parseRequiredPoints(message)
	}
	return e
}

func classifyMessage(message string) string {
	if parseRequiredPoints(message) > 0 || strings.Contains(strings.ToLower(message), "insufficient points") {
		return CodeInsufficientPoints
	}
	lower := strings.ToLower(message)
	for _, lc := range legacyCodes {
		for _, m := range lc.matches {
			if strings.Contains(lower, m) {
				return lc.code
			}
		}
	}
	return ""
}

func parseRequiredPoints(message string) int64 {
	m := requiredPointsPattern.FindStringSubmatch(message)
	if m == nil {
		return 0
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// AsError extracts a backend rejection from err.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// HasCode reports whether err is a backend rejection with the given code.
func HasCode(err error, code string) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.Code == code
}

// IsStatus reports whether err is a backend rejection with the given HTTP status.
func IsStatus(err error, status int) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.StatusCode == status
}

// IsUnauthorized reports a missing or rejected bearer token.
func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized)
}

// IsForbidden reports a 403, which the game reveal uses for "not purchased yet".
func IsForbidden(err error) bool {
	return IsStatus(err, http.StatusForbidden)
}
