package stats

import (
	"context"
	"errors"
	"strings"
)

// Reason is a coarse failure classification used for aggregation and alerting.
type Reason string

const (
	ReasonConnection    Reason = "CONNECTION_ERROR"
	ReasonTimeout       Reason = "TIMEOUT_ERROR"
	ReasonRateLimit     Reason = "API_RATE_LIMIT"
	ReasonAPI           Reason = "API_ERROR"
	ReasonEmptyResponse Reason = "EMPTY_RESPONSE"
	ReasonParsing       Reason = "PARSING_ERROR"
	ReasonUnknown       Reason = "UNKNOWN_ERROR"
)

// Classifier maps error text fragments to reasons. Earlier entries win, so
// rate-limit markers are checked before generic API status codes.
var classifier = []struct {
	reason   Reason
	keywords []string
}{
	{ReasonTimeout, []string{"timeout", "timed out", "deadline"}},
	{ReasonRateLimit, []string{"429", "rate_limit", "rate limit", "quota", "too many requests"}},
	{ReasonAPI, []string{"400", "401", "403", "404", "500", "502", "503"}},
	{ReasonConnection, []string{"connection", "network", "dns", "unreachable"}},
	{ReasonEmptyResponse, []string{"empty", "null", "no_records", "no data"}},
	{ReasonParsing, []string{"json", "parse", "format", "decode", "invalid"}},
}

// Classify assigns a failure reason to an error. Context deadline errors are
// always timeouts regardless of their message.
func Classify(err error) Reason {
	if err == nil {
		return ReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	msg := strings.ToLower(err.Error())
	for _, c := range classifier {
		for _, kw := range c.keywords {
			if strings.Contains(msg, kw) {
				return c.reason
			}
		}
	}
	return ReasonUnknown
}
