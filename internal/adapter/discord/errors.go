package discord

import (
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/pscheid92/guildboard/internal/platform/retry"
)

// Classify maps a Discord failure to a retry action. Requests Discord
// rejected are permanent; rate limits and server errors are transient.
// Anything without an HTTP response (timeouts, resets) is transient.
func Classify(err error) retry.Action {
	status, ok := statusCode(err)
	if !ok {
		return retry.Retry
	}

	switch {
	case status == http.StatusTooManyRequests:
		return retry.After
	case status >= 500:
		return retry.Retry
	default:
		return retry.Stop
	}
}

func statusCode(err error) (int, bool) {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Response == nil {
		return 0, false
	}
	return restErr.Response.StatusCode, true
}

func isNotFound(err error) bool {
	status, ok := statusCode(err)
	return ok && status == http.StatusNotFound
}

// statusLabel is the status label for request metrics.
func statusLabel(err error) string {
	if err == nil {
		return "success"
	}
	if isBreakerOpen(err) {
		return "breaker_open"
	}
	if status, ok := statusCode(err); ok {
		switch {
		case status == http.StatusTooManyRequests:
			return "rate_limited"
		case status >= 500:
			return "server_error"
		default:
			return "client_error"
		}
	}
	return "error"
}
