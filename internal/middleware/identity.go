package middleware

import "github.com/labstack/echo/v4"

// Actor returns the authenticated staff member's subject, or "" for
// anonymous requests.  Handlers record it in reservation history.
func Actor(c echo.Context) string {
	if v, ok := c.Get(ctxActor).(string); ok {
		return v
	}
	return ""
}

// rateSubject identifies the caller for rate limiting.
func rateSubject(c echo.Context) string {
	if a := Actor(c); a != "" {
		return a
	}
	return "anon"
}

// Role returns the role claim of the authenticated caller.
func Role(c echo.Context) string {
	r, _ := c.Get(ctxRole).(string)
	return r
}
