package middleware

// Identity helpers shared across middleware files. Rate-limit keys want a
// user identifier even on routes where authentication is optional, so the
// lookup degrades to "anon" instead of failing.

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// currentUserID reads the identifier JWTAuth stored in the context. JWT
// numeric claims decode as float64, so the value is normalized through
// Sprint rather than asserted to one concrete type.
func currentUserID(c echo.Context) string {
	v := c.Get("user_id")
	if v == nil {
		return "anon"
	}
	if s := fmt.Sprint(v); s != "" && s != "<nil>" {
		return s
	}
	return "anon"
}
