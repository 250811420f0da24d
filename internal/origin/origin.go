package origin

import (
	"net/http"
	"strings"

	"github.com/samber/lo"
)

// Guard rejects requests whose browser headers do not look like they came
// from one of the allowed web origins. Best-effort bot and cross-site
// deterrence, not a security boundary on its own.
type Guard struct {
	allowed []string
}

var toolSignatures = []string{"curl", "wget", "Postman"}

func NewGuard(allowedOrigins []string) *Guard {
	allowed := lo.Filter(allowedOrigins, func(o string, _ int) bool {
		return o != ""
	})
	return &Guard{allowed: allowed}
}

func (g *Guard) Allowed() []string {
	return g.allowed
}

// Check accepts when the Origin header matches the allow-list exactly, or
// the Referer is prefixed by an allowed origin, and the User-Agent is
// present and not a known non-browser tool.
func (g *Guard) Check(h http.Header) bool {
	origin := h.Get("Origin")
	referer := h.Get("Referer")
	userAgent := h.Get("User-Agent")

	if !lo.Contains(g.allowed, origin) {
		refererOK := referer != "" && lo.SomeBy(g.allowed, func(allowed string) bool {
			return strings.HasPrefix(referer, allowed+"/")
		})
		if !refererOK {
			return false
		}
	}

	if userAgent == "" {
		return false
	}
	for _, sig := range toolSignatures {
		if strings.Contains(userAgent, sig) {
			return false
		}
	}
	return true
}
