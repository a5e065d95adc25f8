package executor

import "net/http"

// parseSetCookies decodes raw Set-Cookie header lines into the boundary
// Cookie shape, using net/http's RFC 6265 parser for attribute handling
// and normalizing SameSite to a Default/Lax/Strict/None enum.
func parseSetCookies(raw []string) []Cookie {
	if len(raw) == 0 {
		return nil
	}
	header := http.Header{"Set-Cookie": raw}
	resp := http.Response{Header: header}
	out := make([]Cookie, 0, len(raw))
	for _, c := range resp.Cookies() {
		out = append(out, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			MaxAge:   c.MaxAge,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
			SameSite: sameSiteName(c.SameSite),
		})
	}
	return out
}

func sameSiteName(s http.SameSite) string {
	switch s {
	case http.SameSiteLaxMode:
		return "Lax"
	case http.SameSiteStrictMode:
		return "Strict"
	case http.SameSiteNoneMode:
		return "None"
	default:
		return "Default"
	}
}
