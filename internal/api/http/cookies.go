package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/jobassist/jobassist/internal/api/domain"
)

const (
	refreshCookie    = "refresh_token"
	deviceIDCookie   = "device_id"
	deviceNameCookie = "device_name"
	stateCookie      = "oauth_state"

	headerDeviceID   = "X-Device-ID"
	headerDeviceName = "X-Device-Name"

	DefaultDeviceCookieTTL = 365 * 24 * time.Hour
	stateCookieTTL         = 10 * time.Minute
)

// CookieConfig controls the attributes of every cookie the API sets.
type CookieConfig struct {
	Secure     bool
	Domain     string
	RefreshTTL time.Duration
	DeviceTTL  time.Duration
}

func (c CookieConfig) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// setSession writes the refresh and device cookies for pair.
func (c CookieConfig) setSession(w http.ResponseWriter, pair *domain.TokenPair) {
	refreshAge := time.Until(pair.RefreshExpiresAt)
	if c.RefreshTTL > 0 {
		refreshAge = c.RefreshTTL
	}
	deviceAge := c.DeviceTTL
	if deviceAge <= 0 {
		deviceAge = DefaultDeviceCookieTTL
	}
	http.SetCookie(w, c.cookie(refreshCookie, pair.RefreshToken, refreshAge))
	http.SetCookie(w, c.cookie(deviceIDCookie, pair.DeviceID, deviceAge))
}

func (c CookieConfig) clearRefresh(w http.ResponseWriter) {
	ck := c.cookie(refreshCookie, "", 0)
	ck.MaxAge = -1
	http.SetCookie(w, ck)
}

func (c CookieConfig) setState(w http.ResponseWriter, state string) {
	http.SetCookie(w, c.cookie(stateCookie, state, stateCookieTTL))
}

func (c CookieConfig) clearState(w http.ResponseWriter) {
	ck := c.cookie(stateCookie, "", 0)
	ck.MaxAge = -1
	http.SetCookie(w, ck)
}

// cookieValue returns the named cookie's value or "".
func cookieValue(r *http.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(ck.Value)
}

// deviceFromRequest reads the device binding from cookie, then header, then
// form field. Browsers use the cookies; native clients send the headers.
func deviceFromRequest(r *http.Request) domain.Device {
	return domain.Device{
		ID:   firstNonEmpty(cookieValue(r, deviceIDCookie), r.Header.Get(headerDeviceID), r.PostFormValue("device_id")),
		Name: firstNonEmpty(cookieValue(r, deviceNameCookie), r.Header.Get(headerDeviceName), r.PostFormValue("device_name")),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
