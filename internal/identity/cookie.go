package identity

import (
	"net/http"
	"time"
)

const cookieName = "participant_key"

// CookieKV stores the device slot in a long-lived cookie, the server-visible
// equivalent of a browser's local storage: one value per device, surviving
// restarts, never sent anywhere except back to us.
type CookieKV struct {
	w http.ResponseWriter
	r *http.Request
}

func NewCookieKV(w http.ResponseWriter, r *http.Request) *CookieKV {
	return &CookieKV{w: w, r: r}
}

func (c *CookieKV) Get() (string, bool) {
	ck, err := c.r.Cookie(cookieName)
	if err != nil || ck.Value == "" {
		return "", false
	}
	return ck.Value, true
}

func (c *CookieKV) Set(value string) {
	http.SetCookie(c.w, &http.Cookie{
		Name:     cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
