package overlay

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	idstore "assent/internal/identity/store"
)

// flowIdentity binds one request to a device record: the store the machine
// reads and writes through, the slot the session keeps for later requests,
// and the cookie write the response owes the client.
type flowIdentity struct {
	store *idstore.Store
	slot  idstore.Slot
	flush func(http.ResponseWriter)
}

func (h *Handler) identityForRequest(r *http.Request) flowIdentity {
	if h.sharedSlot != nil {
		return h.tokenIdentity(r)
	}

	slot := idstore.NewCookieSlot(r, idstore.CookieOptions{
		Name:   h.identity.CookieName,
		Domain: h.identity.CookieDomain,
		Secure: h.identity.CookieSecure,
	})
	return flowIdentity{
		store: idstore.New(slot, h.identity.CookieName, h.identity.TTL(), h.logger, h.metrics),
		slot:  slot,
		flush: slot.Flush,
	}
}

// tokenIdentity keys the shared slot by an opaque cookie token. The record
// itself stays server side, so the token cookie can be HttpOnly and is only
// issued once.
func (h *Handler) tokenIdentity(r *http.Request) flowIdentity {
	token := ""
	if c, err := r.Cookie(h.identity.CookieName); err == nil {
		token = c.Value
	}
	fresh := token == ""
	if fresh {
		token = uuid.NewString()
	}

	flush := func(w http.ResponseWriter) {
		if !fresh {
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     h.identity.CookieName,
			Value:    token,
			Path:     "/",
			Domain:   h.identity.CookieDomain,
			Expires:  time.Now().Add(h.identity.TTL()),
			MaxAge:   int(h.identity.TTL().Seconds()),
			Secure:   h.identity.CookieSecure,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return flowIdentity{
		store: idstore.New(h.sharedSlot, token, h.identity.TTL(), h.logger, h.metrics),
		slot:  h.sharedSlot,
		flush: flush,
	}
}

// flushIdentity re-emits the device cookie when the flow's slot buffered a
// write. Shared slots persist server side and owe the response nothing.
func (h *Handler) flushIdentity(w http.ResponseWriter, slot idstore.Slot) {
	if cs, ok := slot.(*idstore.CookieSlot); ok {
		cs.Flush(w)
	}
}
