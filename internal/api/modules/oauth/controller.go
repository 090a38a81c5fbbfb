package oauth_module

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// connectedHTML is shown inside the provider's popup once the account is
// connected.
const connectedHTML = "<html><body style='font-family:Arial'>" +
	"<h2>Аккаунт подключен ✅</h2>" +
	"Можно закрыть окно.</body></html>"

// getStart handles GET requests opening the connect flow. It issues a state,
// remembers which account asked, and hands back the consent URL; with go=1
// it redirects straight to the provider.
func getStart(c *gin.Context) {
	clientID := service.cfg.Get("AMO_CLIENT_ID")
	if clientID == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "missing_env", "details": "AMO_CLIENT_ID"})
		return
	}

	subdomain := inferSubdomain(c)
	state := uuid.NewString()
	if subdomain != "" {
		if err := service.states.Put(state, subdomain); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal_error", "details": err.Error()})
			return
		}
	}

	// marketplace flows use mode=post_message and still land on the
	// redirect_uri with a code
	consentURL := fmt.Sprintf("%s?client_id=%s&state=%s&mode=post_message", AUTH_PAGE_URL, clientID, state)

	if c.Query("go") == "1" {
		c.Redirect(http.StatusFound, consentURL)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "url": consentURL, "state": state, "subdomain": subdomain})
}

// handleCallback handles the provider redirect carrying the authorization
// code. The account is resolved from the pending state first, then inferred
// from the request; the code is exchanged and credentials stored.
func handleCallback(c *gin.Context) {
	code := queryOrForm(c, "code")
	state := queryOrForm(c, "state")

	subdomain := ""
	if st, err := service.states.Get(state); err == nil && st != nil {
		subdomain = st.Subdomain
	}
	if subdomain == "" {
		subdomain = inferSubdomain(c)
	}

	if code == "" {
		service.events.Append("oauth_fail", gin.H{"reason": "no_code", "args": c.Request.URL.Query()})
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "no_code"})
		return
	}
	if subdomain == "" {
		service.events.Append("oauth_fail", gin.H{"reason": "no_subdomain", "args": c.Request.URL.Query()})
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "no_subdomain"})
		return
	}

	if _, err := service.manager.ExchangeCode(c.Request.Context(), subdomain, code); err != nil {
		service.events.Append("oauth_error", gin.H{"subdomain": subdomain, "error": err.Error(), "args": c.Request.URL.Query()})
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal_error", "details": err.Error()})
		return
	}

	service.events.Append("oauth_ok", gin.H{"subdomain": subdomain, "referer": c.Query("referer")})
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(connectedHTML))
}

/** ---- HELPERS ---- */

// queryOrForm reads a value from the query string first, then the form body.
func queryOrForm(c *gin.Context, key string) string {
	if v := strings.TrimSpace(c.Query(key)); v != "" {
		return v
	}
	return strings.TrimSpace(c.PostForm(key))
}

// inferSubdomain resolves the account subdomain from, in order, an explicit
// query param, a referer query param, and the Referer header.
func inferSubdomain(c *gin.Context) string {
	if sd := strings.TrimSpace(c.Query("subdomain")); sd != "" {
		return sd
	}
	if ref := strings.TrimSpace(c.Query("referer")); ref != "" {
		return parseSubdomainFromHost(ref)
	}
	if hdr := c.GetHeader("Referer"); hdr != "" {
		if u, err := url.Parse(hdr); err == nil && u.Hostname() != "" {
			return parseSubdomainFromHost(u.Hostname())
		}
	}
	return ""
}

// parseSubdomainFromHost pulls the account name out of hosts like
// "acme.amocrm.ru" or a bare "acme".
func parseSubdomainFromHost(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}
	host, _, _ = strings.Cut(host, ":")

	parts := strings.Split(host, ".")
	if len(parts) >= 3 && parts[len(parts)-2] == "amocrm" {
		return parts[0]
	}
	if !strings.Contains(host, ".") {
		return host
	}
	return parts[0]
}
