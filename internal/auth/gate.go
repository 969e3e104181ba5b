package auth

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderServiceKey carries the shared secret for service-to-service calls.
// Header names are case-insensitive in net/http, so both conventional
// spellings of the key resolve to this one canonical lookup.
const HeaderServiceKey = "X-Service-Key"

// Context keys set by the gate for downstream handlers.
const (
	CtxUserID    = "user_id"
	CtxUserEmail = "user_email"
	CtxUserRole  = "user_role"
	CtxIsService = "is_service"
)

// GateConfig wires the gate's collaborators.
type GateConfig struct {
	ServiceKey string
	Verifier   SessionVerifier
	Roles      RoleStore
}

// Gate classifies every request as service, user or rejected. This is the
// production configuration: a matching shared secret bypasses session
// checks entirely, otherwise a verified session with a manager-or-above
// role is required. The landing page, OPTIONS preflights and health paths
// are always open.
func Gate(cfg GateConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if openPath(c) {
			c.Next()
			return
		}

		if isServiceRequest(c, cfg.ServiceKey) {
			attachServiceContext(c)
			log.Printf("[info] operation=gate mode=service path=%s", c.Request.URL.Path)
			c.Next()
			return
		}

		requireUser(c, cfg)
	}
}

// RequireRole is the gate without the service-key bypass: every caller,
// trusted backend or not, must present a valid session with a privileged
// role. Deployments that do not accept service traffic wire this variant.
func RequireRole(cfg GateConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if openPath(c) {
			c.Next()
			return
		}
		requireUser(c, cfg)
	}
}

func requireUser(c *gin.Context, cfg GateConfig) {
	token := extractToken(c)
	if token == "" {
		rejectUnauthenticated(c)
		return
	}

	sess, err := cfg.Verifier.Verify(c.Request.Context(), token)
	if err != nil {
		rejectUnauthenticated(c)
		return
	}

	role, err := cfg.Roles.RoleFor(c.Request.Context(), sess.UserID)
	if err != nil {
		// A broken role lookup must not widen access.
		log.Printf("[error] operation=gate user_id=%s error=%v", sess.UserID, err)
		role = RoleUser
	}

	if !Privileged(role) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "Forbidden - Manager access required",
		})
		return
	}

	c.Set(CtxIsService, false)
	c.Set(CtxUserID, sess.UserID)
	c.Set(CtxUserEmail, sess.Email)
	c.Set(CtxUserRole, role)
	c.Next()
}

// openPath covers the public landing page, CORS preflights and any
// health-check path. These are never role-checked.
func openPath(c *gin.Context) bool {
	path := c.Request.URL.Path
	if path == "/" {
		return true
	}
	if c.Request.Method == http.MethodOptions {
		return true
	}
	return strings.Contains(path, "health")
}

func isServiceRequest(c *gin.Context, expected string) bool {
	if expected == "" {
		return false
	}
	key := c.GetHeader(HeaderServiceKey)
	if key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(expected)) == 1
}

// attachServiceContext records the advisory identity headers a trusted
// service may forward for row-level attribution. The values are not
// verified; the shared secret already established trust in the channel.
func attachServiceContext(c *gin.Context) {
	userID := c.GetHeader("X-User-Id")
	if userID == "" {
		userID = "service-user"
	}
	role := c.GetHeader("X-User-Role")
	if role == "" {
		role = RoleUser
	}

	c.Set(CtxIsService, true)
	c.Set(CtxUserID, userID)
	c.Set(CtxUserEmail, c.GetHeader("X-User-Email"))
	c.Set(CtxUserRole, role)
}

// rejectUnauthenticated redirects browsing requests to the entry point and
// returns a JSON 401 for API paths.
func rejectUnauthenticated(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Redirect(http.StatusFound, "/?error=unauthorized")
	c.Abort()
}

// extractToken pulls the session token from the Authorization header or,
// failing that, the session cookie.
func extractToken(c *gin.Context) string {
	bearer := c.GetHeader("Authorization")
	if strings.HasPrefix(bearer, "Bearer ") && len(bearer) > 7 {
		return bearer[7:]
	}
	if cookie, err := c.Cookie("session"); err == nil {
		return cookie
	}
	return ""
}
