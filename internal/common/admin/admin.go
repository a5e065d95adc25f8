// Package admin guards the control-plane HTTP surface with a single
// bearer token: random-token-if-unset at startup and a constant-time
// comparison on each request, the same idiom used for the proxy's own
// Proxy-Authorization check, generalized to a plain Authorization:
// Bearer guard in front of /v1/* admin endpoints.
package admin

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenAuth guards requests with a single shared bearer token.
type TokenAuth struct {
	token string
}

// New returns a TokenAuth for token. If token is empty, a random one is
// generated and logged once at startup so an operator can retrieve it.
func New(token string) *TokenAuth {
	if token == "" {
		token = generateRandomToken()
		log.Printf("Generated admin token: %s", token)
	}
	return &TokenAuth{token: token}
}

// Token returns the configured token, for startup logging.
func (a *TokenAuth) Token() string {
	return a.token
}

// Valid reports whether r carries the configured bearer token.
func (a *TokenAuth) Valid(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return false
	}
	presented := strings.TrimPrefix(auth, "Bearer ")
	return subtle.ConstantTimeCompare([]byte(presented), []byte(a.token)) == 1
}

// Middleware rejects requests lacking a valid bearer token with 401.
func (a *TokenAuth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Valid(c.Request) {
			c.Header("WWW-Authenticate", `Bearer realm="fpengine-admin"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func generateRandomToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return "adm_" + hex.EncodeToString(b)
}
