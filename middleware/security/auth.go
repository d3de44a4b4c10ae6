package security

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/homeproapp/realtorapp-server-sub001/module/messaging"
	"github.com/homeproapp/realtorapp-server-sub001/tools/security"
)

// Context key under which the verified principal is stored.
const CtxPrincipalKey = "principal"

type Options struct {
	Secret []byte
	// HeaderToken is the header carrying the raw token; Authorization:
	// Bearer is always accepted as well.
	HeaderToken string
}

func DefaultOptions(secret []byte) *Options {
	return &Options{
		Secret:      secret,
		HeaderToken: "token",
	}
}

// Middleware verifies the bearer token and stores the resulting principal
// in the gin context. The messaging core trusts this principal as-is.
func Middleware(opts *Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if opts.HeaderToken != "" {
			token = strings.TrimSpace(c.GetHeader(opts.HeaderToken))
		}
		if token == "" {
			authz := strings.TrimSpace(c.GetHeader("Authorization"))
			if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				token = strings.TrimSpace(authz[len("bearer "):])
			} else {
				token = authz
			}
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "missing token"})
			return
		}

		claims, err := security.Parse(opts.Secret, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid token"})
			return
		}

		c.Set(CtxPrincipalKey, messaging.Principal{
			UserID: claims.UserID,
			Role:   claims.Role,
			Scope:  messaging.ScopeOf(claims.Listings, nil),
		})
		c.Next()
	}
}

// PrincipalFrom pulls the verified principal out of the gin context.
func PrincipalFrom(c *gin.Context) (messaging.Principal, bool) {
	v, ok := c.Get(CtxPrincipalKey)
	if !ok {
		return messaging.Principal{}, false
	}
	p, ok := v.(messaging.Principal)
	return p, ok
}
