// README: Admin middleware; identifies the operator by card tag and checks the allow-list.
package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"farebox/internal/types"
)

const (
	AdminTagHeader = "X-Admin-Tag"
	ctxKeyTag      = "caller_tag"
)

// AdminChecker reports whether a card tag belongs to an operator.
type AdminChecker interface {
	IsAdmin(id types.ID) bool
}

// AdminTag rejects requests without the header (401) or from a card that is
// not on the allow-list (403). The accepted tag is available via CallerTag.
func AdminTag(admins AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		tag := strings.TrimSpace(c.GetHeader(AdminTagHeader))
		if tag == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + AdminTagHeader})
			return
		}
		if !admins.IsAdmin(types.ID(tag)) {
			log.Printf("admin rejected path=%s tag=%s", c.Request.URL.Path, tag)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not an admin"})
			return
		}
		c.Set(ctxKeyTag, tag)
		c.Next()
	}
}

// CallerTag returns the operator tag accepted by AdminTag, or "".
func CallerTag(c *gin.Context) types.ID {
	return types.ID(c.GetString(ctxKeyTag))
}
