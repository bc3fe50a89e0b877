package httpserver

import (
	"log"

	"github.com/gin-gonic/gin"
	"storefront/internal/auth"
	"storefront/internal/domain"
	"storefront/internal/session"
)

// DeviceHeader carries the device id. A request without one is issued a new
// id in the response header of the same name.
const DeviceHeader = "X-Device-ID"

const sessionKey = "storefront.session"

func sessionMiddleware(sessions SessionResolver, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID := c.GetHeader(DeviceHeader)
		if deviceID == "" {
			deviceID = session.NewDeviceID()
		}
		c.Header(DeviceHeader, deviceID)

		s, err := sessions.Resolve(c.Request.Context(), deviceID, c.GetHeader("Authorization"))
		if err != nil {
			writeError(c, logger, err)
			c.Abort()
			return
		}
		if id := s.Identity(); id.UserID != "" {
			c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		}
		c.Set(sessionKey, s)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

// requireUser returns the signed-in user's id, or writes 401 and returns "".
func (h *handlers) requireUser(c *gin.Context) (*session.Session, string) {
	s := sessionFrom(c)
	userID := s.Identity().UserID
	if userID == "" {
		writeError(c, h.logger, domain.ErrUnauthenticated)
		return nil, ""
	}
	return s, userID
}
