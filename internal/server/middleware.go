package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/constructtrack/internal/companycontext"
)

const (
	HeaderCompany = "X-Company-ID"
	HeaderActor   = "X-Actor-ID"

	contextActorKey = "actor"
	systemActor     = "system"
)

// CompanyContext scopes the request to the company named by X-Company-ID.
func (s *Server) CompanyContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderCompany))
		companyID, err := snowflake.ParseString(raw)
		if raw == "" || err != nil || companyID == 0 {
			AbortWithError(c, newValidationError("company", "invalid_company", "missing or unknown company"))
			return
		}

		ctx := companycontext.WithCompanyID(c.Request.Context(), companyID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ActorRequired resolves X-Actor-ID to "system" or "user:<id>".
func (s *Server) ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderActor))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		if strings.EqualFold(raw, systemActor) {
			c.Set(contextActorKey, Actor{Type: ActorSystem, ID: systemActor})
			c.Next()
			return
		}

		userID, err := snowflake.ParseString(strings.TrimPrefix(raw, "user:"))
		if err != nil || userID == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextActorKey, Actor{Type: ActorUser, ID: userID.String(), UserID: userID})
		ctx := companycontext.WithActorID(c.Request.Context(), userID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// SystemOnly admits only the system actor.
func (s *Server) SystemOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if actor.Type != ActorSystem {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}
