package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/constructtrack/internal/authorization"
	"github.com/smallbiznis/constructtrack/internal/companycontext"
)

type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorSystem ActorType = "system"
)

type Actor struct {
	Type   ActorType
	ID     string
	UserID snowflake.ID
}

func (a Actor) subject() string {
	switch a.Type {
	case ActorUser:
		return "user:" + a.ID
	case ActorSystem:
		return systemActor
	default:
		return ""
	}
}

func actorFromContext(c *gin.Context) (Actor, bool) {
	if c == nil {
		return Actor{}, false
	}
	value, ok := c.Get(contextActorKey)
	if !ok {
		return Actor{}, false
	}
	actor, ok := value.(Actor)
	return actor, ok
}

func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authorizeWithContext(c, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// authorizeSelf lets an actor act on its own :userId under the employee
// grant and otherwise requires the grant for other users' records too.
func (s *Server) authorizeSelf(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authorizeWithContext(c, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		actor, _ := actorFromContext(c)
		if actor.Type == ActorUser && strings.TrimSpace(c.Param("userId")) != actor.ID {
			if err := s.authorizeWithContext(c, authorization.ObjectUser, authorization.ActionUserManage); err != nil {
				AbortWithError(c, err)
				return
			}
		}
		c.Next()
	}
}

func (s *Server) authorizeWithContext(c *gin.Context, object string, action string) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return ErrUnauthorized
	}
	companyID, ok := companycontext.CompanyIDFromContext(c.Request.Context())
	if !ok {
		return newValidationError("company", "invalid_company", "missing or unknown company")
	}
	if s.authzSvc == nil {
		return ErrForbidden
	}
	return s.authzSvc.Authorize(
		c.Request.Context(),
		actor.subject(),
		companyID.String(),
		strings.TrimSpace(object),
		strings.TrimSpace(action),
	)
}
