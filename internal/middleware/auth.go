package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lumenlms/lumen/internal/dto"
	"github.com/rs/zerolog/log"
)

const (
	ContextStudentID = "student_id"
	ContextRoles     = "roles"
)

type claims struct {
	StudentID uint     `json:"student_id"`
	Roles     []string `json:"roles"`
	jwt.RegisteredClaims
}

// Auth validates the platform JWT and puts the authenticated student identity
// into the request context. The quiz engine trusts this identity; enrollment
// itself is verified upstream by the identity service that issued the token.
func Auth(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Authorization header required"})
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Authorization header format must be Bearer {token}"})
			return
		}

		token, err := jwt.ParseWithClaims(parts[1], &claims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(signingKey), nil
		})
		if err != nil || !token.Valid {
			log.Debug().Err(err).Msg("JWT validation failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Invalid token"})
			return
		}

		cl, ok := token.Claims.(*claims)
		if !ok || cl.StudentID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Invalid token claims"})
			return
		}
		if issuer != "" && cl.Issuer != issuer {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Invalid token issuer"})
			return
		}

		c.Set(ContextStudentID, cl.StudentID)
		c.Set(ContextRoles, cl.Roles)
		c.Next()
	}
}

// RequireRole guards admin routes.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roles, _ := c.Get(ContextRoles)
		if list, ok := roles.([]string); ok {
			for _, r := range list {
				if r == role {
					c.Next()
					return
				}
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{Error: "Insufficient permissions"})
	}
}

// StudentID extracts the authenticated student from the context.
func StudentID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ContextStudentID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
