package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rongwang/buildtrue-server/internal/models"
	"github.com/rongwang/buildtrue-server/internal/service"
	"github.com/rongwang/buildtrue-server/internal/utils"
)

// Context keys set by AuthMiddleware
const (
	ctxUserID = "userId"
	ctxRole   = "role"
)

func unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, models.ErrorResponse{
		Status:  "error",
		Code:    "UNAUTHORIZED",
		Message: message,
	})
	c.Abort()
}

// bearerToken reads the token from the Authorization header. When
// allowQuery is set the token query parameter is accepted if the header is
// absent, for websocket upgrades that cannot set headers from a browser.
func bearerToken(c *gin.Context, allowQuery bool) (string, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query("token"); allowQuery && token != "" {
			return token, ""
		}
		return "", "Authentication required"
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", "Invalid token format"
	}
	return parts[1], ""
}

// AuthMiddleware returns a Gin middleware for authentication
func AuthMiddleware() gin.HandlerFunc {
	return authenticate(false)
}

// WebSocketAuthMiddleware is AuthMiddleware that also takes ?token=
func WebSocketAuthMiddleware() gin.HandlerFunc {
	return authenticate(true)
}

func authenticate(allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, problem := bearerToken(c, allowQuery)
		if problem != "" {
			unauthorized(c, problem)
			return
		}

		jwtSecret := c.MustGet("jwtSecret").([]byte)
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			unauthorized(c, "Invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			unauthorized(c, "Invalid token claims")
			return
		}

		userID, ok := claims["sub"].(string)
		if !ok || userID == "" {
			unauthorized(c, "Invalid user ID in token")
			return
		}

		role, _ := claims["role"].(string)
		if role != string(models.RoleAdmin) {
			role = string(models.RoleClient)
		}

		c.Set(ctxUserID, userID)
		c.Set(ctxRole, models.Role(role))
		c.Next()
	}
}

// RequireRole lets the request through only when the token carries one of roles
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	roleSet := map[models.Role]struct{}{}
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role, _ := c.Get(ctxRole)
		r, ok := role.(models.Role)
		if !ok {
			unauthorized(c, "Authentication required")
			return
		}
		if _, allowed := roleSet[r]; !allowed {
			c.JSON(http.StatusForbidden, models.ErrorResponse{
				Status:  "error",
				Code:    "FORBIDDEN",
				Message: "Access denied",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// requester builds the authenticated caller from the gin context
func requester(c *gin.Context) service.Requester {
	r := service.Requester{ID: c.GetString(ctxUserID)}
	if role, ok := c.Get(ctxRole); ok {
		r.Role, _ = role.(models.Role)
	}
	return r
}

// NewRouter returns an engine with recovery, the request logger and CORS
// installed. It logs each request once and never logs the query string.
func NewRouter(logger *utils.Logger, origins []string) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = 32 << 20
	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger))
	router.Use(CORS(origins))
	return router
}

// RequestLogger logs method, path, status and duration of every request
func RequestLogger(logger *utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("%s %s - %d (%v) from %s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start), c.ClientIP())
	}
}

// CORS builds the cross-origin policy. A "*" entry or an empty list allows
// every origin.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowAllOrigins: len(origins) == 0,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:   []string{"Content-Length"},
		MaxAge:          12 * time.Hour,
	}

	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			break
		}
	}
	if !cfg.AllowAllOrigins {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
