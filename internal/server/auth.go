package server

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Roles carried in the "role" claim.
const (
	RoleSuperAdmin = "ROLE_SUPER_ADMIN"
	RoleAdmin      = "ROLE_ADMIN"
)

const (
	tokenTTL   = 24 * time.Hour
	ctxClaims  = "claims"
	bearerPref = "Bearer "
)

// Claims is the payload of every token issued by /api/login.
type Claims struct {
	Username string   `json:"username"`
	Role     []string `json:"role"`
	jwt.RegisteredClaims
}

// HasAny reports whether the claims carry one of roles.
func (c *Claims) HasAny(roles ...string) bool {
	for _, have := range c.Role {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Auth issues and checks API tokens.
type Auth struct {
	secret     []byte
	adminUser  string
	adminHash  []byte
	agentToken string
	now        func() time.Time
}

// NewAuth hashes the admin password once; logins compare against the hash.
func NewAuth(secret, adminUser, adminPass, agentToken string) (*Auth, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPass), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &Auth{
		secret:     []byte(secret),
		adminUser:  adminUser,
		adminHash:  hash,
		agentToken: agentToken,
		now:        time.Now,
	}, nil
}

// Issue creates a signed HS256 token valid for 24 hours.
func (a *Auth) Issue(username string, roles ...string) (string, error) {
	now := a.now()
	claims := Claims{
		Username: username,
		Role:     roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "invmon",
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Auth) parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// Login checks the admin credentials.
func (a *Auth) Login(username, password string) bool {
	if subtle.ConstantTimeCompare([]byte(username), []byte(a.adminUser)) != 1 {
		return false
	}
	return bcrypt.CompareHashAndPassword(a.adminHash, []byte(password)) == nil
}

// JWTMiddleware validates "Authorization: Bearer <jwt>" and stores the
// claims in the gin context.
func (a *Auth) JWTMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		parts := strings.SplitN(raw, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid Authorization format, expected: Bearer <token>",
			})
			return
		}
		claims, err := a.parse(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(ctxClaims, claims)
		c.Next()
	}
}

// Authorize lets the request through when the token carries any of roles.
// It must run after JWTMiddleware.
func Authorize(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := claimsFrom(c)
		if claims == nil || !claims.HasAny(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}

// Guard is JWTMiddleware followed by Authorize.
func (a *Auth) Guard(roles ...string) []gin.HandlerFunc {
	return []gin.HandlerFunc{a.JWTMiddleware(), Authorize(roles...)}
}

func claimsFrom(c *gin.Context) *Claims {
	v, ok := c.Get(ctxClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}

// AgentTokenMiddleware checks the pre-shared agent token. An empty token
// leaves the route open.
func (a *Auth) AgentTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.agentToken == "" {
			c.Next()
			return
		}
		raw := c.GetHeader("Authorization")
		if subtle.ConstantTimeCompare([]byte(raw), []byte(bearerPref+a.agentToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing agent token"})
			return
		}
		c.Next()
	}
}

// handleLogin accepts username + password and returns a signed JWT.
//
//	POST /api/login
//	Body: { "username": "admin", "password": "admin" }
func (s *Server) handleLogin(c *gin.Context) {
	var body struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}
	if !s.auth.Login(body.Username, body.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	token, err := s.auth.Issue(body.Username, RoleSuperAdmin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int(tokenTTL.Seconds()),
		"type":       "Bearer",
	})
}
