package handler

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/lifeos/internal/auth"
	"github.com/lifeos/internal/db"
)

const (
	principalContextKey = "__principal"
	sessionUserIDKey    = "user_id"
	sessionUsernameKey  = "username"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 校验账号密码，写入会话并签发 bearer 令牌
func (a *API) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req, "username and password are required") {
		return
	}

	user, err := db.Authenticate(a.db, req.Username, req.Password)
	if err != nil {
		respondError(c, http.StatusUnauthorized, codeUnauthorized, "invalid username or password")
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserIDKey, user.ID)
	session.Set(sessionUsernameKey, user.Username)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, codeInternal, "failed to save session")
		return
	}

	token, err := auth.GenerateToken(a.tokenSecret, user.ID, a.tokenTTL, a.now())
	if err != nil {
		respondError(c, http.StatusInternalServerError, codeInternal, "failed to issue token")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":  gin.H{"id": user.ID, "username": user.Username},
		"token": token,
	})
}

// Logout 清空会话
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, codeInternal, "failed to clear session")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Whoami 返回当前请求解析出的用户
func (a *API) Whoami(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user_id": principal(c)})
}

// PrincipalRequired 依次从 bearer 令牌、会话、默认用户解析请求主体。
// 携带了无效令牌的请求直接拒绝，不回退到默认用户。
func (a *API) PrincipalRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			userID, err := auth.ParseToken(a.tokenSecret, strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				respondError(c, http.StatusUnauthorized, codeUnauthorized, "invalid token")
				c.Abort()
				return
			}
			c.Set(principalContextKey, userID)
			c.Next()
			return
		}

		session := sessions.Default(c)
		if userID, ok := session.Get(sessionUserIDKey).(string); ok && userID != "" {
			c.Set(principalContextKey, userID)
			c.Next()
			return
		}

		if a.allowDefaultUser && a.defaultUserID != "" {
			c.Set(principalContextKey, a.defaultUserID)
			c.Next()
			return
		}

		respondError(c, http.StatusUnauthorized, codeUnauthorized, "authentication required")
		c.Abort()
	}
}

func principal(c *gin.Context) string {
	return c.GetString(principalContextKey)
}
