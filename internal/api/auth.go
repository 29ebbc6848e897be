package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const userIDKey = "userId"

// OptionalJWT проверяет bearer-токен, если он передан, и кладёт userId в контекст.
// Запросы без токена проходят анонимно; с пустым секретом проверка выключена.
func OptionalJWT(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if len(secret) == 0 || h == "" {
			c.Next()
			return
		}
		if !strings.HasPrefix(h, "Bearer ") {
			abortUnauthorized(c)
			return
		}

		tok, err := jwt.Parse(h[7:], func(t *jwt.Token) (interface{}, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !tok.Valid {
			abortUnauthorized(c)
			return
		}

		claims, _ := tok.Claims.(jwt.MapClaims)
		if id, ok := claims["userId"].(string); ok && id != "" {
			c.Set(userIDKey, id)
		} else if sub, err := claims.GetSubject(); err == nil && sub != "" {
			c.Set(userIDKey, sub)
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "Unauthorized",
		"message": "Invalid or missing token",
	})
}
