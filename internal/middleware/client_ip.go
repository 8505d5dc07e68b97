package middleware

import (
	"github.com/SergeiKhy/link-shortener/internal/models"
	"github.com/gin-gonic/gin"
)

const clientIPKey = "client_ip"

// ClientIP сохраняет IP клиента в контексте; если адрес определить нельзя - UNKNOWN
func ClientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = models.UnknownIP
		}
		c.Set(clientIPKey, ip)
		c.Next()
	}
}

// GetClientIP извлекает IP клиента из контекста
func GetClientIP(c *gin.Context) string {
	if ip := c.GetString(clientIPKey); ip != "" {
		return ip
	}
	return models.UnknownIP
}
