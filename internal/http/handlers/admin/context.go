package admin

import (
	handlershared "github.com/agent-console/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getUserID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUint(c, "user_id", "用户标识无效", "用户标识类型错误")
}

func isSuperuser(c *gin.Context) bool {
	value, exists := c.Get("is_superuser")
	if !exists {
		return false
	}
	flag, ok := value.(bool)
	return ok && flag
}
