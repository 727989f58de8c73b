package upload

import "github.com/gin-gonic/gin"

func RegisterRoutes(rg gin.IRoutes, handler *Handler) {
	rg.POST("/upload", handler.Upload)
}
