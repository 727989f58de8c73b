package room

import "github.com/gin-gonic/gin"

func RegisterRoutes(rg gin.IRoutes, handler Handler) {
	rg.GET("/rooms", handler.GetAllRooms)
	rg.POST("/rooms", handler.CreateRoom)
}
