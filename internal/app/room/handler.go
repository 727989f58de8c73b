package room

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler interface {
	GetAllRooms(c *gin.Context)
	CreateRoom(c *gin.Context)
}

type handler struct {
	service Service
}

func NewHandler(service Service) Handler {
	return &handler{service: service}
}

// @Summary Get all rooms
// @Description Get all chat rooms, newest first
// @Tags Room
// @Produce json
// @Success 200 {array} Room
// @Router /rooms [get]
func (h *handler) GetAllRooms(c *gin.Context) {
	rooms, err := h.service.GetAllRooms(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch rooms"})
		return
	}
	c.JSON(http.StatusOK, rooms)
}

// @Summary Create a room
// @Description Create a chat room with an optional owning admin
// @Tags Room
// @Accept json
// @Produce json
// @Param request body CreateRoomRequest true "Room to create"
// @Success 201 {object} Room
// @Failure 400 {object} ErrorResponse
// @Router /rooms [post]
func (h *handler) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Room name is required"})
		return
	}

	room, err := h.service.CreateRoom(c.Request.Context(), req.Name, req.AdminID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		return
	}

	c.JSON(http.StatusCreated, room)
}
