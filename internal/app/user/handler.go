package user

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler interface {
	CreateOrGetUser(c *gin.Context)
}

type handler struct {
	service Service
}

func NewHandler(service Service) Handler {
	return &handler{service: service}
}

// @Summary Create or fetch a user
// @Description Create a user by display name, or return the existing one. Requesting admin requires the shared admin password.
// @Tags User
// @Accept json
// @Produce json
// @Param request body CreateUserRequest true "User to create"
// @Success 200 {object} User
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /users [post]
func (h *handler) CreateOrGetUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "User name is required"})
		return
	}

	user, err := h.service.CreateOrGetUser(c.Request.Context(), req.Name, req.IsAdmin, req.AdminPassword)
	if err != nil {
		if errors.Is(err, ErrInvalidAdminPassword) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid admin password"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to process user"})
		return
	}

	c.JSON(http.StatusOK, user)
}
