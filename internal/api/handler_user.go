package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Evgesha-thunder/user-service/pkg/middleware"
	"github.com/Evgesha-thunder/user-service/pkg/models"
)

// UserService is the lifecycle API the handlers drive.
type UserService interface {
	Create(ctx context.Context, in models.UserInput) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindAll(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, id int64, in models.UserInput) error
	DeleteByID(ctx context.Context, id int64) error
}

// UserHandler handles user-related HTTP requests.
type UserHandler struct {
	users UserService
	log   *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users UserService, log *slog.Logger) *UserHandler {
	return &UserHandler{users: users, log: log.With("component", "api")}
}

// CreateUser godoc
// @Summary      Create a new user
// @Description  Creates a user and publishes a CREATE event to user-events
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request  body      models.UserRequest  true  "User fields"
// @Success      201      {object}  models.UserDTO
// @Failure      400      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse
// @Failure      422      {object}  ErrorResponse
// @Failure      500      {object}  ErrorResponse
// @Router       /users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	in, ok := bindInput(c)
	if !ok {
		return
	}

	user, err := h.users.Create(c.Request.Context(), in)
	if err != nil {
		h.writeServiceError(c, err, "failed to create user")
		return
	}

	h.log.Debug("user created",
		"user_id", user.ID,
		"correlation_id", middleware.GetCorrelationID(c),
	)
	c.JSON(http.StatusCreated, models.ToDTO(*user))
}

// GetUser godoc
// @Summary      Get a user by ID
// @Description  Returns a single user
// @Tags         users
// @Produce      json
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  models.UserDTO
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	user, err := h.users.FindByID(c.Request.Context(), id)
	if err != nil {
		h.writeServiceError(c, err, "failed to fetch user")
		return
	}

	c.JSON(http.StatusOK, models.ToDTO(*user))
}

// ListUsers godoc
// @Summary      List all users
// @Description  Returns all users, an empty array when there are none
// @Tags         users
// @Produce      json
// @Success      200  {array}   models.UserDTO
// @Failure      500  {object}  ErrorResponse
// @Router       /users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.users.FindAll(c.Request.Context())
	if err != nil {
		h.writeServiceError(c, err, "failed to fetch users")
		return
	}

	c.JSON(http.StatusOK, models.ToDTOs(users))
}

// UpdateUser godoc
// @Summary      Update an existing user
// @Description  Replaces name, email and age. No event is published.
// @Tags         users
// @Accept       json
// @Param        id       path      int               true  "User ID"
// @Param        request  body      models.UserRequest  true  "User fields"
// @Success      204
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse
// @Failure      422      {object}  ErrorResponse
// @Failure      500      {object}  ErrorResponse
// @Router       /users/{id} [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	in, ok := bindInput(c)
	if !ok {
		return
	}

	if err := h.users.Update(c.Request.Context(), id, in); err != nil {
		h.writeServiceError(c, err, "failed to update user")
		return
	}

	c.Status(http.StatusNoContent)
}

// DeleteUser godoc
// @Summary      Delete a user
// @Description  Deletes a user and publishes a DELETE event to user-events
// @Tags         users
// @Param        id   path      int  true  "User ID"
// @Success      204
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.users.DeleteByID(c.Request.Context(), id); err != nil {
		h.writeServiceError(c, err, "failed to delete user")
		return
	}

	c.Status(http.StatusNoContent)
}

// bindInput decodes and validates the request body. On failure the response
// is already written.
func bindInput(c *gin.Context) (models.UserInput, bool) {
	var req models.UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, TitleBadJSON, err.Error())
		return models.UserInput{}, false
	}
	if fieldErrors := middleware.ValidateRequest(req); fieldErrors != nil {
		abortWithFieldErrors(c, fieldErrors)
		return models.UserInput{}, false
	}
	return models.FromRequest(req), true
}

func pathID(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, TitleBadRequest, "id must be an integer, got "+strconv.Quote(raw))
		return 0, false
	}
	return id, true
}
