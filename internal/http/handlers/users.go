package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/userhub/internal/config"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// UserDirectory is the slice of the directory this handler consumes. Kept
// as an interface so tests can fake it.
type UserDirectory interface {
	CheckAvailability(ctx context.Context, username string) (bool, error)
	FindByUsername(ctx context.Context, username string) (user.User, error)
	ListPaginated(ctx context.Context, q user.ListQuery) (user.Page, error)
	CreateRecord(ctx context.Context, req user.CreateUserRequest) (user.User, error)
	UpdateRecord(ctx context.Context, username string, req user.UpdateUserRequest) (user.User, error)
	DeleteRecord(ctx context.Context, username string) error
}

type UsersHandler struct {
	dir UserDirectory
}

func NewUsersHandler(dir UserDirectory) *UsersHandler {
	return &UsersHandler{dir: dir}
}

// GET /users/availability?username=...
func (h *UsersHandler) CheckAvailability(ctx *gin.Context) {
	username := ctx.Query("username")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	available, err := h.dir.CheckAvailability(cctx, username)

	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"username":  user.NormalizeUsername(username),
		"available": available,
	})
}

// GET /users
func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	q := user.ListQuery{
		Page:   queryInt(ctx, "page"),
		Limit:  queryInt(ctx, "limit"),
		Sort:   ctx.Query("sort"),
		Order:  ctx.Query("order"),
		Role:   ctx.Query("role"),
		Search: ctx.Query("search"),
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	page, err := h.dir.ListPaginated(cctx, q)

	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, page)
}

// GET /users/:username
func (h *UsersHandler) GetUser(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.dir.FindByUsername(cctx, ctx.Param("username"))

	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, u)
}

// POST /users
func (h *UsersHandler) CreateUser(ctx *gin.Context) {
	var req user.CreateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.dir.CreateRecord(cctx, req)

	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, u)
}

// PATCH /users/:username
func (h *UsersHandler) UpdateUser(ctx *gin.Context) {
	var req user.UpdateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.dir.UpdateRecord(cctx, ctx.Param("username"), req)

	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, u)
}

// DELETE /users/:username
func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	err := h.dir.DeleteRecord(cctx, ctx.Param("username"))

	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// GET /me
func (h *UsersHandler) GetSelf(ctx *gin.Context) {
	username, ok := middlewares.UsernameFromContext(ctx)

	if !ok || username == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.dir.FindByUsername(cctx, username)

	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, u)
}

func queryInt(ctx *gin.Context, key string) int {
	v := ctx.Query(key)

	if v == "" {
		return 0
	}

	n, err := strconv.Atoi(v)

	if err != nil {
		return 0
	}

	return n
}
