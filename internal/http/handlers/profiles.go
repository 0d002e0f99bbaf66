package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tmokoena/eventdash/internal/config"
	"github.com/tmokoena/eventdash/internal/domain/user"
	"github.com/tmokoena/eventdash/internal/http/middlewares"
	"github.com/tmokoena/eventdash/internal/repo/postgres"
	"github.com/tmokoena/eventdash/internal/security"
)

type ProfilesStore interface {
	Create(ctx context.Context, email, passwordHash, fullName, role string) (user.Profile, error)
	GetByID(ctx context.Context, id string) (user.Profile, error)
	List(ctx context.Context) ([]user.Profile, error)
}

type ProfilesHandler struct {
	repo ProfilesStore
}

func NewProfilesHandler(repo ProfilesStore) *ProfilesHandler {
	return &ProfilesHandler{repo: repo}
}

func (h *ProfilesHandler) Me(ctx *gin.Context) {
	id, ok := middlewares.UserIDFromContext(ctx)
	if !ok || id == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	profile, err := h.repo.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "Profile not found")
			return
		}
		RespondInternal(ctx, "Could not load profile")
		return
	}

	ctx.JSON(http.StatusOK, profile)
}

func (h *ProfilesHandler) ListUsers(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	profiles, err := h.repo.List(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": profiles,
		"count": len(profiles),
	})
}

type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"fullName" binding:"required"`
	Role     string `json:"role" binding:"required,oneof=admin organiser"`
}

// CreateUser provisions a staff account. Admin only; there is no public
// signup.
func (h *ProfilesHandler) CreateUser(ctx *gin.Context) {
	var req CreateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	profile, err := h.repo.Create(cctx, req.Email, hash, req.FullName, req.Role)
	if err != nil {
		if errors.Is(err, postgres.ErrEmailAlreadyUsed) {
			RespondConflict(ctx, "email_taken", "Email is already in use.")
			return
		}
		RespondInternal(ctx, "Could not create user")
		return
	}

	ctx.JSON(http.StatusCreated, profile)
}
