package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/recipe-app/apiserver/internal/logging"
	"github.com/recipe-app/apiserver/internal/services"
	"github.com/recipe-app/apiserver/types"
	"go.uber.org/zap"
)

// UserHandler provides signup, token and profile endpoints.
type UserHandler struct {
	users  *services.UserService
	auth   *services.AuthService
	logger *zap.Logger
}

func NewUserHandler(users *services.UserService, auth *services.AuthService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, auth: auth, logger: logging.OrNop(logger)}
}

// UserRouter registers user routes on the given router.
func UserRouter(
	r chi.Router,
	users *services.UserService,
	auth *services.AuthService,
	authMiddleware func(http.Handler) http.Handler,
	logger *zap.Logger,
) {
	handler := NewUserHandler(users, auth, logger)

	r.Post("/", handler.CreateUser)
	r.Post("/token/", handler.CreateToken)
	r.Route("/me", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", handler.Me)
		r.Patch("/", handler.PatchMe)
		r.Put("/", handler.PutMe)
	})
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, newUserResponse(user))
}

func (h *UserHandler) CreateToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: token.Key})
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (h *UserHandler) PatchMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.updateMe(w, r, req)
}

// PutMe replaces the profile; email and password are required.
func (h *UserHandler) PutMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == nil || req.Password == nil {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	if req.Name == nil {
		empty := ""
		req.Name = &empty
	}
	h.updateMe(w, r, req)
}

func (h *UserHandler) updateMe(w http.ResponseWriter, r *http.Request, req UpdateUserRequest) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	updated, err := h.users.UpdateProfile(r.Context(), user.ID, services.ProfileUpdate{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(updated))
}

type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type TokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateUserRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Name     *string `json:"name"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// UserResponse never carries the password hash or permission flags.
type UserResponse struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func newUserResponse(user types.User) UserResponse {
	return UserResponse{ID: user.ID, Email: user.Email, Name: user.Name}
}
