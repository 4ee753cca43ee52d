package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopfront/apiserver/internal/services"
)

// UserHandler provides account and user management endpoints.
type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UserRouter registers signup, login, account and user routes on the given router.
func UserRouter(r chi.Router, userService *services.UserService, gate *Gate) {
	handler := NewUserHandler(userService)

	r.Post("/signup", handler.Signup)
	r.Post("/login", handler.Login)

	r.With(gate.Authenticate).Get("/account/my-Profile", handler.MyProfile)
	r.With(gate.Admin()...).Get("/account/dashboard/users/{userId}", handler.GetUser)

	r.Route("/users", func(r chi.Router) {
		r.With(gate.Admin()...).Get("/", handler.ListUsers)
		r.With(gate.Authenticate).Delete("/delete", handler.DeleteSelf)
		r.With(gate.Admin()...).Put("/banUnBan/{userId}", handler.ToggleBan)
		r.With(gate.Authenticate).Put("/{userId}", handler.UpdateUser)
	})
}

type SignupRequest struct {
	Username    string     `json:"username" validate:"required,max=100"`
	Email       string     `json:"email" validate:"required,email"`
	Password    string     `json:"password" validate:"required,min=6,max=72"`
	FirstName   string     `json:"firstName" validate:"max=100"`
	LastName    string     `json:"lastName" validate:"max=100"`
	ImgURL      string     `json:"imgUrl" validate:"omitempty,max=2048"`
	Address     string     `json:"address" validate:"max=500"`
	PhoneNumber string     `json:"phoneNumber" validate:"max=32"`
	BirthDate   *time.Time `json:"birthDate"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UserUpdateRequest struct {
	Username    *string    `json:"username" validate:"omitempty,min=1,max=100"`
	Email       *string    `json:"email" validate:"omitempty,email"`
	Password    *string    `json:"password" validate:"omitempty,min=6,max=72"`
	FirstName   *string    `json:"firstName" validate:"omitempty,max=100"`
	LastName    *string    `json:"lastName" validate:"omitempty,max=100"`
	ImgURL      *string    `json:"imgUrl" validate:"omitempty,max=2048"`
	Address     *string    `json:"address" validate:"omitempty,max=500"`
	PhoneNumber *string    `json:"phoneNumber" validate:"omitempty,max=32"`
	BirthDate   *time.Time `json:"birthDate"`
	IsAdmin     *bool      `json:"isAdmin"`
	IsBanned    *bool      `json:"isBanned"`
}

func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	created, err := h.userService.Signup(r.Context(), services.SignupInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		ImgURL:      req.ImgURL,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
		BirthDate:   req.BirthDate,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "user created", created)
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "user logged in", result)
}

func (h *UserHandler) MyProfile(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromContext(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	user, err := h.userService.Get(r.Context(), actor.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "user returned", user)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "userId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	user, err := h.userService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "user returned", user)
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	page, err := h.userService.List(r.Context(), params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "users returned", page)
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromContext(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	id, err := parseUUIDParam(r, "userId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req UserUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	updated, err := h.userService.Update(r.Context(), actor, id, services.UserPatch{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		ImgURL:      req.ImgURL,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
		BirthDate:   req.BirthDate,
		IsAdmin:     req.IsAdmin,
		IsBanned:    req.IsBanned,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "user updated", updated)
}

func (h *UserHandler) ToggleBan(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "userId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	updated, err := h.userService.ToggleBan(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "ban status updated", updated)
}

func (h *UserHandler) DeleteSelf(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromContext(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	removed, err := h.userService.Delete(r.Context(), actor.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "user deleted", removed)
}
