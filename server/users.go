package server

import (
	"encoding/json"
	goerrors "errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
)

var validate = validator.New()

// RegisterUserRequest is the explicit registration payload. Registration
// is a collaborator of the core, not part of it: the relay also creates
// placeholder records lazily on first join.
type RegisterUserRequest struct {
	UserID   string `json:"userId" validate:"required"`
	Username string `json:"username" validate:"required"`
}

type registerUserResponse struct {
	Message string      `json:"message"`
	User    domain.User `json:"user"`
}

// UsersHandler serves POST /users behind the bearer middleware.
type UsersHandler struct {
	log   *slog.Logger
	users repositories.IUserRepository
}

func NewUsersHandler(log *slog.Logger, users repositories.IUserRepository) *UsersHandler {
	return &UsersHandler{log: log, users: users}
}

func (h *UsersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req RegisterUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "userId and username are required")
		return
	}
	if !domain.ValidID(req.UserID) {
		writeJSONError(w, http.StatusBadRequest, errors.ErrInvalidReceiver.Error())
		return
	}

	user, err := h.users.CreateUser(req.UserID, req.Username)
	switch {
	case goerrors.Is(err, errors.ErrUserAlreadyExists):
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.log.Error("user creation failed", "user", req.UserID, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "storage failure")
		return
	}

	h.log.Info("user registered", "user", user.ID)
	writeJSON(w, http.StatusCreated, registerUserResponse{Message: "user created", User: user})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
