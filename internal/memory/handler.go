package memory

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/recallhq/recall/internal/api"
	"github.com/recallhq/recall/internal/auth"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

type CreateRequest struct {
	Content    string   `json:"content" validate:"required"`
	Type       string   `json:"type"`
	Importance int      `json:"importance"`
	Tags       []string `json:"tags"`
	Source     string   `json:"source"`
}

type SearchRequest struct {
	Query         string   `json:"query" validate:"required"`
	Limit         int      `json:"limit"`
	Type          string   `json:"type"`
	Tags          []string `json:"tags"`
	MinImportance int      `json:"min_importance"`
}

func ownerFromRequest(r *http.Request) (uuid.UUID, error) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		return uuid.Nil, errors.New("no user claims in context")
	}
	return claims.OwnerID, nil
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromRequest(r)
	if err != nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	records, total, err := h.svc.List(r.Context(), owner, pageSize, (page-1)*pageSize)
	if err != nil {
		slog.Error("listing memories", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, records, int64(total), page, pageSize)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromRequest(r)
	if err != nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	rec, err := h.svc.Create(r.Context(), owner, req.Content, req.Type, req.Importance, req.Tags, req.Source)
	if err != nil {
		var recErr *RecordError
		if errors.As(err, &recErr) {
			api.HandleError(w, api.NewBadRequestError("invalid memory record"))
			return
		}
		slog.Error("creating memory", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromRequest(r)
	if err != nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	results, err := h.svc.SearchByText(r.Context(), owner, req.Query, req.Limit, Filters{
		Type:          req.Type,
		Tags:          req.Tags,
		MinImportance: req.MinImportance,
	})
	if err != nil {
		slog.Error("searching memories", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, results)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromRequest(r)
	if err != nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "memoryID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid memory id"))
		return
	}

	if err := h.svc.Delete(r.Context(), owner, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			api.HandleError(w, api.ErrNotFound)
			return
		}
		slog.Error("deleting memory", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONMessage(w, http.StatusOK, "memory deleted")
}

func (h *Handler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromRequest(r)
	if err != nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	deleted, err := h.svc.DeleteAll(r.Context(), owner)
	if err != nil {
		slog.Error("deleting all memories", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
