package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"oms-backend/pkg/database"
	"oms-backend/pkg/models"
	"oms-backend/pkg/utils"
)

type CommentsHandler struct {
	db database.DatabaseInterface
}

func NewCommentsHandler(db database.DatabaseInterface) *CommentsHandler {
	return &CommentsHandler{db: db}
}

// acceptedEvent loads the event from the path and requires it to be public.
func (h *CommentsHandler) acceptedEvent(w http.ResponseWriter, r *http.Request) (*models.Event, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}
	ev, err := h.db.GetEvent(r.Context(), id)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return nil, false
	}
	if ev.Status != models.EventAccepted {
		utils.WriteNotFoundResponse(w, "event not found")
		return nil, false
	}
	return ev, true
}

func (h *CommentsHandler) author(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	caller, ok := currentUser(w, r)
	if !ok {
		return nil, false
	}
	user, err := h.db.GetUserByID(r.Context(), caller.ID)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return nil, false
	}
	return user, true
}

// GET /api/events/{id}/comments
func (h *CommentsHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	ev, ok := h.acceptedEvent(w, r)
	if !ok {
		return
	}
	list, err := h.db.ListComments(r.Context(), ev.ID)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteListResponse(w, list, nil)
}

// POST /api/events/{id}/comments
func (h *CommentsHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	user, ok := h.author(w, r)
	if !ok {
		return
	}
	ev, ok := h.acceptedEvent(w, r)
	if !ok {
		return
	}
	var req models.CommentRequest
	if !decodeValid(w, r, &req) {
		return
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		utils.WriteValidationErrorResponse(w, "Comment must not be blank", nil)
		return
	}
	c := &models.Comment{
		EventID:  ev.ID,
		UserID:   user.ID,
		UserName: user.Name,
		Body:     body,
		Replies:  []models.Reply{},
	}
	if err := h.db.CreateComment(r.Context(), c); err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteCreatedResponse(w, c)
}

// POST /api/events/{id}/comments/{commentId}/replies
func (h *CommentsHandler) CreateReply(w http.ResponseWriter, r *http.Request) {
	user, ok := h.author(w, r)
	if !ok {
		return
	}
	ev, ok := h.acceptedEvent(w, r)
	if !ok {
		return
	}
	commentID, ok := pathID(w, r, "commentId")
	if !ok {
		return
	}
	var req models.CommentRequest
	if !decodeValid(w, r, &req) {
		return
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		utils.WriteValidationErrorResponse(w, "Reply must not be blank", nil)
		return
	}
	c, err := h.db.GetComment(r.Context(), commentID)
	if err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	if c.EventID != ev.ID {
		utils.WriteNotFoundResponse(w, "comment not found")
		return
	}
	reply := models.Reply{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		UserName:  user.Name,
		Body:      body,
		Timestamp: time.Now().UTC(),
	}
	if err := h.db.AddReply(r.Context(), commentID, reply); err != nil {
		utils.WriteDomainError(w, r, err)
		return
	}
	utils.WriteCreatedResponse(w, reply)
}
