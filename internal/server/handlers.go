// ABOUTME: HTTP handlers for the request/response API: login, verify, directory, history, send
// ABOUTME: All responses are JSON; errors carry a displayable message field

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/patterhq/patter/internal/auth"
	"github.com/patterhq/patter/internal/store"
)

type loginRequest struct {
	MobileNumber string `json:"mobile_number"`
}

type verifyOTPRequest struct {
	MobileNumber string `json:"mobile_number"`
	OTP          string `json:"otp"`
}

type userResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	MobileNumber string `json:"mobile_number"`
}

type messageResponse struct {
	ID         string       `json:"id"`
	Sender     userResponse `json:"sender"`
	ReceiverID string       `json:"receiver_id"`
	Message    string       `json:"message"`
	CreatedAt  time.Time    `json:"created_at"`
}

type sendMessageRequest struct {
	ReceiverID string `json:"receiver_id"`
	Message    string `json:"message"`
}

func toUserResponse(u *store.User) userResponse {
	return userResponse{
		ID:           u.ID,
		Name:         u.Name,
		MobileNumber: u.MobileNumber,
	}
}

// handleLogin issues a verification code for the mobile number. Without an
// SMS provider the code is written to the server log for delivery.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !validMobileNumber(req.MobileNumber) {
		writeError(w, http.StatusBadRequest, "invalid mobile number")
		return
	}

	code, err := s.otp.Issue(r.Context(), req.MobileNumber)
	if err != nil {
		s.logger.Error("issuing verification code failed", "mobile_number", req.MobileNumber, "error", err)
		writeError(w, http.StatusInternalServerError, "could not send verification code")
		return
	}

	// TODO: wire an SMS provider; until then the code only reaches the log.
	s.logger.Info("verification code issued", "mobile_number", req.MobileNumber, "code", code)

	writeJSON(w, http.StatusOK, map[string]string{"message": "verification code sent"})
}

// handleVerifyOTP exchanges a mobile number and code for a session. The
// user record is created on first successful verification.
func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !validMobileNumber(req.MobileNumber) {
		writeError(w, http.StatusBadRequest, "invalid mobile number")
		return
	}
	if req.OTP == "" {
		writeError(w, http.StatusBadRequest, "verification code is required")
		return
	}

	if err := s.otp.Verify(r.Context(), req.MobileNumber, req.OTP); err != nil {
		switch {
		case errors.Is(err, auth.ErrCodeExpired):
			writeError(w, http.StatusUnauthorized, "verification code expired")
		case errors.Is(err, auth.ErrCodeMismatch), errors.Is(err, auth.ErrNoCode):
			writeError(w, http.StatusUnauthorized, "invalid verification code")
		default:
			s.logger.Error("verification failed", "mobile_number", req.MobileNumber, "error", err)
			writeError(w, http.StatusInternalServerError, "verification failed")
		}
		return
	}

	user, err := s.store.GetUserByMobileNumber(r.Context(), req.MobileNumber)
	if errors.Is(err, store.ErrNotFound) {
		user = &store.User{
			ID:           uuid.New().String(),
			MobileNumber: req.MobileNumber,
			CreatedAt:    time.Now().UTC(),
		}
		if err := s.store.CreateUser(r.Context(), user); err != nil {
			s.logger.Error("creating user failed", "mobile_number", req.MobileNumber, "error", err)
			writeError(w, http.StatusInternalServerError, "verification failed")
			return
		}
		s.logger.Info("user registered", "user_id", user.ID, "mobile_number", user.MobileNumber)
	} else if err != nil {
		s.logger.Error("looking up user failed", "mobile_number", req.MobileNumber, "error", err)
		writeError(w, http.StatusInternalServerError, "verification failed")
		return
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Error("generating token failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "verification failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":  toUserResponse(user),
		"token": token,
	})
}

// handleListUsers returns the full user directory.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.logger.Error("listing users failed", "error", err)
		writeError(w, http.StatusInternalServerError, "fetching users failed")
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}

// handleReceiveMessages returns the conversation between the caller and the
// partner named by receiver_id, oldest first.
func (s *Server) handleReceiveMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	partnerID := r.URL.Query().Get("receiver_id")
	if partnerID == "" {
		writeError(w, http.StatusBadRequest, "receiver_id is required")
		return
	}

	msgs, err := s.store.GetConversation(r.Context(), userID, partnerID)
	if err != nil {
		s.logger.Error("fetching conversation failed", "user_id", userID, "partner_id", partnerID, "error", err)
		writeError(w, http.StatusInternalServerError, "fetching messages failed")
		return
	}

	// Resolve sender records so clients can render names without a second
	// directory round trip.
	senders := make(map[string]userResponse, 2)
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		sender, ok := senders[m.SenderID]
		if !ok {
			u, err := s.store.GetUser(r.Context(), m.SenderID)
			if err != nil {
				sender = userResponse{ID: m.SenderID}
			} else {
				sender = toUserResponse(u)
			}
			senders[m.SenderID] = sender
		}
		out = append(out, messageResponse{
			ID:         m.ID,
			Sender:     sender,
			ReceiverID: m.ReceiverID,
			Message:    m.Body,
			CreatedAt:  m.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": out})
}

// handleSendMessage persists a message from the caller to the receiver.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ReceiverID == "" {
		writeError(w, http.StatusBadRequest, "receiver_id is required")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	receiver, err := s.store.GetUser(r.Context(), req.ReceiverID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "receiver not found")
		return
	} else if err != nil {
		s.logger.Error("looking up receiver failed", "receiver_id", req.ReceiverID, "error", err)
		writeError(w, http.StatusInternalServerError, "sending message failed")
		return
	}

	sender, err := s.store.GetUser(r.Context(), userID)
	if err != nil {
		s.logger.Error("looking up sender failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "sending message failed")
		return
	}

	msg := &store.Message{
		ID:         uuid.New().String(),
		SenderID:   userID,
		ReceiverID: receiver.ID,
		Body:       req.Message,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.SaveMessage(r.Context(), msg); err != nil {
		s.logger.Error("saving message failed", "user_id", userID, "receiver_id", receiver.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "sending message failed")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		ID:         msg.ID,
		Sender:     toUserResponse(sender),
		ReceiverID: msg.ReceiverID,
		Message:    msg.Body,
		CreatedAt:  msg.CreatedAt,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// validMobileNumber accepts non-empty, digits-only numbers.
func validMobileNumber(number string) bool {
	if number == "" {
		return false
	}
	for _, r := range number {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
