// ABOUTME: HTTP client for the chat backend's request/response API
// ABOUTME: Implements the chat.API contract: login, verify, directory, history, send

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patterhq/patter/internal/chat"
)

const requestTimeout = 15 * time.Second

// Error is a displayable failure returned by the backend. Message holds the
// human-readable text extracted from the response body, or a generic
// fallback when the body carried none.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Client talks to the chat backend over HTTP. It implements chat.API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates an API client for the given base URL. Pass nil logger
// for default.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
		logger:  logger.With("component", "api"),
	}
}

type loginRequest struct {
	MobileNumber string `json:"mobile_number"`
}

type verifyOTPRequest struct {
	MobileNumber string `json:"mobile_number"`
	OTP          string `json:"otp"`
}

type verifyOTPResponse struct {
	User  chat.User `json:"user"`
	Token string    `json:"token"`
}

type listUsersResponse struct {
	Users []chat.User `json:"users"`
}

type historyResponse struct {
	Messages []wireMessage `json:"messages"`
}

type sendMessageRequest struct {
	ReceiverID string `json:"receiver_id"`
	Message    string `json:"message"`
}

// wireMessage mirrors the backend's message shape. The sender field is
// either a bare identity string or an embedded user object.
type wireMessage struct {
	ID         string          `json:"id,omitempty"`
	Sender     json.RawMessage `json:"sender"`
	ReceiverID string          `json:"receiver_id"`
	Message    string          `json:"message"`
	CreatedAt  time.Time       `json:"created_at,omitempty"`
}

func (m wireMessage) toMessage() (chat.Message, error) {
	sender, err := decodeSender(m.Sender)
	if err != nil {
		return chat.Message{}, err
	}
	return chat.Message{
		ID:         m.ID,
		Sender:     sender,
		ReceiverID: chat.Identity(m.ReceiverID),
		Body:       m.Message,
		SentAt:     m.CreatedAt,
	}, nil
}

// decodeSender accepts both wire shapes of a sender.
func decodeSender(raw json.RawMessage) (chat.SenderRef, error) {
	if len(raw) == 0 {
		return chat.SenderRef{}, fmt.Errorf("message has no sender")
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return chat.SenderByID(chat.Identity(id)), nil
	}
	var u chat.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return chat.SenderRef{}, fmt.Errorf("decoding sender: %w", err)
	}
	return chat.SenderByUser(u), nil
}

// Login requests a verification code for the mobile number.
func (c *Client) Login(ctx context.Context, mobileNumber string) error {
	return c.postJSON(ctx, "/api/login", loginRequest{MobileNumber: mobileNumber}, nil, "login failed")
}

// VerifyOTP exchanges the mobile number and code for the authenticated
// user and a bearer token.
func (c *Client) VerifyOTP(ctx context.Context, mobileNumber, code string) (*chat.User, string, error) {
	var out verifyOTPResponse
	req := verifyOTPRequest{MobileNumber: mobileNumber, OTP: code}
	if err := c.postJSON(ctx, "/api/verifyotp", req, &out, "verification failed"); err != nil {
		return nil, "", err
	}
	return &out.User, out.Token, nil
}

// ListUsers fetches the full user directory.
func (c *Client) ListUsers(ctx context.Context, token string) ([]chat.User, error) {
	var out listUsersResponse
	if err := c.getJSON(ctx, "/api/users", nil, token, &out, "fetching users failed"); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// FetchHistory fetches the ordered message history with the given partner.
func (c *Client) FetchHistory(ctx context.Context, token string, partnerID chat.Identity) ([]chat.Message, error) {
	query := url.Values{"receiver_id": {string(partnerID)}}
	var out historyResponse
	if err := c.getJSON(ctx, "/api/message/receive", query, token, &out, "fetching messages failed"); err != nil {
		return nil, err
	}
	messages := make([]chat.Message, 0, len(out.Messages))
	for _, wm := range out.Messages {
		msg, err := wm.toMessage()
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// SendMessage posts a message to the receiver.
func (c *Client) SendMessage(ctx context.Context, token string, receiverID chat.Identity, body string) error {
	req := sendMessageRequest{ReceiverID: string(receiverID), Message: body}
	return c.postAuthJSON(ctx, "/api/message/send", token, req, nil, "sending message failed")
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any, fallback string) error {
	return c.do(ctx, http.MethodPost, path, nil, "", in, out, fallback)
}

func (c *Client) postAuthJSON(ctx context.Context, path, token string, in, out any, fallback string) error {
	return c.do(ctx, http.MethodPost, path, nil, token, in, out, fallback)
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, token string, out any, fallback string) error {
	return c.do(ctx, http.MethodGet, path, query, token, nil, out, fallback)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, token string, in, out any, fallback string) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.decodeError(resp, fallback)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// decodeError extracts the human-readable message from an error body,
// falling back to a generic one when the body is absent or unparseable.
func (c *Client) decodeError(resp *http.Response, fallback string) error {
	apiErr := &Error{Status: resp.StatusCode, Message: fallback}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return apiErr
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Message != "" {
		apiErr.Message = payload.Message
	}
	return apiErr
}
