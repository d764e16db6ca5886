// ABOUTME: Tests for the HTTP API handlers
// ABOUTME: Runs the full login/verify/directory/send/receive flow against a real store

package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patterhq/patter/internal/auth"
	"github.com/patterhq/patter/internal/store"
)

const testDevCode = "1234"

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	tokens := auth.NewSessionTokens([]byte("test-secret"), time.Hour)
	otp := auth.NewOTPManager(st, 5*time.Minute, testDevCode, nil)

	srv := New(st, otp, tokens, Options{}, nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return srv, ts
}

func postJSON(t *testing.T, url, token string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func getJSON(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// loginAs runs the login/verify flow and returns the session.
func loginAs(t *testing.T, ts *httptest.Server, mobileNumber string) (userResponse, string) {
	t.Helper()

	resp := postJSON(t, ts.URL+"/api/login", "", map[string]string{"mobile_number": mobileNumber})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/api/verifyotp", "", map[string]string{
		"mobile_number": mobileNumber,
		"otp":           testDevCode,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		User  userResponse `json:"user"`
		Token string       `json:"token"`
	}
	decodeBody(t, resp, &out)
	require.NotEmpty(t, out.Token)
	require.NotEmpty(t, out.User.ID)
	return out.User, out.Token
}

func TestLoginAndVerifyFlow(t *testing.T) {
	_, ts := newTestServer(t)

	user, token := loginAs(t, ts, "5550001111")
	assert.Equal(t, "5550001111", user.MobileNumber)
	assert.NotEmpty(t, token)

	// Verifying again yields the same account
	_, token2 := loginAs(t, ts, "5550001111")
	user2, _ := loginAs(t, ts, "5550001111")
	assert.Equal(t, user.ID, user2.ID)
	assert.NotEmpty(t, token2)
}

func TestLogin_InvalidMobileNumber(t *testing.T) {
	_, ts := newTestServer(t)

	for _, number := range []string{"", "not-a-number", "555 123"} {
		resp := postJSON(t, ts.URL+"/api/login", "", map[string]string{"mobile_number": number})
		var body map[string]string
		decodeBody(t, resp, &body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "number %q", number)
		assert.Equal(t, "invalid mobile number", body["message"])
	}
}

func TestVerifyOTP_WrongCode(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/login", "", map[string]string{"mobile_number": "5550002222"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/api/verifyotp", "", map[string]string{
		"mobile_number": "5550002222",
		"otp":           "0000",
	})
	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid verification code", body["message"])
}

func TestVerifyOTP_CodeSingleUse(t *testing.T) {
	_, ts := newTestServer(t)

	loginAs(t, ts, "5550003333")

	// The code was consumed by the successful verification
	resp := postJSON(t, ts.URL+"/api/verifyotp", "", map[string]string{
		"mobile_number": "5550003333",
		"otp":           testDevCode,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestVerifyOTP_WithoutLogin(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/verifyotp", "", map[string]string{
		"mobile_number": "5550004444",
		"otp":           testDevCode,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestListUsers_RequiresAuth(t *testing.T) {
	_, ts := newTestServer(t)

	resp := getJSON(t, ts.URL+"/api/users", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = getJSON(t, ts.URL+"/api/users", "not-a-token")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestListUsers(t *testing.T) {
	_, ts := newTestServer(t)

	loginAs(t, ts, "5550005555")
	_, token := loginAs(t, ts, "5550006666")

	resp := getJSON(t, ts.URL+"/api/users", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Users []userResponse `json:"users"`
	}
	decodeBody(t, resp, &out)
	require.Len(t, out.Users, 2)

	numbers := []string{out.Users[0].MobileNumber, out.Users[1].MobileNumber}
	assert.Contains(t, numbers, "5550005555")
	assert.Contains(t, numbers, "5550006666")
}

func TestSendAndReceiveMessages(t *testing.T) {
	_, ts := newTestServer(t)

	alice, aliceToken := loginAs(t, ts, "5550007777")
	bob, bobToken := loginAs(t, ts, "5550008888")

	// Alice sends two, Bob replies in between
	resp := postJSON(t, ts.URL+"/api/message/send", aliceToken, map[string]string{
		"receiver_id": bob.ID, "message": "hi bob",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sent messageResponse
	decodeBody(t, resp, &sent)
	assert.NotEmpty(t, sent.ID)
	assert.Equal(t, alice.ID, sent.Sender.ID)
	assert.Equal(t, bob.ID, sent.ReceiverID)

	resp = postJSON(t, ts.URL+"/api/message/send", bobToken, map[string]string{
		"receiver_id": alice.ID, "message": "hi alice",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/api/message/send", aliceToken, map[string]string{
		"receiver_id": bob.ID, "message": "how are you",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Both views return the full conversation, oldest first, with the
	// sender embedded as a user record.
	resp = getJSON(t, ts.URL+"/api/message/receive?receiver_id="+bob.ID, aliceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Messages []messageResponse `json:"messages"`
	}
	decodeBody(t, resp, &out)
	require.Len(t, out.Messages, 3)
	assert.Equal(t, "hi bob", out.Messages[0].Message)
	assert.Equal(t, "hi alice", out.Messages[1].Message)
	assert.Equal(t, "how are you", out.Messages[2].Message)
	assert.Equal(t, alice.ID, out.Messages[0].Sender.ID)
	assert.Equal(t, "5550007777", out.Messages[0].Sender.MobileNumber)
	assert.Equal(t, bob.ID, out.Messages[1].Sender.ID)

	resp = getJSON(t, ts.URL+"/api/message/receive?receiver_id="+alice.ID, bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &out)
	assert.Len(t, out.Messages, 3)
}

func TestReceiveMessages_RequiresReceiverID(t *testing.T) {
	_, ts := newTestServer(t)
	_, token := loginAs(t, ts, "5550009999")

	resp := getJSON(t, ts.URL+"/api/message/receive", token)
	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "receiver_id is required", body["message"])
}

func TestSendMessage_UnknownReceiver(t *testing.T) {
	_, ts := newTestServer(t)
	_, token := loginAs(t, ts, "5550001010")

	resp := postJSON(t, ts.URL+"/api/message/send", token, map[string]string{
		"receiver_id": "nope", "message": "hello",
	})
	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "receiver not found", body["message"])
}

func TestSendMessage_EmptyBody(t *testing.T) {
	_, ts := newTestServer(t)
	alice, aliceToken := loginAs(t, ts, "5550001212")

	resp := postJSON(t, ts.URL+"/api/message/send", aliceToken, map[string]string{
		"receiver_id": alice.ID, "message": "",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t)

	resp := getJSON(t, ts.URL+"/health", "")
	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestDocs(t *testing.T) {
	_, ts := newTestServer(t)

	resp := getJSON(t, ts.URL+"/docs", "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html"))

	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "<h1>patter API</h1>")
}
