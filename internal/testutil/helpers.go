package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// Session is what a browser keeps after a successful login
type Session struct {
	Cookie    *http.Cookie
	CSRFToken string
}

// PerformJSON sends body as JSON through handler. A non-nil session adds the session
// cookie and the CSRF header.
func PerformJSON(t *testing.T, handler http.Handler, method, path string, body interface{}, session *Session) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if session != nil {
		if session.Cookie != nil {
			req.AddCookie(session.Cookie)
		}
		if session.CSRFToken != "" {
			req.Header.Set("X-CSRF-Token", session.CSRFToken)
		}
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// Login posts credentials to /api/auth/login and fails the test unless it succeeds
func Login(t *testing.T, handler http.Handler, code, password string) *Session {
	w := PerformJSON(t, handler, http.MethodPost, "/api/auth/login", map[string]string{
		"code":     code,
		"password": password,
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Login as %s failed: %d %s", code, w.Code, w.Body.String())
	}

	var body struct {
		CSRFToken string `json:"csrf_token"`
	}
	DecodeJSON(t, w, &body)

	session := &Session{CSRFToken: body.CSRFToken}
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "token" {
			session.Cookie = cookie
		}
	}
	if session.Cookie == nil {
		t.Fatalf("Login as %s set no session cookie", code)
	}
	return session
}

// DecodeJSON decodes the recorded response body into v
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
}
