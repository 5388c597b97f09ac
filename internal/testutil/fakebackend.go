// Package testutil provides a scripted stand-in for the agent backend so the
// client packages can be tested over real HTTP and websocket connections.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// Responder streams the reply frames for one inbound chat message.
type Responder func(message string, send func(frame string))

// Received is one chat request as seen by the backend.
type Received struct {
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}

// Like is one recorded like/dislike call.
type Like struct {
	Path      string
	SessionID string
	Like      bool
}

// Review is one recorded review submission.
type Review struct {
	SessionID string
	Review    string
}

// FakeBackend serves the HTTP endpoints and the chat socket.
type FakeBackend struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu          sync.Mutex
	token       string
	orgs        []string
	workspaces  map[string][]string
	projects    map[string][]string
	failures    map[string]int
	responder   Responder
	received    []Received
	likes       []Like
	reviews     []Review
	calls       map[string]int
	conns       map[*websocket.Conn]bool
	accepted    int
	verifyDelay time.Duration
}

// NewFakeBackend starts a fake backend accepting token and shuts it down when
// the test ends.
func NewFakeBackend(t testing.TB, token string) *FakeBackend {
	t.Helper()
	f := &FakeBackend{
		token:      token,
		workspaces: make(map[string][]string),
		projects:   make(map[string][]string),
		failures:   make(map[string]int),
		calls:      make(map[string]int),
		conns:      make(map[*websocket.Conn]bool),
		responder: func(message string, send func(string)) {
			send("echo: " + message)
			send("[DONE]")
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /verify-token", f.handleVerify)
	mux.HandleFunc("GET /organizations", f.handleOrganizations)
	mux.HandleFunc("GET /workspaces", f.handleWorkspaces)
	mux.HandleFunc("GET /projects", f.handleProjects)
	mux.HandleFunc("POST /update-like-agent", f.handleLike)
	mux.HandleFunc("POST /update-like-session", f.handleLike)
	mux.HandleFunc("POST /publishreview", f.handleReview)
	mux.HandleFunc("GET /ws", f.handleSocket)

	f.srv = httptest.NewServer(f.countCalls(mux))
	t.Cleanup(func() {
		f.DropConnections()
		f.srv.Close()
	})
	return f
}

// HTTPURL is the base URL of the JSON endpoints.
func (f *FakeBackend) HTTPURL() string { return f.srv.URL }

// SocketURL is the chat websocket URL.
func (f *FakeBackend) SocketURL() string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"
}

// SetOrganizations sets the organization candidates.
func (f *FakeBackend) SetOrganizations(orgs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orgs = orgs
}

// SetWorkspaces sets the workspace candidates of org.
func (f *FakeBackend) SetWorkspaces(org string, ws ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.workspaces[org] = ws
}

// SetProjects sets the project candidates of org/ws.
func (f *FakeBackend) SetProjects(org, ws string, projects ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projects[org+"/"+ws] = projects
}

// FailPath makes every request to path answer with status.
func (f *FakeBackend) FailPath(path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[path] = status
}

// SetVerifyDelay slows token verification down.
func (f *FakeBackend) SetVerifyDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyDelay = d
}

// SetResponder replaces the chat reply script.
func (f *FakeBackend) SetResponder(r Responder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responder = r
}

// Frames returns a responder that replies with fixed frames.
func Frames(frames ...string) Responder {
	return func(_ string, send func(string)) {
		for _, fr := range frames {
			send(fr)
		}
	}
}

// Received returns the chat requests seen so far.
func (f *FakeBackend) Received() []Received {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Received(nil), f.received...)
}

// Likes returns recorded like/dislike calls.
func (f *FakeBackend) Likes() []Like {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Like(nil), f.likes...)
}

// Reviews returns recorded review submissions.
func (f *FakeBackend) Reviews() []Review {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Review(nil), f.reviews...)
}

// Calls returns how many requests hit path.
func (f *FakeBackend) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

// Accepted returns how many sockets have been accepted in total.
func (f *FakeBackend) Accepted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accepted
}

// OpenSockets returns how many sockets are currently open server-side.
func (f *FakeBackend) OpenSockets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

// DropConnections closes every open socket from the server side.
func (f *FakeBackend) DropConnections() {
	f.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(f.conns))
	for c := range f.conns {
		conns = append(conns, c)
	}
	f.mu.Unlock()

	for _, c := range conns {
		c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server going away"),
			time.Now().Add(time.Second))
		c.Close()
	}
}

func (f *FakeBackend) countCalls(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[r.URL.Path]++
		status := f.failures[r.URL.Path]
		f.mu.Unlock()

		if status != 0 {
			writeJSON(w, status, map[string]string{"detail": http.StatusText(status)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeBackend) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid body"})
		return
	}

	f.mu.Lock()
	valid := req.Token == f.token
	delay := f.verifyDelay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if !valid {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid token"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Token is valid"})
}

func (f *FakeBackend) authorized(w http.ResponseWriter, r *http.Request) bool {
	f.mu.Lock()
	valid := r.URL.Query().Get("token") == f.token
	f.mu.Unlock()
	if !valid {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid token"})
	}
	return valid
}

func (f *FakeBackend) handleOrganizations(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}
	f.mu.Lock()
	orgs := nonNil(f.orgs)
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string][]string{"organizations": orgs})
}

func (f *FakeBackend) handleWorkspaces(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}
	f.mu.Lock()
	ws := nonNil(f.workspaces[r.URL.Query().Get("organization")])
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string][]string{"workspaces": ws})
}

func (f *FakeBackend) handleProjects(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}
	q := r.URL.Query()
	f.mu.Lock()
	projects := nonNil(f.projects[q.Get("organization")+"/"+q.Get("workspace")])
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string][]string{"projects": projects})
}

func (f *FakeBackend) handleLike(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Like      bool   `json:"like"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid body"})
		return
	}
	f.mu.Lock()
	f.likes = append(f.likes, Like{Path: r.URL.Path, SessionID: req.SessionID, Like: req.Like})
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "updated"})
}

func (f *FakeBackend) handleReview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Review    string `json:"review"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid body"})
		return
	}
	f.mu.Lock()
	f.reviews = append(f.reviews, Review{SessionID: req.SessionID, Review: req.Review})
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "published"})
}

// handleSocket upgrades and answers each inbound chat message with the
// current responder, one frame per websocket text message.
func (f *FakeBackend) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	f.mu.Lock()
	f.conns[conn] = true
	f.accepted++
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.conns, conn)
		f.mu.Unlock()
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req Received
		if err := json.Unmarshal(msg, &req); err != nil {
			conn.WriteMessage(websocket.TextMessage, []byte("[ERROR]invalid request"))
			continue
		}

		f.mu.Lock()
		f.received = append(f.received, req)
		respond := f.responder
		f.mu.Unlock()

		respond(req.Message, func(frame string) {
			conn.WriteMessage(websocket.TextMessage, []byte(frame))
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
