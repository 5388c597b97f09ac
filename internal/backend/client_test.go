package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/soyeahso/agentchat/internal/logging"
	"github.com/soyeahso/agentchat/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) (*Client, *testutil.FakeBackend) {
	t.Helper()
	fb := testutil.NewFakeBackend(t, "good-token")
	return NewClient(fb.HTTPURL()+"/", 5*time.Second, logging.New(nil, "silent")), fb
}

func TestVerifyToken(t *testing.T) {
	c, _ := testClient(t)

	msg, err := c.VerifyToken(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, "Token is valid", msg)
}

func TestVerifyTokenRejected(t *testing.T) {
	c, _ := testClient(t)

	_, err := c.VerifyToken(context.Background(), "bad")
	require.Error(t, err)
	assert.True(t, IsAPIError(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid token", apiErr.Detail)
	assert.Contains(t, err.Error(), "401")
}

func TestScopeListing(t *testing.T) {
	c, fb := testClient(t)
	fb.SetOrganizations("acme", "globex")
	fb.SetWorkspaces("acme", "research")
	fb.SetProjects("acme", "research", "alpha", "beta")
	ctx := context.Background()

	orgs, err := c.Organizations(ctx, "good-token")
	require.NoError(t, err)
	assert.Equal(t, []string{"acme", "globex"}, orgs)

	ws, err := c.Workspaces(ctx, "good-token", "acme")
	require.NoError(t, err)
	assert.Equal(t, []string{"research"}, ws)

	projects, err := c.Projects(ctx, "good-token", "acme", "research")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, projects)

	empty, err := c.Workspaces(ctx, "good-token", "globex")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestQueryParametersAreEscaped(t *testing.T) {
	c, fb := testClient(t)
	fb.SetWorkspaces("R&D / Labs", "bench")

	ws, err := c.Workspaces(context.Background(), "good-token", "R&D / Labs")
	require.NoError(t, err)
	assert.Equal(t, []string{"bench"}, ws)
}

func TestFeedbackEndpoints(t *testing.T) {
	c, fb := testClient(t)
	ctx := context.Background()

	require.NoError(t, c.LikeAgent(ctx, "s-1", true))
	require.NoError(t, c.LikeSession(ctx, "s-1", false))
	require.NoError(t, c.PublishReview(ctx, "s-1", "helpful"))

	likes := fb.Likes()
	require.Len(t, likes, 2)
	assert.Equal(t, testutil.Like{Path: "/update-like-agent", SessionID: "s-1", Like: true}, likes[0])
	assert.Equal(t, testutil.Like{Path: "/update-like-session", SessionID: "s-1", Like: false}, likes[1])
	assert.Equal(t, []testutil.Review{{SessionID: "s-1", Review: "helpful"}}, fb.Reviews())
}

func TestServerErrorBecomesAPIError(t *testing.T) {
	c, fb := testClient(t)
	fb.FailPath("/organizations", http.StatusInternalServerError)

	_, err := c.Organizations(context.Background(), "good-token")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second, logging.New(nil, "silent"))
	_, err := c.VerifyToken(context.Background(), "x")
	require.Error(t, err)
	assert.False(t, IsAPIError(err))
}

func TestErrorDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string detail", `{"detail": "nope"}`, "nope"},
		{"list detail", `{"detail": [{"msg": "field required"}]}`, `[{"msg": "field required"}]`},
		{"plain text", "Bad Gateway", "Bad Gateway"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorDetail([]byte(tt.body)))
		})
	}
}

func TestAPIErrorWithoutDetail(t *testing.T) {
	err := &APIError{Status: 502}
	assert.Equal(t, "backend: HTTP 502", err.Error())
}
