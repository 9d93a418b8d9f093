package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rongwang/buildtrue-server/internal/api/testutils"
	"github.com/rongwang/buildtrue-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnviewedBadgePushedOverWebsocket(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	server := httptest.NewServer(testCtx.Router)
	defer server.Close()

	project := testCtx.CreateProject(t, testutils.ClientEmail)

	// a missing token is rejected before the upgrade
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+testCtx.ClientJWT, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return testCtx.Hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	postProgress(t, testCtx, project.ID, nil)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event struct {
		Type string `json:"type"`
		models.UnviewedSummary
	}
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, "unviewed", event.Type)
	assert.Equal(t, 1, event.TotalUnviewed)
	require.Len(t, event.Projects, 1)
	assert.Equal(t, project.ID, event.Projects[0].ProjectID)
}
