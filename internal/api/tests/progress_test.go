package api_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/rongwang/buildtrue-server/internal/api/testutils"
	"github.com/rongwang/buildtrue-server/internal/config"
	"github.com/rongwang/buildtrue-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postProgress(t *testing.T, testCtx *testutils.TestContext, projectID string, files []testutils.File) models.Progress {
	t.Helper()
	w := testutils.PerformMultipart(testCtx.Router, http.MethodPost, "/api/progress/"+projectID+"/progress", map[string]string{
		"division":    "Framing",
		"progress":    "35",
		"description": "Wall frames standing",
	}, files, testutils.AuthHeaders(testCtx.AdminJWT))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.ProgressResponse
	testutils.DecodeJSON(t, w, &resp)
	require.NotNil(t, resp.Progress)
	return *resp.Progress
}

func TestProgressLifecycle(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	project := testCtx.CreateProject(t, testutils.ClientEmail)
	client := testutils.AuthHeaders(testCtx.ClientJWT)
	admin := testutils.AuthHeaders(testCtx.AdminJWT)

	progress := postProgress(t, testCtx, project.ID, []testutils.File{
		{Field: "media", Name: "frames.jpg", ContentType: "image/jpeg", Content: []byte("jpeg")},
		{Field: "media", Name: "tour.mov", ContentType: "video/quicktime", Content: []byte("mov")},
	})
	assert.Equal(t, 35, progress.Progress)
	assert.False(t, progress.Viewed)
	require.Len(t, progress.Media, 2)
	assert.Equal(t, models.MediaImage, progress.Media[0].Type)
	assert.Equal(t, models.MediaVideo, progress.Media[1].Type)

	sent := testCtx.Mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{testutils.ClientEmail}, sent[0].To)

	// the client sees one unviewed entry
	w := testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/progress/"+project.ID+"/progress", nil, client)
	require.Equal(t, http.StatusOK, w.Code)
	var list models.ProgressListResponse
	testutils.DecodeJSON(t, w, &list)
	require.Len(t, list.ProgressUpdates, 1)
	assert.Equal(t, 1, list.UnviewedCount)

	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/progress/client/projects", nil, client)
	require.Equal(t, http.StatusOK, w.Code)
	var mine models.ClientProjectsResponse
	testutils.DecodeJSON(t, w, &mine)
	assert.Equal(t, 1, mine.TotalUnviewed)

	// opening it as admin keeps it unviewed, opening it as the client flips it
	viewPath := "/api/progress/progress/" + progress.ID + "/view"
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, viewPath, nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	var viewed models.ProgressResponse
	testutils.DecodeJSON(t, w, &viewed)
	assert.False(t, viewed.Progress.Viewed)

	for i := 0; i < 2; i++ {
		w = testutils.PerformRequest(testCtx.Router, http.MethodPost, viewPath, nil, client)
		require.Equal(t, http.StatusOK, w.Code)
		testutils.DecodeJSON(t, w, &viewed)
		assert.Equal(t, "Progress marked as viewed", viewed.Message)
		assert.True(t, viewed.Progress.Viewed)
	}

	// thread messages from both sides
	msgPath := "/api/progress/progress/" + progress.ID + "/messages"
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, msgPath, models.MessageRequest{Text: "When is roofing?"}, client)
	require.Equal(t, http.StatusOK, w.Code)
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, msgPath, models.MessageRequest{Text: "Next week"}, admin)
	require.Equal(t, http.StatusOK, w.Code)
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, msgPath, map[string]string{}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/progress/progress/"+progress.ID, nil, client)
	require.Equal(t, http.StatusOK, w.Code)
	var detail models.ProgressResponse
	testutils.DecodeJSON(t, w, &detail)
	require.Len(t, detail.Progress.Messages, 2)
	assert.Equal(t, models.RoleClient, detail.Progress.Messages[0].Sender.Role)
	assert.Equal(t, models.RoleAdmin, detail.Progress.Messages[1].Sender.Role)

	// resend the notification
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/progress/"+project.ID+"/progress/"+progress.ID+"/notify", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, testCtx.Mailer.Sent(), 2)

	// update replaces the media
	w = testutils.PerformMultipart(testCtx.Router, http.MethodPut, "/api/progress/"+project.ID+"/progress/"+progress.ID,
		map[string]string{"progress": "70"},
		[]testutils.File{{Field: "media", Name: "roof.webp", ContentType: "image/webp", Content: []byte("webp")}},
		admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.ProgressResponse
	testutils.DecodeJSON(t, w, &updated)
	assert.Equal(t, 70, updated.Progress.Progress)
	assert.Equal(t, "Framing", updated.Progress.Division)
	require.Len(t, updated.Progress.Media, 1)
	assert.True(t, strings.HasSuffix(updated.Progress.Media[0].URL, ".webp"))

	// delete
	w = testutils.PerformRequest(testCtx.Router, http.MethodDelete, "/api/progress/"+project.ID+"/progress/"+progress.ID, nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/progress/progress/"+progress.ID, nil, admin)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProgressValidation(t *testing.T) {
	testCtx := testutils.SetupTestContext(t, func(cfg *config.Config) { cfg.Storage.MaxFilesPerUpload = 1 })
	defer testutils.CleanupTestContext(testCtx)

	project := testCtx.CreateProject(t, testutils.ClientEmail)
	admin := testutils.AuthHeaders(testCtx.AdminJWT)
	path := "/api/progress/" + project.ID + "/progress"

	w := testutils.PerformMultipart(testCtx.Router, http.MethodPost, path, map[string]string{
		"division":    "Framing",
		"progress":    "120",
		"description": "Too far",
	}, nil, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutils.PerformMultipart(testCtx.Router, http.MethodPost, path, map[string]string{
		"division": "Framing",
		"progress": "20",
	}, nil, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutils.PerformMultipart(testCtx.Router, http.MethodPost, path, map[string]string{
		"division":    "Framing",
		"progress":    "20",
		"description": "Two files",
	}, []testutils.File{
		{Field: "media", Name: "a.jpg", ContentType: "image/jpeg", Content: []byte("a")},
		{Field: "media", Name: "b.jpg", ContentType: "image/jpeg", Content: []byte("b")},
	}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Empty(t, testCtx.Mailer.Sent())
}

func TestProgressForbiddenForOtherClients(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	project := testCtx.CreateProject(t, testutils.ClientEmail)
	progress := postProgress(t, testCtx, project.ID, nil)
	_, otherJWT := testCtx.CreateClient(t, "other@example.com", "otherpassword")
	other := testutils.AuthHeaders(otherJWT)

	w := testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/progress/progress/"+progress.ID, nil, other)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/progress/progress/"+progress.ID+"/view", nil, other)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/progress/"+project.ID+"/progress", nil, other)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/projects/client/projects?clientId="+testCtx.ClientID, nil, other)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/projects/client/projects?clientId="+testCtx.ClientID, nil, testutils.AuthHeaders(testCtx.AdminJWT))
	require.Equal(t, http.StatusOK, w.Code)
	var theirs models.ClientProjectsResponse
	testutils.DecodeJSON(t, w, &theirs)
	assert.Equal(t, 1, theirs.TotalUnviewed)
}
