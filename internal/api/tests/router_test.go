package api_test

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/buildtrue-server/internal/api"
	"github.com/rongwang/buildtrue-server/internal/api/testutils"
	"github.com/rongwang/buildtrue-server/internal/utils"
	"github.com/stretchr/testify/assert"
)

func TestRouterLogsEachRequestOnce(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var logs bytes.Buffer
	previous := gin.DefaultWriter
	gin.DefaultWriter = &logs
	defer func() { gin.DefaultWriter = previous }()

	router := api.NewRouter(utils.NewLoggerTo(&logs, &logs), nil)
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := testutils.PerformRequest(router, http.MethodGet, "/ping?token=secret-token", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1, strings.Count(logs.String(), "/ping"), logs.String())
	assert.NotContains(t, logs.String(), "secret-token")
}
