package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_ObservesMatchedRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/guides/:key", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(Handler()))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/guides/vpn", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.GreaterOrEqual(t, testutil.CollectAndCount(HTTPRequestDuration), 2)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `route="/guides/:key"`))
	assert.True(t, strings.Contains(body, `route="unmatched"`))
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(PageViewsTracked.WithLabelValues("vpn"))
	PageViewsTracked.WithLabelValues("vpn").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(PageViewsTracked.WithLabelValues("vpn")))
}
