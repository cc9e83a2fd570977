package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/domain"
	httpHandler "github.com/reddit-archive/reddit-plugin-place-opensource/internal/handler/http"
	wsHandler "github.com/reddit-archive/reddit-plugin-place-opensource/internal/handler/websocket"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/hub"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/repository/mocks"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/service"
)

type allowAll struct{}

func (allowAll) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return false, nil
}

type nopEnqueuer struct{}

func (nopEnqueuer) EnqueuePixels(ctx context.Context, pixels []domain.Pixel) error { return nil }

func newTestRouter(t *testing.T) (*gin.Engine, *mocks.BoardRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &Config{
		JWTSecret:         "router-secret",
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimitMax:      100,
		RateLimitWindow:   time.Second,
	}
	board := new(mocks.BoardRepository)
	authService, err := service.NewAuthService(new(mocks.UserRepository), cfg.JWTSecret, 1)
	require.NoError(t, err)
	placeService := service.NewPlaceService(board, new(mocks.PixelRepository), nopEnqueuer{}, service.PlaceConfig{Width: 10, Height: 10})

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	router := NewRouter(cfg, log, allowAll{}, Handlers{
		Auth:      httpHandler.NewAuthHandler(authService),
		Place:     httpHandler.NewPlaceHandler(placeService),
		WebSocket: wsHandler.NewWebSocketHandler(hub.NewHub(board), cfg.CORSAllowedOrigin),
	})
	return router, board
}

func bearer(t *testing.T, isAdmin bool) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":   1,
		"user_name": "mod",
		"is_admin":  isAdmin,
		"exp":       time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("router-secret"))
	require.NoError(t, err)
	return "Bearer " + token
}

func do(router *gin.Engine, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouter_Ping(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(router, http.MethodGet, "/ping", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_Preflight(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(router, http.MethodOptions, "/api/place/draw.json", "")

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRouter_PublicBitmap(t *testing.T) {
	router, board := newTestRouter(t)
	board.On("GetBitmap", mock.Anything).Return([]byte{0x01}, nil).Once()

	w := do(router, http.MethodGet, "/api/place/board-bitmap", "")

	assert.Equal(t, http.StatusOK, w.Code)
	board.AssertExpectations(t)
}

func TestRouter_DrawRequiresAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(router, http.MethodPost, "/api/place/draw.json", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(router, http.MethodGet, "/api/place/time-to-wait.json", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_DrawRectRequiresAdmin(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(router, http.MethodPost, "/api/place/drawrect.json", bearer(t, false))

	assert.Equal(t, http.StatusForbidden, w.Code)
}
