package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/revocity/revocity/api/config"
	"github.com/revocity/revocity/api/middleware"
	"github.com/revocity/revocity/api/models"
	"github.com/revocity/revocity/api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scriptedAssessor map[services.Task]string

func (s scriptedAssessor) Assess(ctx context.Context, task services.Task, img *services.Image) (string, error) {
	reply, ok := s[task]
	if !ok {
		return "", services.ErrAIUnavailable
	}
	return reply, nil
}

type scanLog struct {
	mu    sync.Mutex
	scans []models.ScanRecord
}

func (l *scanLog) CreateScan(ctx context.Context, scan *models.ScanRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.scans = append(l.scans, *scan)
	return nil
}

func (l *scanLog) ListScans(ctx context.Context, userID string, limit int) ([]models.ScanRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []models.ScanRecord{}
	for _, s := range l.scans {
		if s.UserID == userID && len(out) < limit {
			out = append(out, s)
		}
	}
	return out, nil
}

var jpegBase64 = base64.StdEncoding.EncodeToString([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46})

func newAnalysisRouter(ai services.Assessor, scans *scanLog) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	h := NewAnalysisHandler(&config.Config{MaxImageMB: 1},
		services.NewAnalyzerService(ai, scans, logger),
		services.NewValidatorService(ai, logger))

	router := gin.New()
	router.Use(middleware.ErrorHandler(logger))
	router.Use(func(c *gin.Context) {
		c.Set("callerID", "user-1")
		c.Next()
	})
	router.POST("/analysis/bin", h.AnalyzeBin)
	router.POST("/analysis/validate", h.ValidateImage)
	router.GET("/scans", h.ListScans)
	return router
}

func postJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAnalyzeBin(t *testing.T) {
	scans := &scanLog{}
	router := newAnalysisRouter(scriptedAssessor{
		services.TaskBinAnalysis: `{"status": "full", "percentage": 95}`,
	}, scans)

	w := postJSON(router, "/analysis/bin", gin.H{"imageBase64": jpegBase64})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success  bool                 `json:"success"`
		Analysis services.BinAnalysis `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, models.BinStatusOverflowing, body.Analysis.Status)
	assert.Equal(t, models.PriorityCritical, body.Analysis.Priority)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/scans", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, scans.scans, 1)
	assert.Equal(t, "user-1", scans.scans[0].UserID)
}

func TestAnalyzeBin_DegradesWithoutGateway(t *testing.T) {
	router := newAnalysisRouter(scriptedAssessor{}, &scanLog{})

	w := postJSON(router, "/analysis/bin", gin.H{"imageBase64": jpegBase64})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success  bool                 `json:"success"`
		Analysis services.BinAnalysis `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.True(t, body.Analysis.Degraded)
}

func TestAnalyzeBin_RejectsBadInput(t *testing.T) {
	router := newAnalysisRouter(scriptedAssessor{}, &scanLog{})

	w := postJSON(router, "/analysis/bin", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(router, "/analysis/bin", gin.H{"imageBase64": base64.StdEncoding.EncodeToString([]byte("hello world!"))})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidateImage(t *testing.T) {
	router := newAnalysisRouter(scriptedAssessor{
		services.TaskImageValidation: `{"is_valid": true, "is_garbage_bin_related": true, "authenticity_score": 40}`,
	}, &scanLog{})

	w := postJSON(router, "/analysis/validate", gin.H{"imageBase64": jpegBase64})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Blocked bool `json:"blocked"`
		Warning bool `json:"warning"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Blocked)
	assert.True(t, body.Warning)
}
