package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"stereocap/internal/capture"
	"stereocap/internal/storage"
)

// StatusProvider はセッションの進行状況を提供する
type StatusProvider interface {
	Status() capture.StatusInfo
}

// PairLister は保存済みのペアを列挙する
type PairLister interface {
	List() ([]storage.Pair, error)
}

// HealthResponse は /health のレスポンス
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusResponse は /api/status のレスポンス
type StatusResponse struct {
	Capture   *capture.StatusInfo `json:"capture,omitempty"` // セッションがない場合は省略
	Out       string              `json:"out"`
	Timestamp time.Time           `json:"timestamp"`
}

// PairsResponse は /api/pairs のレスポンス
type PairsResponse struct {
	Pairs []storage.Pair `json:"pairs"`
	Count int            `json:"count"`
}

// ErrorResponse はエラー時のレスポンス
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Handler は各エンドポイントの実装
type Handler struct {
	outDir string
	status StatusProvider
	pairs  PairLister
}

// NewHandler は新しい Handler を作成する
// status が nil の場合は保存済みペアの配信だけを行う
func NewHandler(outDir string, status StatusProvider, pairs PairLister) *Handler {
	return &Handler{
		outDir: outDir,
		status: status,
		pairs:  pairs,
	}
}

// HealthCheck はヘルスチェックエンドポイントの実装
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// GetStatus はキャプチャ状態取得エンドポイントの実装
func (h *Handler) GetStatus(c *gin.Context) {
	response := StatusResponse{
		Out:       h.outDir,
		Timestamp: time.Now(),
	}
	if h.status != nil {
		status := h.status.Status()
		response.Capture = &status
	}
	c.JSON(http.StatusOK, response)
}

// GetPairs は保存済みペア一覧取得エンドポイントの実装
func (h *Handler) GetPairs(c *gin.Context) {
	pairs, err := h.pairs.List()
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, "list_failed", "ペア一覧の取得に失敗しました")
		return
	}

	c.JSON(http.StatusOK, PairsResponse{
		Pairs: pairs,
		Count: len(pairs),
	})
}

// GetPairImage は指定したペアの片側の画像を返す
func (h *Handler) GetPairImage(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		errorJSON(c, http.StatusBadRequest, "invalid_index", "ペア番号が不正です")
		return
	}

	side := storage.Side(c.Param("side"))
	if side != storage.SideLeft && side != storage.SideRight {
		errorJSON(c, http.StatusBadRequest, "invalid_side", "left または right を指定してください")
		return
	}

	pairs, err := h.pairs.List()
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, "list_failed", "ペア一覧の取得に失敗しました")
		return
	}

	for _, pair := range pairs {
		if pair.Index != index {
			continue
		}
		path := pair.LeftPath
		if side == storage.SideRight {
			path = pair.RightPath
		}
		c.Header("Cache-Control", "no-cache")
		c.File(path)
		return
	}

	errorJSON(c, http.StatusNotFound, "pair_not_found", "指定されたペアが見つかりません")
}

// errorJSON はエラーレスポンスを返す
func errorJSON(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{
		Error:     code,
		Message:   message,
		Timestamp: time.Now(),
	})
}
