package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stereocap/internal/config"
	"stereocap/internal/log"
)

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config     *config.Config
	handler    *Handler
	engine     *gin.Engine
	httpServer *http.Server
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, status StatusProvider, pairs PairLister) *Server {
	s := &Server{
		config:  cfg,
		handler: NewHandler(cfg.Out, status, pairs),
		engine:  gin.New(),
	}
	s.engine.Use(gin.Recovery())
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.ServerAddress(),
		Handler:      s.engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s
}

// setupRoutes はHTTPルートを設定する
func (s *Server) setupRoutes() {
	// ヘルスチェックエンドポイント
	s.engine.GET("/health", s.handler.HealthCheck)

	api := s.engine.Group("/api")
	{
		api.GET("/status", s.handler.GetStatus)
		api.GET("/pairs", s.handler.GetPairs)
		api.GET("/pairs/:index/:side", s.handler.GetPairImage)
	}
}

// Handler はルーティング済みのハンドラーを返す
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start はサーバーを起動し、ctx がキャンセルされるまで待つ
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("サーバーの起動に失敗: %w", err)
	}
	return s.Serve(ctx, listener)
}

// Serve は listener で待ち受け、ctx がキャンセルされたらシャットダウンする
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	serveCh := make(chan error, 1)

	go func() {
		log.Info("HTTPサーバーを起動しています", "addr", listener.Addr().String())
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
		close(serveCh)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-serveCh:
		if ok {
			return err
		}
		return nil
	}

	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
func (s *Server) Shutdown() error {
	log.Info("サーバーをシャットダウンしています")

	// 5秒のタイムアウトを設定
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	log.Info("サーバーが正常にシャットダウンされました")
	return nil
}
