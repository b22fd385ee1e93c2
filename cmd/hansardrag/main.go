// Command hansardrag runs the Pacific Hansard RAG gateway: an HTTP API over
// speaker-aware transcript ingestion, hybrid BM25/vector retrieval, and
// citation-grounded question answering.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/jlkeet/pacific-hansard-rag/internal/config"
	"github.com/jlkeet/pacific-hansard-rag/internal/httpapi"
	"github.com/jlkeet/pacific-hansard-rag/internal/observability"
	"github.com/jlkeet/pacific-hansard-rag/internal/persistence/databases"
	"github.com/jlkeet/pacific-hansard-rag/internal/rag/cache"
	"github.com/jlkeet/pacific-hansard-rag/internal/rag/embedder"
	"github.com/jlkeet/pacific-hansard-rag/internal/rag/generate"
	"github.com/jlkeet/pacific-hansard-rag/internal/rag/retrieve"
	"github.com/jlkeet/pacific-hansard-rag/internal/rag/service"
)

const serviceVersion = "0.1.0"

func main() {
	if err := godotenv.Load(".env"); err != nil {
		_ = godotenv.Load("example.env")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		log.Fatal().Err(err).Msg("failed to load config")
	}
	observability.InitLogger(cfg.LogPath, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := observability.InitOTel(ctx, cfg.Obs)
	if err != nil {
		log.Warn().Err(err).Msg("otel init failed, continuing without observability")
		shutdown = nil
	}
	if shutdown != nil {
		defer func() { _ = shutdown(context.Background()) }()
	}

	mgr, err := databases.NewManager(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init index backends")
	}
	defer mgr.Close()

	httpClient := observability.NewHTTPClient(nil)
	emb := embedder.NewClient(cfg.Embedding, cfg.DB.Vector.Dimensions)
	gen := generate.WithConcurrencyLimit(generate.New(cfg.Generator, httpClient), cfg.Generator.MaxConcurrency)

	answers, err := cache.New(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("answer cache unavailable, continuing without it")
		answers = nil
	}
	if answers != nil {
		defer func() { _ = answers.Close() }()
	}

	svc := service.New(mgr,
		service.WithEmbedder(emb),
		service.WithGenerator(gen),
		service.WithReranker(retrieve.NewTermOverlapReranker()),
		service.WithAnswerCache(answers),
	)
	srv := httpapi.NewServer(svc, serviceVersion)
	if cfg.Auth.Issuer != "" {
		if oidcAuth, err := httpapi.NewOIDCAuth(ctx, cfg.Auth.Issuer, cfg.Auth.ClientID); err != nil {
			log.Warn().Err(err).Msg("oidc discovery failed, serving unauthenticated")
		} else {
			srv.WithAuth(oidcAuth)
		}
	}

	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      srv,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.WriteTimeout)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.HTTP.Addr).Msg("hansardrag listening")
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
