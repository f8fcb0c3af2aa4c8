package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"gopkg.in/natefinch/lumberjack.v2"

	"lunagate/api"
	"lunagate/config"
	"lunagate/handlers"
	"lunagate/services/douban"
	"lunagate/utils"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[main] invalid configuration: %v", err)
	}

	if cfg.LogFile != "" {
		log.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    20, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}))
	}

	client := douban.NewClient(douban.ClientOptions{
		WebHost:   cfg.WebHost,
		APIHost:   cfg.APIHost,
		RelayBase: cfg.FallbackRelay,
		Timeout:   cfg.Timeout,
		Resolver:  douban.StaticProxy(cfg.ProxyBase),
	})
	if cfg.ProxyBase != "" {
		log.Printf("[main] douban fetches routed through proxy %s", cfg.ProxyBase)
	}

	feeds := handlers.NewDoubanHandler(client)
	home := handlers.NewHomeHandler(client)

	r := utils.NewRouter(cfg.CORSOrigins)
	r.Use(api.RequestLogMiddleware())

	// OPTIONS is listed so preflights reach the CORS middleware; it answers
	// them before the rate limiter or handler run.
	rl := api.PerMinute(cfg.RateLimitPerMin, cfg.RateLimitBurst)
	r.HandleFunc("/api/douban/categories", api.RateLimitHandlerFunc(rl, feeds.Categories)).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/douban/recommands", api.RateLimitHandlerFunc(rl, feeds.Recommendations)).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/douban/home", api.RateLimitHandlerFunc(rl, home.Get)).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/douban", api.RateLimitHandlerFunc(rl, feeds.ListByTag)).Methods(http.MethodGet, http.MethodOptions)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	go func() {
		log.Printf("[main] listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("[main] received %s, shutting down", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[main] shutdown: %v", err)
	}
}
