package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"lunagate/models"
	"lunagate/services/douban"
)

// Fetches one douban feed from the command line, useful for checking
// upstream reachability and proxy/relay routing without starting the server.
//
//	go run scripts/douban_probe.go -pipeline categories -kind tv -category tv
//	DOUBAN_PROXY=https://proxy.example.com/ go run scripts/douban_probe.go -pipeline tag -tag 热门
func main() {
	var (
		pipeline = flag.String("pipeline", "categories", "one of categories, tag, recommend")
		kind     = flag.String("kind", "movie", "tv or movie")
		category = flag.String("category", "全部", "category filter")
		typ      = flag.String("type", "全部", "type filter")
		tag      = flag.String("tag", "热门", "tag for the tag pipeline")
		limit    = flag.Int("limit", 20, "page size")
		start    = flag.Int("start", 0, "page offset")
		server   = flag.String("server", os.Getenv("SERVER_BASE"), "gateway base URL, empty goes direct")
		proxy    = flag.String("proxy", os.Getenv("DOUBAN_PROXY"), "CORS proxy base, forces client transport")
	)
	flag.Parse()

	client := douban.NewClient(douban.ClientOptions{
		Resolver: douban.StaticProxy(*proxy),
	})
	svc := douban.NewService(douban.ServiceOptions{
		Client:     client,
		ServerBase: *server,
		Notifier: douban.NotifierFunc(func(message string) {
			log.Printf("[notify] %s", message)
		}),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var (
		result *models.DoubanResult
		err    error
	)
	switch *pipeline {
	case "categories":
		result, err = svc.Categories(ctx, models.DoubanCategoriesQuery{
			Kind:     *kind,
			Category: *category,
			Type:     *typ,
			Limit:    *limit,
			Start:    *start,
		})
	case "tag":
		result, err = svc.ListByTag(ctx, models.DoubanTagQuery{
			Tag:   *tag,
			Type:  *kind,
			Limit: *limit,
			Start: *start,
		})
	case "recommend":
		result, err = svc.Recommendations(ctx, models.DoubanRecommendQuery{
			Kind:     *kind,
			Category: *category,
			Limit:    *limit,
			Start:    *start,
		})
	default:
		log.Fatalf("unknown pipeline %q (want categories, tag or recommend)", *pipeline)
	}

	if err != nil {
		log.Fatalf("fetch failed: %v", err)
	}

	log.Printf("%s (%d items)", result.Message, len(result.List))
	out, err := json.MarshalIndent(result.List, "", "  ")
	if err != nil {
		log.Fatalf("marshal: %v", err)
	}
	os.Stdout.Write(out)
	os.Stdout.Write([]byte("\n"))
}
