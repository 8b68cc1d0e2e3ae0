package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"tablero-api/api"
	"tablero-api/board"
	"tablero-api/realtime"
	"tablero-api/storage"
)

const broadcastChannel = "board:broadcasts"

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	tasksTableName := os.Getenv("TASKS_TABLE")
	columnsTableName := os.Getenv("COLUMNS_TABLE")
	usersTableName := os.Getenv("USERS_TABLE")
	notificationsQueueName := os.Getenv("NOTIFICATIONS_QUEUE")
	if connStr == "" || tasksTableName == "" || columnsTableName == "" || usersTableName == "" || notificationsQueueName == "" {
		log.Fatal("missing storage config")
	}
	store, err := storage.New(connStr, tasksTableName, columnsTableName, usersTableName, notificationsQueueName)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	redisConn := os.Getenv("REDIS_CONNECTION_STRING")
	if redisConn == "" {
		log.Fatal("missing redis config")
	}
	redisOpts, err := redis.ParseURL(redisConn)
	if err != nil {
		parts := strings.Split(redisConn, ",")
		redisOpts = &redis.Options{Addr: parts[0]}
		for _, p := range parts[1:] {
			kv := strings.SplitN(p, "=", 2)
			if len(kv) != 2 {
				continue
			}
			switch strings.ToLower(kv[0]) {
			case "password":
				redisOpts.Password = kv[1]
			case "ssl":
				if strings.ToLower(kv[1]) == "true" {
					redisOpts.TLSConfig = &tls.Config{}
				}
			}
		}
	}
	rc := redis.NewClient(redisOpts)

	cacheTTL := 5 * time.Minute
	if v := os.Getenv("BOARD_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			log.Fatalf("invalid BOARD_CACHE_TTL: %v", err)
		}
		cacheTTL = d
	}
	cached := storage.NewCache(store, rc, cacheTTL)

	webhookURL := os.Getenv("EXPORT_WEBHOOK_URL")
	if webhookURL == "" {
		log.Fatal("missing export webhook config")
	}

	var auth *api.Auth
	if domainName := os.Getenv("AUTH_JWKS_DOMAIN"); domainName != "" {
		jwtAudience := os.Getenv("AUTH_JWKS_AUDIENCE")
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", domainName)
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		auth = api.NewJWKSAuth(jwks, jwtAudience, "https://"+domainName+"/")
	} else {
		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			log.Fatal("missing auth config")
		}
		auth = api.NewAuth([]byte(secret))
	}

	logger := log.New()
	coord := board.New(cached, board.NewRedisPublisher(rc, broadcastChannel), logger)
	hub := realtime.NewHub(logger)
	go realtime.SubscribeBroadcasts(context.Background(), logger, rc, broadcastChannel, hub)

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	hook := api.NewWebhookClient(webhookURL, 30*time.Second, logger)
	api.Register(e, coord, store, store, auth, hook, logger)
	e.GET("/ws", realtime.Handler(hub, coord, logger))

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}
