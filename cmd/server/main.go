// Package main is the entry point of the application
package main

import (
	"flag"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tecu23/mole-server/internal/auth"
	"github.com/tecu23/mole-server/pkg/config"
	"github.com/tecu23/mole-server/pkg/events"
	"github.com/tecu23/mole-server/pkg/game"
	"github.com/tecu23/mole-server/pkg/server"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,

	CheckOrigin: func(r *http.Request) bool {
		path := os.Getenv("FRONTEND_PATH")
		if path == "" {
			return true
		}
		return path == r.Header.Get("Origin")
	},
}

// application encapsulates global dependencies
type application struct {
	Auth      *auth.APIKeyAuth
	Logger    *zap.Logger
	Config    *config.Config
	Publisher *events.Publisher
	Session   *game.Session
	Hub       *server.Hub
	Server    *http.Server

	StartTime time.Time
}

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	port := flag.String("port", "8080", "server port")
	flag.Parse()

	// Initialize logger
	logger := initLogger(*debug)
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file loaded", zap.Error(err))
	}

	cfg := &config.Config{
		Debug: *debug,
		Port:  *port,
		Game:  config.LoadGameConfig(),
	}

	// Initialize event publisher with a diagnostic logging sink
	publisher := events.NewPublisher()
	publisher.SubscribeAll(func(event events.Event) {
		logger.Debug("event",
			zap.String("type", string(event.Type)),
			zap.Any("payload", event.Payload))
	})

	// Initialize the game session and the hub that feeds it
	selector := game.NewSelector(rand.New(rand.NewSource(time.Now().UnixNano())))
	session := game.NewSession(cfg.Game, nil, selector, publisher, logger)

	hub := server.NewHub(session, logger)
	session.SetSink(hub)

	var authKeys []string

	if envAPIKeys := os.Getenv("API_KEYS"); envAPIKeys != "" {
		// Split comma-separated list of API keys
		keys := strings.Split(envAPIKeys, ",")
		for i, key := range keys {
			keys[i] = strings.TrimSpace(key)
		}
		authKeys = keys
	}

	app := &application{
		Auth:      auth.NewAPIKeyAuth(authKeys),
		Logger:    logger,
		Config:    cfg,
		Publisher: publisher,
		Session:   session,
		Hub:       hub,
		StartTime: time.Now(),
	}

	go app.Session.Run()
	go app.Hub.Run()

	if err := app.serve(); err != nil {
		logger.Fatal("error serving", zap.Error(err))
	}
}

func initLogger(debug bool) *zap.Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	return logger
}

// Shutdown cleans up resources
func (app *application) Shutdown() {
	if app.Hub != nil {
		app.Hub.Shutdown()
	}
	if app.Session != nil {
		app.Session.Stop()
	}

	app.Logger.Info("All components shut down successfully")
}
