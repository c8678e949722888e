// cmd/server/main.go
package main

import (
	"net/http"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jwhuang/honest-party/internal/config"
	"github.com/jwhuang/honest-party/internal/handlers"
	"github.com/jwhuang/honest-party/internal/metrics"
	"github.com/jwhuang/honest-party/internal/middleware"
	"github.com/jwhuang/honest-party/internal/question"
)

func main() {
	cfg := &config.Config{}
	cobra.CheckErr(config.NewCmd(cfg, run).Execute())
}

func run(cfg *config.Config) error {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if cfg.Verbose {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)

	m := metrics.New("party")
	bank := question.NewBank(cfg.Questions)

	// The bank is re-read per round action; this startup load only
	// reports configuration problems early.
	if qs, err := bank.Load(); err != nil {
		logger.Warnf("question bank not readable yet: %v", err)
	} else {
		logger.Infof("question bank loaded: %d questions from %s", len(qs), cfg.Questions)
	}

	srv := handlers.NewServer(bank, logger, m)

	mux := http.NewServeMux()
	mux.Handle("/ws", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.WSHandler(logger, srv),
	)))
	mux.Handle("/rooms/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.ServeRoomQR(logger, srv),
	)))
	mux.HandleFunc("/healthz", handlers.ServeHealthCheck())
	mux.Handle("/metrics", m.Handler())

	addr := cfg.Addr()
	logger.Infof("Running on %s", addr)
	return http.ListenAndServe(addr, mux)
}
