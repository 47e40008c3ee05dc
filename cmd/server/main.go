package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"vishing-sim/backend/internal/ai"
	"vishing-sim/backend/internal/api"
)

func main() {
	configureLogging()

	baseDir, err := os.Getwd()
	if err != nil {
		logrus.Fatalf("determine working directory: %v", err)
	}

	dataDir := filepath.Join(baseDir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		logrus.Fatalf("create data directory: %v", err)
	}

	cacheTTL := 10 * time.Minute
	if v := strings.TrimSpace(os.Getenv("DOMAIN_ROLE_CACHE_TTL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cacheTTL = d
		}
	}

	groundingLimit := 12
	if v := strings.TrimSpace(os.Getenv("GROUNDING_LIMIT")); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			groundingLimit = val
		}
	}

	origins := []string{
		"http://localhost:8501",
		"http://127.0.0.1:8501",
	}
	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		origins = origins[:0]
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
	}

	disableAI := strings.EqualFold(strings.TrimSpace(os.Getenv("DISABLE_AI")), "true")

	cfg := api.Config{
		DBPath:             filepath.Join(dataDir, "vishing.db"),
		AllowedOrigins:     origins,
		AIConfig:           ai.ConfigFromEnv(),
		DisableAI:          disableAI,
		DomainRoleCacheTTL: cacheTTL,
		PersonasPath:       os.Getenv("PERSONAS_PATH"),
		GroundingCSVPath:   os.Getenv("GROUNDING_CSV_PATH"),
		GroundingLimit:     groundingLimit,
	}

	if override := strings.TrimSpace(os.Getenv("VISHING_DB_PATH")); override != "" {
		cfg.DBPath = override
	}

	server, err := api.NewServer(cfg)
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}
	defer server.Close()

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "2000"
	}

	logrus.Infof("starting vishing simulator backend on :%s", port)
	if err := router.Run(":" + port); err != nil {
		logrus.Fatalf("server exited: %v", err)
	}
}

func configureLogging() {
	if strings.EqualFold(strings.TrimSpace(os.Getenv("LOG_FORMAT")), "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		if level, err := logrus.ParseLevel(v); err == nil {
			logrus.SetLevel(level)
		} else {
			logrus.WithError(err).Warn("ignoring LOG_LEVEL")
		}
	}
}
