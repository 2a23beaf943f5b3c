//go:build !js && !wasm

package main

import (
	"context"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/himanishpuri/MediaDNA/internal/sampler"
	"github.com/himanishpuri/MediaDNA/pkg/logger"
	"github.com/himanishpuri/MediaDNA/pkg/mediadna"
	"github.com/himanishpuri/MediaDNA/pkg/mediadna/decode"
)

var (
	port           int
	dbPath         string
	mongoURI       string
	mongoDB        string
	tempDir        string
	cacheDir       string
	workers        int
	maxFrames      int
	lenient        bool
	finalSegment   string
	maxUploadMB    int
	allowedOrigins string
	logRequests    bool
)

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func registerFlags() {
	flag.IntVar(&port, "port", getEnvInt("MEDIADNA_PORT", 8080), "HTTP server port")
	flag.StringVar(&dbPath, "db", getEnvOrDefault("MEDIADNA_DB_PATH", "mediadna.sqlite3"), "Path to SQLite database")
	flag.StringVar(&mongoURI, "mongo", os.Getenv("MEDIADNA_MONGO_URI"), "MongoDB URI (replaces SQLite when set)")
	flag.StringVar(&mongoDB, "mongo-db", getEnvOrDefault("MEDIADNA_MONGO_DB", "mediadna"), "MongoDB database name")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("MEDIADNA_TEMP_DIR", os.TempDir()), "Temporary directory")
	flag.StringVar(&cacheDir, "cache", os.Getenv("MEDIADNA_CACHE_DIR"), "Bundle cache directory (empty disables, :memory: for in-memory)")
	flag.IntVar(&workers, "workers", getEnvInt("MEDIADNA_WORKERS", 0), "Hashing workers per request (0 = one per CPU)")
	flag.IntVar(&maxFrames, "frames", getEnvInt("MEDIADNA_MAX_FRAMES", 100), "Maximum frames sampled per video")
	flag.BoolVar(&lenient, "lenient", os.Getenv("MEDIADNA_LENIENT") == "true", "Skip undecodable frames instead of failing")
	flag.StringVar(&finalSegment, "final", getEnvOrDefault("MEDIADNA_FINAL_SEGMENT", "pad"), "Short final audio segment: pad or drop")
	flag.IntVar(&maxUploadMB, "max-upload", getEnvInt("MEDIADNA_MAX_UPLOAD_MB", 100), "Maximum upload size in MiB")
	flag.StringVar(&allowedOrigins, "origins", getEnvOrDefault("MEDIADNA_ORIGINS", "*"), "Comma-separated list of allowed CORS origins (use * for all)")
	flag.BoolVar(&logRequests, "log-requests", false, "Log every HTTP request")
}

func main() {
	_ = godotenv.Load()
	registerFlags()
	flag.Parse()

	log := logger.WithComponent("server")

	if err := decode.CheckFFmpeg(); err != nil {
		log.Warnf("%v", err)
		log.Warnf("The server will start but video and audio decoding will fail until FFmpeg is installed.")
	}

	// Parse allowed origins
	var origins []string
	if allowedOrigins == "*" {
		origins = []string{"*"}
	} else {
		origins = strings.Split(allowedOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}

	policy, err := sampler.ParseFinalSegmentPolicy(finalSegment)
	if err != nil {
		log.Fatalf("Invalid -final: %v", err)
	}

	opts := []mediadna.Option{
		mediadna.WithDBPath(dbPath),
		mediadna.WithTempDir(tempDir),
		mediadna.WithCacheDir(cacheDir),
		mediadna.WithWorkers(workers),
		mediadna.WithMaxFrames(maxFrames),
		mediadna.WithLenient(lenient),
		mediadna.WithFinalSegmentPolicy(policy),
	}
	if mongoURI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		storage, err := mediadna.NewMongoStorage(ctx, mongoURI, mongoDB)
		cancel()
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		opts = append(opts, mediadna.WithStorage(storage))
		dbPath = "mongodb/" + mongoDB
	}

	service, err := mediadna.NewService(opts...)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	config := &ServerConfig{
		Port:           port,
		DBPath:         dbPath,
		MaxUploadBytes: int64(maxUploadMB) << 20,
		AllowedOrigins: origins,
		LogRequests:    logRequests,
	}

	server := NewServer(service, config)
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
