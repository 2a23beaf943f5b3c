//go:build !js && !wasm

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/himanishpuri/MediaDNA/internal/sampler"
	"github.com/himanishpuri/MediaDNA/pkg/logger"
	"github.com/himanishpuri/MediaDNA/pkg/mediadna"
)

// Global flags
var (
	dbPath     string
	mongoURI   string
	mongoDB    string
	tempDir    string
	cacheDir   string
	sampleRate int
	workers    int
	maxFrames  int
	lenient    bool
	final      string
)

func registerFlags() {
	// Global flags that can be used with any command
	flag.StringVar(&dbPath, "db", getEnvOrDefault("MEDIADNA_DB_PATH", "mediadna.sqlite3"), "Path to the SQLite database file")
	flag.StringVar(&mongoURI, "mongo", os.Getenv("MEDIADNA_MONGO_URI"), "MongoDB URI (replaces SQLite when set)")
	flag.StringVar(&mongoDB, "mongo-db", getEnvOrDefault("MEDIADNA_MONGO_DB", "mediadna"), "MongoDB database name")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("MEDIADNA_TEMP_DIR", os.TempDir()), "Directory for downloads and extracted audio")
	flag.StringVar(&cacheDir, "cache", os.Getenv("MEDIADNA_CACHE_DIR"), "Bundle cache directory (empty disables)")
	flag.IntVar(&sampleRate, "rate", 44100, "Audio sample rate for processing")
	flag.IntVar(&workers, "workers", 0, "Hashing workers (0 = one per CPU)")
	flag.IntVar(&maxFrames, "frames", 100, "Maximum frames sampled per video")
	flag.BoolVar(&lenient, "lenient", false, "Skip undecodable frames instead of failing")
	flag.StringVar(&final, "final", getEnvOrDefault("MEDIADNA_FINAL_SEGMENT", "pad"), "Short final audio segment: pad or drop")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// createService creates a new MediaDNA service with configured options
func createService() (mediadna.Service, error) {
	policy, err := sampler.ParseFinalSegmentPolicy(final)
	if err != nil {
		return nil, err
	}
	opts := []mediadna.Option{
		mediadna.WithDBPath(dbPath),
		mediadna.WithTempDir(tempDir),
		mediadna.WithCacheDir(cacheDir),
		mediadna.WithAudioSampleRate(sampleRate),
		mediadna.WithWorkers(workers),
		mediadna.WithMaxFrames(maxFrames),
		mediadna.WithLenient(lenient),
		mediadna.WithFinalSegmentPolicy(policy),
	}
	if mongoURI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		storage, err := mediadna.NewMongoStorage(ctx, mongoURI, mongoDB)
		if err != nil {
			return nil, err
		}
		opts = append(opts, mediadna.WithStorage(storage))
	}
	return mediadna.NewService(opts...)
}

// mustService creates the service or exits.
func mustService() mediadna.Service {
	svc, err := createService()
	if err != nil {
		fmt.Printf("❌ Failed to create service: %v\n", err)
		logger.Errorf("Service initialization failed: %v", err)
		os.Exit(1)
	}
	return svc
}

// splitArgs separates leading positional arguments from the flags after them.
func splitArgs(args []string) (positional, flagArgs []string) {
	for i, arg := range args {
		if strings.HasPrefix(arg, "-") {
			return positional, args[i:]
		}
		positional = append(positional, arg)
	}
	return positional, nil
}

func fail(format string, args ...any) {
	fmt.Printf("❌ "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	_ = godotenv.Load()
	registerFlags()
	flag.Parse()

	log := logger.WithComponent("cli")

	if flag.NArg() < 1 {
		printBanner()
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]
	log.Debugf("Executing command: %s", command)

	switch command {
	case "fingerprint":
		handleFingerprint(args)
	case "image":
		handleImage(args)
	case "compare":
		handleCompare(args)
	case "compare-hashes":
		handleCompareHashes(args)
	case "add":
		handleAdd(args)
	case "match":
		handleMatch(args)
	case "list":
		handleList()
	case "delete":
		handleDelete(args)
	case "batch":
		handleBatch(args)
	case "spectrogram":
		handleSpectrogram(args)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printBanner() {
	banner := `
 __  __          _ _       ____  _   _    _
|  \/  | ___  __| (_) __ _|  _ \| \ | |  / \
| |\/| |/ _ \/ _' | |/ _' | | | |  \| | / _ \
| |  | |  __/ (_| | | (_| | |_| | |\  |/ ___ \
|_|  |_|\___|\__,_|_|\__,_|____/|_| \_/_/   \_\

        Media Fingerprinting CLI Tool
`
	fmt.Println(banner)
}

func printUsage() {
	fmt.Println("MediaDNA - Media Fingerprinting CLI")
	fmt.Println("\nGlobal Options:")
	fmt.Println("  --db <path>        Path to SQLite database (env: MEDIADNA_DB_PATH, default: mediadna.sqlite3)")
	fmt.Println("  --mongo <uri>      Use MongoDB instead of SQLite (env: MEDIADNA_MONGO_URI)")
	fmt.Println("  --temp <dir>       Temporary directory (env: MEDIADNA_TEMP_DIR)")
	fmt.Println("  --cache <dir>      Bundle cache directory (env: MEDIADNA_CACHE_DIR)")
	fmt.Println("  --rate <hz>        Audio sample rate (default: 44100)")
	fmt.Println("  --workers <n>      Hashing workers (default: one per CPU)")
	fmt.Println("  --frames <n>       Maximum frames per video (default: 100)")
	fmt.Println("  --lenient          Skip undecodable frames")
	fmt.Println("\nUsage:")
	fmt.Println("  mediadna [global-options] fingerprint <file|url> [--robust]")
	fmt.Println("  mediadna [global-options] image <image_file>")
	fmt.Println("  mediadna [global-options] compare <file|url> <file|url>")
	fmt.Println("  mediadna [global-options] compare-hashes <hash1> <hash2> [--threshold <t>]")
	fmt.Println("  mediadna [global-options] add <file|url> [--title <title>]")
	fmt.Println("  mediadna [global-options] match <file|url>")
	fmt.Println("  mediadna [global-options] list")
	fmt.Println("  mediadna [global-options] delete <media_id>")
	fmt.Println("  mediadna [global-options] batch <dir> [--add] [--out <file.jsonl>] [--parallel <n>]")
	fmt.Println("  mediadna [global-options] spectrogram <file> [--out <file.png>] [--wav <file.wav>]")
	fmt.Println("\nExamples:")
	fmt.Println("  # Compare a clip against its re-encoded copy")
	fmt.Println("  mediadna compare original.mp4 reupload.mp4")
	fmt.Println()
	fmt.Println("  # Index a folder into the library")
	fmt.Println("  mediadna --db library.sqlite3 batch ./videos --add")
	fmt.Println()
	fmt.Println("  # Match a YouTube video against the library")
	fmt.Println("  mediadna match \"https://youtube.com/watch?v=dQw4w9WgXcQ\"")
}

func parseThreshold(s string) *float64 {
	if s == "" {
		return nil
	}
	t, err := strconv.ParseFloat(s, 64)
	if err != nil {
		fail("Invalid threshold %q: %v", s, err)
	}
	return &t
}
