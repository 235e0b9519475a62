package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/lightlink-network/ll-withdrawal-engine/api"
	"github.com/lightlink-network/ll-withdrawal-engine/database"
	"github.com/lightlink-network/ll-withdrawal-engine/engine"
	"github.com/lightlink-network/ll-withdrawal-engine/recorder"
	"github.com/lmittmann/tint"
)

// Version will be set at build time
var Version = "development"

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Fatal("Error loading .env file")
	}

	// create a new logger
	Logger := slog.New(tint.NewHandler(os.Stderr, nil))

	// set global logger with custom options
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level: slog.LevelDebug,
		}),
	))

	Logger.Info("Starting ll-withdrawal-engine ("+Version+")",
		"Go Version", runtime.Version(),
		"Operating System", runtime.GOOS,
		"Architecture", runtime.GOARCH)

	challengePeriodSeconds, err := strconv.ParseUint(os.Getenv("CHALLENGE_PERIOD_SECONDS"), 10, 64)
	if err != nil {
		log.Fatalf("failed to parse CHALLENGE_PERIOD_SECONDS: %v", err)
	}

	penaltyBps := uint64(0)
	if v := os.Getenv("PENALTY_BPS"); v != "" {
		penaltyBps, err = strconv.ParseUint(v, 10, 64)
		if err != nil {
			log.Fatalf("failed to parse PENALTY_BPS: %v", err)
		}
	}

	eng, err := engine.NewEngine(engine.EngineOpts{
		ChallengePeriod:  time.Duration(challengePeriodSeconds) * time.Second,
		InstantThreshold: parseWeiEnv("INSTANT_THRESHOLD_WEI"),
		DailyLimit:       parseWeiEnv("DAILY_LIMIT_WEI"),
		PenaltyBps:       penaltyBps,
		GlobalGuard:      os.Getenv("GUARD_GLOBAL") == "true",
		Releaser:         logReleaser{Logger.With("component", "releaser")},
		Logger:           Logger.With("component", "engine"),
	})
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.NewDatabase(database.DatabaseOpts{
		URI:          os.Getenv("DATABASE_URI"),
		DatabaseName: os.Getenv("DATABASE_NAME"),
		Logger:       Logger.With("component", "database"),
	})
	if err != nil {
		log.Fatal(err)
	}

	rec, err := recorder.NewRecorder(recorder.RecorderOpts{
		Database: db,
		Events:   eng.Events(),
		Logger:   Logger.With("component", "recorder"),
	})
	if err != nil {
		log.Fatal(err)
	}

	// start api server
	server, err := api.NewServer(api.ServerOpts{
		Logger:   Logger.With("component", "api-server"),
		Engine:   eng,
		Database: db,
		Port:     os.Getenv("API_PORT"),
	})
	if err != nil {
		log.Fatalf("failed to create api server: %v", err)
	}

	go server.StartServer()

	// Create context that will be canceled on SIGINT or SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle OS signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start recorder in a goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- rec.Run(ctx)
	}()

	// Wait for either error or signal
	select {
	case err := <-errChan:
		if err != nil {
			log.Printf("Recorder error: %v", err)
		}
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal: %v\n", sig)
		fmt.Println("Shutting down gracefully...")
		cancel() // This will trigger shutdown via context

		// Wait for recorder to finish
		if err := <-errChan; err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}
}

// parseWeiEnv parses an optional decimal wei amount from the environment.
// Unset or empty means the knob is disabled.
func parseWeiEnv(key string) *big.Int {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	amount, ok := new(big.Int).SetString(v, 10)
	if !ok {
		log.Fatalf("failed to parse %s: invalid amount %q", key, v)
	}
	return amount
}

// logReleaser stands in for the primary-ledger release path: it records the
// release and always succeeds. Deployments wire a real settlement client here.
type logReleaser struct {
	log *slog.Logger
}

func (r logReleaser) Release(account common.Address, amount *big.Int) error {
	r.log.Info("value released", "account", account.Hex(), "amount", amount.String())
	return nil
}
