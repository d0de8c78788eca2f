// codevalidator serves the Layered Validation Pipeline, the Multi-Candidate
// Generation & Selection Engine, and the Predictive Timeout & Budget
// Scheduler behind an HTTP API.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/northbeam-labs/codevalidator/pkg/apiserver"
	"github.com/northbeam-labs/codevalidator/pkg/config"
	"github.com/northbeam-labs/codevalidator/pkg/estimator"
	"github.com/northbeam-labs/codevalidator/pkg/history"
	"github.com/northbeam-labs/codevalidator/pkg/llmclient"
	"github.com/northbeam-labs/codevalidator/pkg/strategy"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func main() {
	configDir := getEnv("CONFIG_DIR", "./deploy/config")

	envPath := filepath.Join(configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: could not load %s: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	projectDir := getEnv("PROJECT_DIR", ".")
	prefs, err := config.LoadUserPreferences(projectDir)
	if err != nil {
		log.Fatalf("Failed to load user preferences: %v", err)
	}
	log.Printf("Loaded preferences: priority=%s max_wait=%.0fs", prefs.Preferences.Priority, prefs.Timeouts.MaxWait)

	adaptiveStrategy := strategy.New()
	budgetEstimator := estimator.NewBudgetEstimator(estimator.UserPreferences{
		MaxWait:  prefs.Timeouts.MaxWait,
		Priority: prefs.Preferences.Priority,
	})
	predictiveEstimator := estimator.New()

	historyBackend := getEnv("HISTORY_BACKEND", "json")
	var store *history.Store
	var historyDir string

	switch historyBackend {
	case "postgres":
		store, err = history.Open(ctx, history.Config{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "codevalidator"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Database: getEnv("POSTGRES_DB", "codevalidator"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		})
		if err != nil {
			log.Fatalf("Failed to connect to history store: %v", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Printf("Error closing history store: %v", err)
			}
		}()
		log.Println("Connected to Postgres history store")

		if outcomes, err := store.LoadStrategyOutcomes(ctx); err != nil {
			log.Printf("Warning: could not load strategy history: %v", err)
		} else {
			adaptiveStrategy.LoadHistory(outcomes)
		}
		adaptiveStrategy.SetPersist(store.StrategyPersister())

		if records, err := store.LoadBudgetHistory(ctx); err != nil {
			log.Printf("Warning: could not load budget history: %v", err)
		} else {
			budgetEstimator.LoadHistory(records)
		}
		if outcomes, err := store.LoadPredictiveOutcomes(ctx); err != nil {
			log.Printf("Warning: could not load predictive history: %v", err)
		} else {
			predictiveEstimator.LoadOutcomes(outcomes)
		}

	default:
		historyDir = getEnv("HISTORY_DIR", filepath.Join(os.Getenv("HOME"), ".qwencode"))
		strategyPath := filepath.Join(historyDir, "adaptive_strategy.json")
		if outcomes, err := strategy.LoadJSONFile(strategyPath); err != nil {
			log.Printf("Warning: could not load strategy history: %v", err)
		} else {
			adaptiveStrategy.LoadHistory(outcomes)
		}
		adaptiveStrategy.SetPersist(strategy.JSONFilePersister(strategyPath))

		if records, err := estimator.LoadBudgetHistoryJSON(filepath.Join(historyDir, "budget_history.json")); err == nil {
			budgetEstimator.LoadHistory(records)
		}
		log.Printf("Using JSON-file history store under %s", historyDir)
	}

	llmBaseURL := getEnv("LLM_BASE_URL", "http://localhost:11434")
	llmModel := getEnv("LLM_MODEL", prefs.Preferences.PreferredModel)
	if llmModel == "" {
		llmModel = "qwen2.5-coder:7b"
	}
	client := llmclient.NewHTTPClient(llmBaseURL, llmModel)

	srv := apiserver.NewServer(apiserver.Config{
		Validator:  config.DefaultValidatorConfig(),
		Generation: config.DefaultGenerationConfig(),
		Scoring:    config.DefaultScoringConfig(),
		Client:     client,
		Strategy:   adaptiveStrategy,
		Budget:     budgetEstimator,
		Predictive: predictiveEstimator,
		LLMBaseURL: llmBaseURL,
		LLMModel:   llmModel,
	})

	httpPort := getEnv("HTTP_PORT", "8080")
	httpServer := &http.Server{
		Addr:    ":" + httpPort,
		Handler: srv.Router(),
	}

	go func() {
		log.Printf("HTTP server listening on :%s", httpPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during HTTP shutdown: %v", err)
	}

	if historyBackend == "postgres" && store != nil {
		if err := store.SaveBudgetHistory(shutdownCtx, budgetEstimator.History()); err != nil {
			log.Printf("Error saving budget history: %v", err)
		}
		if err := store.SavePredictiveOutcomes(shutdownCtx, predictiveEstimator.Outcomes()); err != nil {
			log.Printf("Error saving predictive history: %v", err)
		}
	} else if historyDir != "" {
		if err := estimator.SaveBudgetHistoryJSON(filepath.Join(historyDir, "budget_history.json"), budgetEstimator.History()); err != nil {
			log.Printf("Error saving budget history: %v", err)
		}
	}
}
