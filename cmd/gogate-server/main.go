// Command gogate-server runs the gateway as a standalone HTTP service.
//
// Configuration comes from the environment (a .env file is loaded when
// present):
//
//	DATABASE_URL         PostgreSQL connection string (required)
//	REDIS_ADDR           Redis address (required)
//	ACCESS_SECRET        hs256 access token secret (required)
//	REFRESH_SECRET       hs256 refresh token secret (required)
//	MODEL_DIR            directory of per-language lexicon weight files
//	SENTRY_DSN           optional Sentry DSN
//	PORT                 listen port, default 8080
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	goGate "github.com/InsightGuard/goGate"
	"github.com/InsightGuard/goGate/inference"
	"github.com/InsightGuard/goGate/middleware"
	"github.com/InsightGuard/goGate/postgres"
)

func main() {
	_ = godotenv.Load()

	logger := newLogger()

	databaseURL := mustEnv(logger, "DATABASE_URL")
	redisAddr := mustEnv(logger, "REDIS_ADDR")
	accessSecret := mustEnv(logger, "ACCESS_SECRET")
	refreshSecret := mustEnv(logger, "REFRESH_SECRET")
	modelDir := envOrDefault("MODEL_DIR", "models")
	port := envOrDefault("PORT", "8080")

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         dsn,
			Environment: envOrDefault("APP_ENV", "development"),
		}); err != nil {
			logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
		}
		defer sentry.Flush(2 * time.Second)
	}

	database, err := sql.Open("pgx", databaseURL)
	if err != nil {
		logger.Error("open_database_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer database.Close()

	if err := database.Ping(); err != nil {
		logger.Error("ping_database_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	if err := postgres.RunMigrations(database); err != nil {
		logger.Error("migrations_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Error("ping_redis_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	registry, err := inference.NewRegistry(nil, inference.DirLoader(modelDir))
	if err != nil {
		logger.Error("registry_init_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	cfg := goGate.DefaultConfig()
	cfg.JWT.AccessSecret = []byte(accessSecret)
	cfg.JWT.RefreshSecret = []byte(refreshSecret)
	cfg.Jail.Threshold = envIntOrDefault("JAIL_THRESHOLD", cfg.Jail.Threshold)
	cfg.Jail.JailTTL = envSecondsOrDefault("JAIL_TTL_SECONDS", cfg.Jail.JailTTL)
	cfg.RateLimit.Limit = envIntOrDefault("RATE_LIMIT", cfg.RateLimit.Limit)
	cfg.RateLimit.Window = envSecondsOrDefault("RATE_WINDOW_SECONDS", cfg.RateLimit.Window)
	cfg.Account.AutoLogin = os.Getenv("ACCOUNT_AUTO_LOGIN") == "true"
	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = true

	engine, err := goGate.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserDirectory(postgres.NewDirectory(database)).
		WithKeyStore(postgres.NewKeyStore(database)).
		WithInferenceRegistry(registry).
		WithAuditSink(goGate.NewJSONWriterSink(os.Stdout)).
		Build()
	if err != nil {
		logger.Error("engine_build_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer engine.Close()

	handler := buildRoutes(engine, database)
	addr := ":" + port

	logger.Info("server_start", map[string]any{"addr": addr})
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Error("server_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

func buildRoutes(engine *goGate.Engine, database *sql.DB) http.Handler {
	mux := http.NewServeMux()

	withAddr := middleware.ClientAddr()
	withJWT := middleware.RequireAccess(engine)
	withKey := middleware.RequireAPIKey(engine)

	mux.Handle("POST /auth/login", withAddr(http.HandlerFunc(loginHandler(engine))))
	mux.HandleFunc("POST /auth/refresh", refreshHandler(engine))
	mux.HandleFunc("POST /auth/register", registerHandler(engine))
	mux.Handle("GET /users/{identifier}", withJWT(http.HandlerFunc(fetchUserHandler(engine))))
	mux.Handle("PATCH /users/me", withJWT(http.HandlerFunc(updateUserHandler(engine))))
	mux.Handle("POST /keys", withJWT(http.HandlerFunc(createKeyHandler(engine))))
	mux.Handle("GET /keys", withJWT(http.HandlerFunc(listKeysHandler(engine))))
	mux.Handle("POST /predict", withKey(http.HandlerFunc(predictHandler(engine))))
	mux.HandleFunc("POST /password/strength", passwordStrengthHandler(engine))
	mux.HandleFunc("POST /password/generate", passwordGenerateHandler(engine))
	mux.HandleFunc("GET /health", healthHandler(database))

	return recoverPanics(mux)
}

// recoverPanics converts a handler panic into a plain 500 and reports it
// to Sentry when one is configured.
func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovered := recover(); recovered != nil {
				hub := sentry.CurrentHub().Clone()
				hub.Scope().SetRequest(r)
				hub.Recover(recovered)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// writeError reports infrastructure failures to Sentry before mapping the
// error onto an HTTP response. Client errors never reach Sentry.
func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, goGate.ErrStoreUnavailable) || errors.Is(err, goGate.ErrDirectoryUnavailable) {
		sentry.CaptureException(err)
	}
	middleware.WriteError(w, err)
}

func loginHandler(engine *goGate.Engine) http.HandlerFunc {
	type request struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}

		tokens, err := engine.Authorize(r.Context(), req.Identifier, req.Password)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"token_type":    "bearer",
		})
	}
}

func refreshHandler(engine *goGate.Engine) http.HandlerFunc {
	type request struct {
		RefreshToken string `json:"refresh_token"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}

		tokens, err := engine.Refresh(r.Context(), req.RefreshToken)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"token_type":    "bearer",
		})
	}
}

func registerHandler(engine *goGate.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req goGate.CreateAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}

		result, err := engine.CreateAccount(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}

		body := map[string]any{
			"id":       result.User.ID,
			"username": result.User.Username,
			"email":    result.User.Email,
		}
		if result.Tokens != nil {
			body["access_token"] = result.Tokens.AccessToken
			body["refresh_token"] = result.Tokens.RefreshToken
		}
		writeJSON(w, http.StatusCreated, body)
	}
}

func fetchUserHandler(engine *goGate.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := engine.FetchUser(r.Context(), r.PathValue("identifier"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":         user.ID,
			"username":   user.Username,
			"email":      user.Email,
			"full_name":  user.FullName,
			"company":    user.Company,
			"created_at": user.CreatedAt,
		})
	}
}

func updateUserHandler(engine *goGate.Engine) http.HandlerFunc {
	type request struct {
		FullName *string `json:"full_name"`
		Company  *string `json:"company"`
		Password *string `json:"password"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		subject, ok := middleware.SubjectFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}

		user, err := engine.UpdateAccount(r.Context(), subject, goGate.UpdateAccountRequest{
			FullName: req.FullName,
			Company:  req.Company,
			Password: req.Password,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":        user.ID,
			"username":  user.Username,
			"email":     user.Email,
			"full_name": user.FullName,
			"company":   user.Company,
		})
	}
}

func createKeyHandler(engine *goGate.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, ok := middleware.SubjectFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		record, err := engine.CreateKey(r.Context(), subject)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"id":  record.ID,
			"key": record.Key,
		})
	}
}

func listKeysHandler(engine *goGate.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, ok := middleware.SubjectFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		records, err := engine.UserKeys(r.Context(), subject)
		if err != nil {
			writeError(w, err)
			return
		}

		out := make([]map[string]any, 0, len(records))
		for _, record := range records {
			out = append(out, map[string]any{
				"id":         record.ID,
				"key":        record.Key,
				"usage":      record.Usage,
				"disabled":   record.Disabled,
				"created_at": record.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func predictHandler(engine *goGate.Engine) http.HandlerFunc {
	type request struct {
		Text     string `json:"text"`
		Language string `json:"lang"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}

		result, err := engine.Predict(r.Context(), r.Header.Get(middleware.APIKeyHeader), req.Text, req.Language)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"prediction": result.Prediction,
			"text":       result.Text,
			"lang":       result.Language,
		})
	}
}

func passwordStrengthHandler(engine *goGate.Engine) http.HandlerFunc {
	type request struct {
		Password string `json:"password"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}

		score, err := engine.PasswordStrength(r.Context(), r.Header.Get(middleware.APIKeyHeader), req.Password)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]float64{"strength": score})
	}
}

func passwordGenerateHandler(engine *goGate.Engine) http.HandlerFunc {
	type request struct {
		Length           int  `json:"length"`
		IncludeUppercase bool `json:"include_uppercase"`
		IncludeLowercase bool `json:"include_lowercase"`
		IncludeDigits    bool `json:"include_digits"`
		IncludeSpecial   bool `json:"include_special"`
		ExcludeSimilar   bool `json:"exclude_similar"`
		ExcludeAmbiguous bool `json:"exclude_ambiguous"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}

		generated, err := engine.GeneratePassword(r.Context(), r.Header.Get(middleware.APIKeyHeader), goGate.PasswordSpec{
			Length:           req.Length,
			IncludeUppercase: req.IncludeUppercase,
			IncludeLowercase: req.IncludeLowercase,
			IncludeDigits:    req.IncludeDigits,
			IncludeSpecial:   req.IncludeSpecial,
			ExcludeSimilar:   req.ExcludeSimilar,
			ExcludeAmbiguous: req.ExcludeAmbiguous,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"password": generated})
	}
}

func healthHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}
		if err := database.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
		writeJSON(w, status, body)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

/*
====================================
ENV + LOGGING
====================================
*/

type jsonLogger struct {
	out *json.Encoder
}

func newLogger() *jsonLogger {
	return &jsonLogger{out: json.NewEncoder(os.Stdout)}
}

func (l *jsonLogger) Info(message string, fields map[string]any)  { l.write("info", message, fields) }
func (l *jsonLogger) Error(message string, fields map[string]any) { l.write("error", message, fields) }

func (l *jsonLogger) write(level, message string, fields map[string]any) {
	payload := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"level":     level,
		"message":   message,
	}
	for k, v := range fields {
		payload[k] = v
	}
	_ = l.out.Encode(payload)
}

func mustEnv(logger *jsonLogger, name string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		logger.Error("missing_required_env", map[string]any{"name": name})
		os.Exit(1)
	}
	return value
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envIntOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envSecondsOrDefault(name string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return time.Duration(parsed) * time.Second
}
