// YueBan 月度排班引擎服务
// 主程序入口

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/yueban/yueban/internal/config"
	"github.com/yueban/yueban/internal/database"
	"github.com/yueban/yueban/internal/handler"
	"github.com/yueban/yueban/internal/metrics"
	"github.com/yueban/yueban/internal/repository"
	"github.com/yueban/yueban/pkg/logger"
	"github.com/yueban/yueban/pkg/scheduler"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "YAML 配置文件路径")
	noDB := flag.Bool("no-db", false, "以无数据库模式运行（排班结果不落库）")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Str("env", cfg.App.Env).
		Msg("YueBan 排班引擎启动")

	// 仓储，无数据库模式下为 nil：名册仅来自请求体，排班结果不落库
	var employees repository.EmployeeRepository
	var schedules repository.ScheduleRepository
	if !*noDB {
		db, err := database.Connect(cfg.Database)
		if err != nil {
			logger.Error().Err(err).Msg("数据库连接失败，以无数据库模式继续")
		} else {
			defer db.Close()
			employees = repository.NewEmployeeRepository(db)
			schedules = repository.NewScheduleRepository(db)
		}
	}

	engine := scheduler.New()
	scheduleHandler := handler.NewScheduleHandler(engine, employees, schedules, cfg.Scheduler)
	employeeHandler := handler.NewEmployeeHandler(employees)

	mux := http.NewServeMux()

	// 系统端点
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"yueban"}`))
	})
	mux.HandleFunc("/version", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s","build_time":"%s","git_commit":"%s"}`, Version, BuildTime, GitCommit)
	})
	mux.Handle("/metrics", metrics.Handler())

	// API v1
	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"message": "YueBan 排班引擎 API v1",
			"endpoints": {
				"schedules": {
					"generate": "POST /api/v1/schedules/generate",
					"repair": "POST /api/v1/schedules/repair",
					"validate": "POST /api/v1/schedules/validate",
					"stats": "POST /api/v1/schedules/stats",
					"latest": "GET /api/v1/schedules/latest?year=&month="
				},
				"employees": {
					"list": "GET /api/v1/employees",
					"get": "GET /api/v1/employees/{id}"
				}
			}
		}`))
	})
	mux.HandleFunc("/api/v1/schedules/generate", scheduleHandler.Generate)
	mux.HandleFunc("/api/v1/schedules/repair", scheduleHandler.Repair)
	mux.HandleFunc("/api/v1/schedules/validate", scheduleHandler.Validate)
	mux.HandleFunc("/api/v1/schedules/stats", scheduleHandler.Stats)
	mux.HandleFunc("/api/v1/schedules/latest", scheduleHandler.Latest)
	mux.HandleFunc("GET /api/v1/employees", employeeHandler.List)
	mux.HandleFunc("GET /api/v1/employees/{id}", employeeHandler.Get)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      requestIDMiddleware(loggingMiddleware(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("url", fmt.Sprintf("http://localhost:%d", cfg.App.Port)).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("服务器启动失败")
			os.Exit(1)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
		os.Exit(1)
	}
	logger.Info().Msg("服务器已关闭")
}

type ctxKey string

const requestIDKey ctxKey = "request_id"

// requestIDMiddleware 请求ID追踪中间件
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware 日志中间件，同时记录HTTP指标
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID, _ := r.Context().Value(requestIDKey).(string)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		reg := metrics.Get()
		reg.Counter("yueban_http_requests_total").Inc(r.Method, r.URL.Path, fmt.Sprintf("%d", rw.statusCode))
		reg.Histogram("yueban_http_request_duration_seconds").Observe(duration.Seconds(), r.Method, r.URL.Path)

		logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Dur("duration", duration).
			Msg("HTTP请求")
	})
}

// responseWriter 包装以捕获状态码
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
