package core

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	ex "stockdash/extensions"
	m "stockdash/models"
)

const (
	DefaultAddr      = ":8080"
	DefaultStartDate = "2022-01-01"
)

type ServerSettings struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

func GetHttpServer(sc *ServiceContext, settings ServerSettings) *http.Server {
	if settings.Addr == "" {
		settings.Addr = DefaultAddr
	}
	if settings.ReadTimeout == 0 {
		settings.ReadTimeout = 10 * time.Second
	}
	if settings.WriteTimeout == 0 {
		settings.WriteTimeout = 60 * time.Second
	}

	server := &http.Server{
		Addr:           settings.Addr,
		Handler:        GetRouter(sc, settings.AllowedOrigins...),
		ReadTimeout:    settings.ReadTimeout,
		WriteTimeout:   settings.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	return server
}

// GetRouter wires every endpoint, split out from the server so tests can hit it directly.
// CORS is only installed when at least one origin is allowed.
func GetRouter(sc *ServiceContext, allowedOrigins ...string) http.Handler {
	router := chi.NewRouter()
	if len(allowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           int((12 * time.Hour).Seconds()),
		}))
	}
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(sc))
	router.Use(middleware.Recoverer)

	router.Get("/api/ping", ping)
	router.Get("/api/analysis", func(w http.ResponseWriter, r *http.Request) { analysis(w, r, sc) })

	return router
}

func ping(w http.ResponseWriter, r *http.Request) {
	writeJson(w, http.StatusOK, m.GetServiceResponseOk(&m.PingResponse{Message: "pong"}))
}

func analysis(w http.ResponseWriter, r *http.Request, sc *ServiceContext) {
	req, err := parseAnalysisQuery(r, sc.RiskFreeRate)
	if err != nil {
		writeError(w, err)
		return
	}

	// request scoped, a client hanging up cancels the fetches
	requestContext := *sc
	requestContext.Context = r.Context()

	res, err := requestContext.RunAnalysis(req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, http.StatusOK, m.GetServiceResponseOk(res))
}

func parseAnalysisQuery(r *http.Request, defaultRiskFreeRate float64) (m.AnalysisRequest, error) {
	q := r.URL.Query()

	symbols := ParseSymbols(q.Get("symbols"))

	startStr := q.Get("start")
	if startStr == "" {
		startStr = DefaultStartDate
	}
	start, err := ex.ParseShort(startStr)
	if err != nil {
		return m.AnalysisRequest{}, newPipelineError(InputError, err, "invalid start date")
	}

	end := time.Now()
	if endStr := q.Get("end"); endStr != "" {
		if end, err = ex.ParseShort(endStr); err != nil {
			return m.AnalysisRequest{}, newPipelineError(InputError, err, "invalid end date")
		}
	}

	riskFreeRate := defaultRiskFreeRate
	if rfStr := strings.TrimSpace(q.Get("riskFreeRate")); rfStr != "" {
		if riskFreeRate, err = strconv.ParseFloat(rfStr, 64); err != nil {
			return m.AnalysisRequest{}, newPipelineError(InputError, err, "invalid risk free rate %q", rfStr)
		}
	}

	return NewAnalysisRequest(symbols, start, end, riskFreeRate)
}

func statusForKind(kind ErrorKind) int {
	switch kind {
	case InputError:
		return http.StatusBadRequest
	case NoDataError:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind := KindOf(err)
	writeJson(w, statusForKind(kind), m.GetServiceResponseError(kind.Name(), err.Error()))
}

func writeJson(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func requestLogger(sc *ServiceContext) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			sc.logger().WithFields(map[string]any{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start).String(),
				"request_id": middleware.GetReqID(r.Context()),
			}).Info("handled request")
		})
	}
}
