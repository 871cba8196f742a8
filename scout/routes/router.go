package routes

import (
	"net/http"
	"time"

	"scout/scout/config"
	"scout/scout/controllers"
	"scout/scout/utils/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter assembles the API. Crawl sessions run in the background, so the
// request timeout only bounds the handlers themselves.
func NewRouter(cfg config.Config, auth *controllers.AuthController, search *controllers.SearchController, pages *controllers.PageController, health *controllers.HealthController) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Mount("/health", HealthRoutes(health))
	r.Mount("/auth", AuthRoutes(auth))
	r.Group(SearchRoutes(search, pages, cfg))
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.RequestLogger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
