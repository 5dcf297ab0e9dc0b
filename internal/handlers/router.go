package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/qcom/intake/internal/metrics"
	"github.com/qcom/intake/internal/middleware"
	"github.com/sirupsen/logrus"
)

// RouterConfig collects everything NewRouter mounts.
type RouterConfig struct {
	Form           *FormHandlers
	OTP            *OTPHandlers
	Upload         *UploadHandlers
	Admin          *AdminHandlers
	Advertisements *AdvertisementHandlers
	Health         *HealthHandlers

	Auth           *middleware.AuthMiddleware
	IPLimiter      *middleware.IPRateLimiter
	Proxies        *middleware.TrustedProxies
	AllowedOrigins []string

	// UploadsDir and UploadsPath serve locally stored files. Both are empty
	// when uploads go to object storage.
	UploadsDir  string
	UploadsPath string
}

func NewRouter(cfg RouterConfig, logger *logrus.Logger) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	router.Use(middleware.LoggingMiddleware(logger, cfg.Proxies))
	router.Use(middleware.MetricsMiddleware)

	router.HandleFunc("/health", cfg.Health.Health).Methods("GET")
	router.Handle("/metrics", metrics.Handler()).Methods("GET")

	if cfg.UploadsDir != "" && cfg.UploadsPath != "" {
		prefix := strings.TrimRight(cfg.UploadsPath, "/") + "/"
		router.PathPrefix(prefix).Handler(
			http.StripPrefix(prefix, noDirListing(http.FileServer(http.Dir(cfg.UploadsDir)))),
		).Methods("GET", "HEAD")
	}

	api := router.PathPrefix("/api/v1").Subrouter()

	public := api.NewRoute().Subrouter()
	if cfg.IPLimiter != nil {
		public.Use(cfg.IPLimiter.Middleware)
	}
	public.HandleFunc("/form", cfg.Form.Submit).Methods("POST", "OPTIONS")
	public.HandleFunc("/otp/request", cfg.OTP.RequestCode).Methods("POST", "OPTIONS")
	public.HandleFunc("/otp/verify", cfg.OTP.VerifyCode).Methods("POST", "OPTIONS")
	public.HandleFunc("/upload", cfg.Upload.Upload).Methods("POST", "OPTIONS")
	public.HandleFunc("/admin/login", cfg.Admin.Login).Methods("POST", "OPTIONS")

	api.HandleFunc("/advertisements", cfg.Advertisements.ListActive).Methods("GET", "OPTIONS")
	api.HandleFunc("/admin/logout", cfg.Admin.Logout).Methods("POST", "OPTIONS")

	ads := api.PathPrefix("/advertisements").Subrouter()
	ads.Use(cfg.Auth.RequireAdmin)
	ads.HandleFunc("", cfg.Advertisements.Create).Methods("POST", "OPTIONS")
	ads.HandleFunc("/{id}", cfg.Advertisements.Update).Methods("PUT", "OPTIONS")
	ads.HandleFunc("/{id}", cfg.Advertisements.Delete).Methods("DELETE", "OPTIONS")

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(cfg.Auth.RequireAdmin)
	admin.HandleFunc("/me", cfg.Admin.Me).Methods("GET", "OPTIONS")
	admin.HandleFunc("/dashboard", cfg.Admin.Dashboard).Methods("GET", "OPTIONS")
	admin.HandleFunc("/submissions", cfg.Admin.ListSubmissions).Methods("GET", "OPTIONS")
	admin.HandleFunc("/submissions", cfg.Admin.UpdateSubmission).Methods("PUT", "OPTIONS")
	admin.HandleFunc("/submissions/{id}", cfg.Admin.GetSubmission).Methods("GET", "OPTIONS")
	admin.HandleFunc("/submissions/{id}", cfg.Admin.UpdateSubmission).Methods("PUT", "OPTIONS")
	admin.HandleFunc("/advertisements", cfg.Advertisements.ListAll).Methods("GET", "OPTIONS")

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Route not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	})

	return router
}

func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			respondWithError(w, http.StatusNotFound, "NOT_FOUND", "File not found")
			return
		}
		next.ServeHTTP(w, r)
	})
}
