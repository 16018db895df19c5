package api

import (
	"net/http"
	"strings"
	"time"

	"codearena/internal/api/handler"
	"codearena/internal/api/middleware"
	"codearena/internal/app/service"
	"codearena/internal/common"
	"codearena/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Services struct {
	Auth       *service.AuthService
	Problem    *service.ProblemService
	Submission *service.SubmissionService
	Jobs       *service.ExecutionJobService
	Playlist   *service.PlaylistService
}

type Options struct {
	FrontendURL    string
	Cookies        handler.CookieOptions
	RequestTimeout time.Duration
}

func NewRouter(svc Services, tokens *security.TokenManager, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chiMiddleware.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(chiMiddleware.Timeout(opts.RequestTimeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(opts.FrontendURL),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Reads the token from the accessToken cookie or "Authorization: Bearer T"
	// and puts the verification result in context.
	r.Use(middleware.Verifier(tokens))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		common.RespondWithData(w, http.StatusOK, "OK", map[string]string{"status": "up"})
	})

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Route("/auth", handler.NewAuthHandler(svc.Auth, opts.Cookies).RegisterRoutes)
		v1.Route("/problem", handler.NewProblemHandler(svc.Problem).RegisterRoutes)
		v1.Route("/code-evaluation", handler.NewSubmissionHandler(svc.Submission, svc.Jobs).RegisterRoutes)
		v1.Route("/playlist", handler.NewPlaylistHandler(svc.Playlist).RegisterRoutes)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		common.RespondWithError(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		common.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}

// allowedOrigins accepts a comma separated list.
func allowedOrigins(frontendURL string) []string {
	var origins []string
	for _, o := range strings.Split(frontendURL, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"http://localhost:5173"}
	}
	return origins
}
