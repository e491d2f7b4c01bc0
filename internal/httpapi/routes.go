package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/DoyleJ11/valorant-veto/internal/hub"
)

type Options struct {
	Logger *zap.Logger
	// JWTSecret enables bearer-token checks on every mutating route when set.
	// Room passkeys are only returned on create and to the signed-in admin.
	JWTSecret      []byte
	AllowedOrigins []string
}

func SetupRoutes(h *hub.Hub, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	g := guard{enabled: len(opts.JWTSecret) > 0}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(Authenticate(opts.JWTSecret))

	// Public routes
	r.Get("/healthz", Healthz)

	r.Route("/rooms", func(r chi.Router) {
		r.Get("/", ListRooms(h, g))
		r.Post("/", CreateRoom(h, g))
		r.Post("/join", JoinRoom(h, g))

		r.Route("/{code}", func(r chi.Router) {
			r.Get("/", GetRoom(h, g))
			r.Delete("/", DeleteRoom(h, g))
			r.Post("/start", StartVeto(h, g))
			r.Post("/ban", BanMap(h, g))
			r.Post("/side", SelectSide(h, g))
			r.Post("/reset", ResetVeto(h, g))
		})
	})

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		ExposedHeaders: []string{requestIDHeader},
	}).Handler(r)
}
