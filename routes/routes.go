package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nufflezone/tournament-registry/handlers"
	"github.com/nufflezone/tournament-registry/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Handlers struct {
	Auth         *handlers.AuthHandler
	Tournament   *handlers.TournamentHandler
	Registration *handlers.RegistrationHandler
	WebSocket    *handlers.WebSocketHandler
}

func SetupRoutes(router *chi.Mux, h Handlers, auth *middleware.AuthMiddleware, allowedOrigins []string) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Get("/me", h.Auth.Me)
		})
	})

	router.Route("/tournaments", func(r chi.Router) {
		// Reads honor an identity when one is presented so organizers can see
		// their private tournaments.
		r.Group(func(r chi.Router) {
			r.Use(auth.AuthenticateOptional)
			r.Get("/", h.Tournament.List)
			r.Get("/{tournamentID}", h.Tournament.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Post("/", h.Tournament.Create)
			r.Patch("/{tournamentID}", h.Tournament.Update)
			r.Delete("/{tournamentID}", h.Tournament.Delete)
			r.Put("/{tournamentID}/logo", h.Tournament.UploadLogo)
			r.Delete("/{tournamentID}/logo", h.Tournament.DeleteLogo)
		})

		r.Route("/{tournamentID}/registrations", func(r chi.Router) {
			// Anonymous coaches can register and look themselves up.
			r.Group(func(r chi.Router) {
				r.Use(auth.AuthenticateOptional)
				r.Post("/", h.Registration.Create)
				r.Get("/lookup", h.Registration.Lookup)
			})

			r.Group(func(r chi.Router) {
				r.Use(auth.Authenticate)
				r.Get("/", h.Registration.List)
				r.Get("/{registrationID}", h.Registration.Get)
				r.Patch("/{registrationID}", h.Registration.Update)
				r.Delete("/{registrationID}", h.Registration.Delete)
			})
		})
	})

	router.Group(func(r chi.Router) {
		r.Use(auth.AuthenticateOptional)
		r.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)
	})
}
