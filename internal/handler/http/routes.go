package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID)
	router.Use(h.withLogging)
	router.Use(withGZip)

	// routes without authorization
	router.Group(func(r chi.Router) {
		r.Post("/api/auth/register", h.register)
		r.Post("/api/auth/salt", h.salt)
		r.Post("/api/auth/login", h.login)
		r.Post("/api/auth/verify-2fa", h.verifyTwoFactor)
		r.Post("/api/auth/refresh", h.refresh)
		r.Post("/api/auth/recover", h.recover)
	})

	// routes behind a valid access token
	router.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Post("/api/auth/logout", h.logout)
		r.Post("/api/auth/2fa/setup", h.setupTwoFactor)
		r.Post("/api/auth/2fa/enable", h.enableTwoFactor)

		r.Post("/api/groups/{groupID}/rotate-key", h.rotateGroupKey)
		r.Get("/api/groups/{groupID}/key", h.groupMemberKey)
	})

	router.MethodNotAllowed(maskUnknownMethods(router))

	return router
}
