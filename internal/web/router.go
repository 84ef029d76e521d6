// Package web wires the local frontend's router: catalog, learn view,
// progress, auth and admin endpoints over the platform API client.
package web

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/englishstudent/client/internal/web/handlers"
	"github.com/englishstudent/client/internal/web/middleware"
)

// Handlers bundles the handler set the router mounts.
type Handlers struct {
	Auth    *handlers.AuthHandler
	Catalog *handlers.CatalogHandler
	Learn   *handlers.LearnHandler
	Admin   *handlers.AdminHandler
}

// NewRouter builds the frontend router with the shared middleware
// chain.
func NewRouter(h Handlers, logger *zap.Logger, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(allowedOrigins))
	r.Use(httprate.LimitByIP(100, time.Minute))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.Auth.Login)
		r.Post("/auth/register", h.Auth.Register)
		r.Post("/auth/logout", h.Auth.Logout)
		r.Get("/auth/me", h.Auth.Me)

		r.Get("/courses", h.Catalog.ListCourses)
		r.Get("/courses/{id}", h.Catalog.GetCourse)
		r.Get("/dashboard", h.Catalog.Dashboard)

		r.Get("/courses/{id}/learn", h.Learn.LearnView)
		r.Get("/materials/{id}/file", h.Learn.StreamMaterialFile)
		r.Post("/progress/{courseID}/{materialID}", h.Learn.MarkCompleted)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/courses", h.Admin.CreateCourse)
			r.Delete("/courses/{id}", h.Admin.DeleteCourse)
			r.Post("/courses/{id}/levels", h.Admin.CreateLevel)
			r.Delete("/levels/{id}", h.Admin.DeleteLevel)
			r.Get("/materials", h.Admin.ListMaterials)
			r.Post("/materials", h.Admin.UploadMaterial)
			r.Patch("/materials/{id}", h.Admin.AssignMaterial)
			r.Post("/materials/scan", h.Admin.ScanMaterials)
		})
	})

	return r
}
