package http

import (
	"net/http"

	"github.com/atinyakov/GophTodo/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs the GophTodo API handler.
//
// Routes:
//
//	POST   /api/register             authHandler.Register (no certificate required)
//	POST   /api/login                authHandler.Login
//	POST   /api/profile              todoHandler.InitProfile
//	GET    /api/profile              todoHandler.GetProfile
//	POST   /api/todos                todoHandler.Add
//	GET    /api/todos                todoHandler.List
//	GET    /api/todos/{index}        todoHandler.Get
//	POST   /api/todos/{index}/mark   todoHandler.Mark
//	DELETE /api/todos/{index}        todoHandler.Remove
//
// Middleware chain (applied in order): JSON content type, request logging, CertAuth.
func NewRouter(
	authHandler *AuthHandler,
	todoHandler *TodoHandler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(middleware.CertAuth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)

		r.Post("/profile", todoHandler.InitProfile)
		r.Get("/profile", todoHandler.GetProfile)

		r.Post("/todos", todoHandler.Add)
		r.Get("/todos", todoHandler.List)
		r.Get("/todos/{index}", todoHandler.Get)
		r.Post("/todos/{index}/mark", todoHandler.Mark)
		r.Delete("/todos/{index}", todoHandler.Remove)
	})

	return r
}
