package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/sujitmemane/bites/internal/api/v1"
	"github.com/sujitmemane/bites/internal/auth"
	"github.com/sujitmemane/bites/internal/store/postgres"
	"github.com/sujitmemane/bites/internal/ws"
)

func registerAuthRoutes(api huma.API, store *postgres.Store, authSvc *auth.Service) {
	v1.RegisterAuthRoutes(api, store, authSvc)
}

func registerAPIRoutes(api huma.API, store *postgres.Store, notifier v1.Notifier) {
	v1.RegisterUserRoutes(api, store)
	v1.RegisterBoardRoutes(api, store)
	v1.RegisterColumnRoutes(api, store, notifier)
	v1.RegisterTaskRoutes(api, store, notifier)
}

func registerWSRoutes(r chi.Router, gateway *ws.Gateway) {
	r.Get("/boards", gateway.ServeBoards)
}
