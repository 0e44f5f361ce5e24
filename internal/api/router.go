package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter assembles the route tree and the middleware stack around it.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Request id first so every later stage logs with it.
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)
	r.Use(s.metricsMiddleware)

	// Unversioned health probe for supervisors and load balancers.
	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		// Aggregate read surface
		r.Get("/state", s.handleGetState)

		// Exposure configuration
		r.Put("/mode", s.handleSetMode)
		r.Route("/filter", func(r chi.Router) {
			r.Patch("/", s.handleUpdateFilter)
			r.Put("/mode", s.handleSetFilterMode)
			r.Put("/domains", s.handleSetDomains)
		})
		r.Post("/overrides/toggle", s.handleToggleOverride)
		r.Put("/aliases", s.handleSetAliases)
		r.Post("/bulk", s.handleBulkUpdate)
		r.Put("/settings/{assistant}", s.handleUpdateSettings)
		r.Post("/save", s.handleSaveAll)

		// Generated artifacts
		r.Route("/artifacts", func(r chi.Router) {
			r.Get("/preview", s.handlePreviewArtifacts)
			r.Post("/write", s.handleWriteArtifacts)
		})

		// HomeKit bridge
		r.Get("/bridges", s.handleListBridges)
		r.Route("/bridge", func(r chi.Router) {
			r.Put("/", s.handleSetBridge)
			r.Post("/push", s.handlePushToBridge)
			r.Post("/pull", s.handlePullFromBridge)
		})

		// Hub service passthroughs
		r.Route("/system", func(r chi.Router) {
			r.Post("/check-config", s.handleCheckConfig)
			r.Post("/restart", s.handleRestartHub)
		})

		// Audit trail
		r.Get("/audit", s.handleListAuditLogs)
	})

	return r
}
