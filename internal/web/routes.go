package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/database"
	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/extract"
	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/identity"
	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/web/handlers"
)

func (s *Server) setupRoutes(store database.Store, idSvc *identity.Service, extractSvc *extract.Service) {
	identityHandler := handlers.NewIdentityHandler(idSvc, store)
	runsHandler := handlers.NewRunsHandler(s.config, extractSvc, idSvc, s.jobManager)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Stats
		r.Get("/stats", identityHandler.Stats)

		// Persons
		r.Get("/persons", identityHandler.ListPersons)
		r.Get("/persons/{id}/faces", identityHandler.PersonFaces)
		r.Put("/persons/{id}", identityHandler.RenamePerson)
		r.Delete("/persons/unconfirmed", identityHandler.DeleteUnconfirmedPersons)
		r.Delete("/persons/{id}", identityHandler.DeletePerson)

		// Faces
		r.Post("/faces/{id}/confirm", identityHandler.ConfirmFace)
		r.Get("/faces/{id}/similar", identityHandler.SimilarFaces)
		r.Delete("/faces/unconfirmed", identityHandler.DeleteUnconfirmedFaces)

		// Long-running runs
		r.Post("/extract", runsHandler.StartExtraction)
		r.Post("/recluster", runsHandler.StartRecluster)
		r.Get("/jobs/{jobId}", runsHandler.JobStatus)
	})
}
