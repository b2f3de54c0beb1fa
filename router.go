package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/openchami/rack-manager/internal/inventory"
	"github.com/openchami/rack-manager/pkg/eventlogger"
	reqlog "github.com/openchami/rack-manager/pkg/middleware"
	"github.com/rs/zerolog"
)

// EventSource serves the audit trail for GET /api/events.
type EventSource interface {
	Recent(limit int) ([]eventlogger.Event, error)
}

// NewRouter mounts the inventory API under /api. events may be nil.
func NewRouter(svc *inventory.Service, events EventSource, logger zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(reqlog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/test", apiTest)

		r.Route("/racks", func(r chi.Router) {
			r.Get("/", listRacks(svc))
			r.Post("/", createRack(svc))
			r.Get("/{rackID}", getRack(svc))
			r.Put("/{rackID}", updateRack(svc))
			r.Delete("/{rackID}", deleteRack(svc))
			r.Get("/{rackID}/free", freeUnits(svc))
			r.Get("/{rackID}/export", exportRack(svc))
		})

		r.Route("/equipment", func(r chi.Router) {
			r.Post("/{rackID}", addEquipment(svc))
			r.Get("/{equipmentID}", getEquipment(svc))
			r.Put("/{equipmentID}", updateEquipment(svc))
			r.Post("/{equipmentID}/ports/reset", resetPorts(svc))
			r.Delete("/{rackID}/{equipmentID}", deleteEquipment(svc))
		})

		r.Put("/switch-ports/{portID}", updateSwitchPort(svc))

		r.Route("/virtual-machines", func(r chi.Router) {
			r.Post("/{equipmentID}", addVirtualMachine(svc))
			r.Put("/{vmID}", updateVirtualMachine(svc))
			r.Delete("/{equipmentID}/{vmID}", deleteVirtualMachine(svc))
		})

		r.Get("/events", listEvents(events))
	})

	return r
}

func apiTest(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"message": "Rack manager API is running"})
}

// urlUUID parses the named chi URL parameter.
func urlUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errMalformedID(name, err)
	}
	return id, nil
}

// renderError writes err as an ErrResponse and logs server-side failures.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrFromError(err)
	logger := reqlog.Logger(r.Context())
	if resp.HTTPStatusCode >= http.StatusInternalServerError {
		logger.Error().Err(err).Msg("Request failed")
	} else {
		logger.Debug().Err(err).Str("code", resp.Code).Msg("Request rejected")
	}
	render.Render(w, r, resp)
}
