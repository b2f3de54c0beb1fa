package main

import (
	"net/http"
	"strconv"

	"github.com/go-chi/render"
	"github.com/openchami/rack-manager/internal/export"
	"github.com/openchami/rack-manager/internal/inventory"
	"github.com/openchami/rack-manager/pkg/racks"
	reqlog "github.com/openchami/rack-manager/pkg/middleware"
)

func listRacks(svc *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summaries, err := svc.ListRacks()
		if err != nil {
			renderError(w, r, err)
			return
		}
		render.JSON(w, r, summaries)
	}
}

func createRack(svc *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req inventory.RackRequest
		if err := decodeValidated(r, rackRequestSchema, &req); err != nil {
			renderError(w, r, err)
			return
		}

		rack, err := svc.CreateRack(req)
		if err != nil {
			renderError(w, r, err)
			return
		}

		reqlog.Logger(r.Context()).Info().
			Str("rack_id", rack.ID.String()).
			Str("name", rack.Name).
			Str("location", rack.Location).
			Int("total_units", rack.TotalUnits).
			Msg("Rack created")

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, rack)
	}
}

func getRack(svc *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rackID, err := urlUUID(r, "rackID")
		if err != nil {
			renderError(w, r, err)
			return
		}
		rack, err := svc.GetRack(rackID)
		if err != nil {
			renderError(w, r, err)
			return
		}
		render.JSON(w, r, rack)
	}
}

func updateRack(svc *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rackID, err := urlUUID(r, "rackID")
		if err != nil {
			renderError(w, r, err)
			return
		}
		var req inventory.RackUpdate
		if err := decodeJSON(r, &req); err != nil {
			renderError(w, r, err)
			return
		}

		rack, err := svc.UpdateRack(rackID, req)
		if err != nil {
			renderError(w, r, err)
			return
		}

		reqlog.Logger(r.Context()).Info().
			Str("rack_id", rack.ID.String()).
			Int("total_units", rack.TotalUnits).
			Msg("Rack updated")
		render.JSON(w, r, rack)
	}
}

func deleteRack(svc *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rackID, err := urlUUID(r, "rackID")
		if err != nil {
			renderError(w, r, err)
			return
		}
		if err := svc.DeleteRack(rackID); err != nil {
			renderError(w, r, err)
			return
		}
		reqlog.Logger(r.Context()).Info().Str("rack_id", rackID.String()).Msg("Rack deleted")
		w.WriteHeader(http.StatusNoContent)
	}
}

// FreeUnits is the response of GET /api/racks/{rackID}/free.
type FreeUnits struct {
	Free     []racks.UnitRange `json:"free"`
	Size     int               `json:"size,omitempty"`
	FirstFit int               `json:"firstFit,omitempty"`
}

func freeUnits(svc *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rackID, err := urlUUID(r, "rackID")
		if err != nil {
			renderError(w, r, err)
			return
		}

		free, err := svc.FreeRanges(rackID)
		if err != nil {
			renderError(w, r, err)
			return
		}
		resp := FreeUnits{Free: free}
		if resp.Free == nil {
			resp.Free = []racks.UnitRange{}
		}

		if raw := r.URL.Query().Get("size"); raw != "" {
			size, err := strconv.Atoi(raw)
			if err != nil {
				renderError(w, r, racks.InvalidInput("size must be an integer, got %q", raw))
				return
			}
			position, err := svc.FirstFit(rackID, size)
			if err != nil {
				renderError(w, r, err)
				return
			}
			resp.Size = size
			resp.FirstFit = position
		}

		render.JSON(w, r, resp)
	}
}

func exportRack(svc *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rackID, err := urlUUID(r, "rackID")
		if err != nil {
			renderError(w, r, err)
			return
		}
		format, err := export.ParseFormat(r.URL.Query().Get("format"))
		if err != nil {
			renderError(w, r, err)
			return
		}
		rack, err := svc.GetRack(rackID)
		if err != nil {
			renderError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Content-Disposition", "attachment; filename="+format.Filename(rack))
		if err := export.Write(w, format, rack); err != nil {
			// Headers are already sent; the client sees a truncated file.
			reqlog.Logger(r.Context()).Error().Err(err).Str("rack_id", rackID.String()).Msg("Export failed")
		}
	}
}
