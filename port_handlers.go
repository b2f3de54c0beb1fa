package main

import (
	"net/http"
	"strconv"

	"github.com/go-chi/render"
	"github.com/openchami/rack-manager/internal/inventory"
	"github.com/openchami/rack-manager/pkg/eventlogger"
	"github.com/openchami/rack-manager/pkg/racks"
	reqlog "github.com/openchami/rack-manager/pkg/middleware"
)

func updateSwitchPort(svc *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		portID, err := urlUUID(r, "portID")
		if err != nil {
			renderError(w, r, err)
			return
		}
		var req inventory.PortUpdate
		if err := decodeJSON(r, &req); err != nil {
			renderError(w, r, err)
			return
		}

		port, err := svc.UpdateSwitchPort(portID, req)
		if err != nil {
			renderError(w, r, err)
			return
		}

		reqlog.Logger(r.Context()).Info().
			Str("port_id", port.ID.String()).
			Str("equipment_id", port.EquipmentID.String()).
			Int("port_number", port.PortNumber).
			Msg("Switch port updated")
		render.JSON(w, r, port)
	}
}

func addVirtualMachine(svc *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		equipmentID, err := urlUUID(r, "equipmentID")
		if err != nil {
			renderError(w, r, err)
			return
		}
		var req inventory.VirtualMachineRequest
		if err := decodeJSON(r, &req); err != nil {
			renderError(w, r, err)
			return
		}

		vm, err := svc.AddVirtualMachine(equipmentID, req)
		if err != nil {
			renderError(w, r, err)
			return
		}

		reqlog.Logger(r.Context()).Info().
			Str("vm_id", vm.ID.String()).
			Str("equipment_id", equipmentID.String()).
			Str("name", vm.Name).
			Msg("Virtual machine added")

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, vm)
	}
}

func updateVirtualMachine(svc *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vmID, err := urlUUID(r, "vmID")
		if err != nil {
			renderError(w, r, err)
			return
		}
		var req inventory.VirtualMachineUpdate
		if err := decodeJSON(r, &req); err != nil {
			renderError(w, r, err)
			return
		}

		vm, err := svc.UpdateVirtualMachine(vmID, req)
		if err != nil {
			renderError(w, r, err)
			return
		}
		render.JSON(w, r, vm)
	}
}

func deleteVirtualMachine(svc *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		equipmentID, err := urlUUID(r, "equipmentID")
		if err != nil {
			renderError(w, r, err)
			return
		}
		vmID, err := urlUUID(r, "vmID")
		if err != nil {
			renderError(w, r, err)
			return
		}
		if err := svc.DeleteVirtualMachine(equipmentID, vmID); err != nil {
			renderError(w, r, err)
			return
		}
		reqlog.Logger(r.Context()).Info().
			Str("vm_id", vmID.String()).
			Str("equipment_id", equipmentID.String()).
			Msg("Virtual machine deleted")
		w.WriteHeader(http.StatusNoContent)
	}
}

func listEvents(events EventSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				renderError(w, r, racks.InvalidInput("limit must be a positive integer, got %q", raw))
				return
			}
			limit = n
		}

		if events == nil {
			render.JSON(w, r, []eventlogger.Event{})
			return
		}
		recent, err := events.Recent(limit)
		if err != nil {
			renderError(w, r, err)
			return
		}
		render.JSON(w, r, recent)
	}
}
