package main

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/openchami/rack-manager/internal/inventory"
	reqlog "github.com/openchami/rack-manager/pkg/middleware"
)

func addEquipment(svc *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rackID, err := urlUUID(r, "rackID")
		if err != nil {
			renderError(w, r, err)
			return
		}
		var req inventory.EquipmentRequest
		if err := decodeValidated(r, equipmentRequestSchema, &req); err != nil {
			renderError(w, r, err)
			return
		}

		eq, err := svc.AddEquipment(rackID, req)
		if err != nil {
			renderError(w, r, err)
			return
		}

		reqlog.Logger(r.Context()).Info().
			Str("rack_id", rackID.String()).
			Str("equipment_id", eq.ID.String()).
			Str("name", eq.Name).
			Str("type", eq.Type.String()).
			Str("units", eq.UnitLabel()).
			Msg("Equipment added")

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, eq)
	}
}

func getEquipment(svc *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		equipmentID, err := urlUUID(r, "equipmentID")
		if err != nil {
			renderError(w, r, err)
			return
		}
		eq, err := svc.GetEquipment(equipmentID)
		if err != nil {
			renderError(w, r, err)
			return
		}
		render.JSON(w, r, eq)
	}
}

func updateEquipment(svc *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		equipmentID, err := urlUUID(r, "equipmentID")
		if err != nil {
			renderError(w, r, err)
			return
		}
		var req inventory.EquipmentUpdate
		if err := decodeJSON(r, &req); err != nil {
			renderError(w, r, err)
			return
		}

		eq, err := svc.UpdateEquipment(equipmentID, req)
		if err != nil {
			renderError(w, r, err)
			return
		}

		reqlog.Logger(r.Context()).Info().
			Str("equipment_id", eq.ID.String()).
			Str("units", eq.UnitLabel()).
			Msg("Equipment updated")
		render.JSON(w, r, eq)
	}
}

func resetPorts(svc *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		equipmentID, err := urlUUID(r, "equipmentID")
		if err != nil {
			renderError(w, r, err)
			return
		}
		var req inventory.ResetPortsRequest
		if err := decodeJSON(r, &req); err != nil {
			renderError(w, r, err)
			return
		}

		eq, err := svc.ResetPorts(equipmentID, req)
		if err != nil {
			renderError(w, r, err)
			return
		}

		reqlog.Logger(r.Context()).Warn().
			Str("equipment_id", eq.ID.String()).
			Int("port_count", eq.PortCount).
			Msg("Switch ports reset")
		render.JSON(w, r, eq)
	}
}

func deleteEquipment(svc *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rackID, err := urlUUID(r, "rackID")
		if err != nil {
			renderError(w, r, err)
			return
		}
		equipmentID, err := urlUUID(r, "equipmentID")
		if err != nil {
			renderError(w, r, err)
			return
		}
		if err := svc.DeleteEquipment(rackID, equipmentID); err != nil {
			renderError(w, r, err)
			return
		}
		reqlog.Logger(r.Context()).Info().
			Str("rack_id", rackID.String()).
			Str("equipment_id", equipmentID.String()).
			Msg("Equipment deleted")
		w.WriteHeader(http.StatusNoContent)
	}
}
