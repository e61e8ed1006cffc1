package registryapi

import (
	"net/http"
	"strings"

	"github.com/vbonduro/loteamento/internal/domain"
)

func (h *Handler) handleListBlocks(w http.ResponseWriter, r *http.Request) {
	blocks, err := h.blocks.List(r.Context())
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, blocks)
}

// handleSaveBlock creates a block or replaces the stored document with the
// posted one.
func (h *Handler) handleSaveBlock(w http.ResponseWriter, r *http.Request) {
	var b domain.Block
	if err := decodeJSON(w, r, &b); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return
	}
	b.ID = strings.TrimSpace(b.ID)
	if b.ID == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_block", "_id is required")
		return
	}
	for _, l := range b.Lots {
		if !l.Status.Valid() {
			h.writeError(w, http.StatusBadRequest, "invalid_status", "unknown lot status "+string(l.Status))
			return
		}
	}

	saved, err := h.blocks.Save(r.Context(), b)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.log.Debug("block saved", "block", saved.ID, "lots", len(saved.Lots))
	h.writeJSON(w, http.StatusOK, saved)
}

func (h *Handler) handleDeleteBlock(w http.ResponseWriter, r *http.Request) {
	if err := h.blocks.Delete(r.Context(), blockID(r)); err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAddLot appends a lot. A missing number is assigned after the highest
// existing one and a missing status defaults to vacant.
func (h *Handler) handleAddLot(w http.ResponseWriter, r *http.Request) {
	var lot domain.Lot
	if err := decodeJSON(w, r, &lot); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return
	}
	if lot.Status == "" {
		lot.Status = domain.StatusVacant
	}
	if !lot.Status.Valid() {
		h.writeError(w, http.StatusBadRequest, "invalid_status", "unknown lot status "+string(lot.Status))
		return
	}

	id := blockID(r)
	if lot.Number <= 0 {
		b, err := h.blocks.Get(r.Context(), id)
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}
		lot.Number = b.NextLotNumber()
	}

	updated, err := h.blocks.AddLot(r.Context(), id, lot)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleUpdateLotStatus(w http.ResponseWriter, r *http.Request) {
	number, err := lotNumber(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_lot", "lot number must be an integer")
		return
	}
	var body struct {
		Status domain.Status `json:"status"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return
	}
	if !body.Status.Valid() {
		h.writeError(w, http.StatusBadRequest, "invalid_status", "unknown lot status "+string(body.Status))
		return
	}

	updated, err := h.blocks.UpdateLotStatus(r.Context(), blockID(r), number, body.Status)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleUpdateOwner(w http.ResponseWriter, r *http.Request) {
	number, err := lotNumber(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_lot", "lot number must be an integer")
		return
	}
	var owner domain.Owner
	if err := decodeJSON(w, r, &owner); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return
	}

	updated, err := h.blocks.UpdateOwner(r.Context(), blockID(r), number, owner)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}
