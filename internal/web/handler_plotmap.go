package web

import (
	"net/http"
	"strconv"

	"github.com/vbonduro/loteamento/internal/domain"
	"github.com/vbonduro/loteamento/internal/plotmap"
)

const detailsAnchor = "/#detalhes-quadra"

func (s *Server) handlePlotMap(w http.ResponseWriter, r *http.Request) {
	pm := s.plotMap(w, r)
	totals := pm.Totals()
	byStatus := make(map[domain.Status]int, len(domain.Statuses))
	for _, st := range domain.Statuses {
		byStatus[st] = totals.ByStatus(st)
	}
	s.metrics.SetLotCounts(totals.Total, byStatus)

	if err := s.renderPage(w, buildPage(pm.State(), totals),
		"base.html", "pages/plotmap.html", "partials/map.html", "partials/block_detail.html", "partials/owner_panel.html",
	); err != nil {
		s.logger.Error("render page error", "error", err)
	}
}

// prompt answers a PlotMap dialog from the request. HTMX sends the text typed
// into hx-prompt as the HX-Prompt header; plain forms post it as field.
func prompt(r *http.Request, field string) plotmap.Answer {
	if v := r.Header.Get("HX-Prompt"); v != "" {
		return plotmap.Answer(v)
	}
	return plotmap.Answer(r.FormValue(field))
}

func (s *Server) handleCreateBlock(w http.ResponseWriter, r *http.Request) {
	pm := s.plotMap(w, r)
	added, err := pm.AddBlock(r.Context(), prompt(r, "nome"))
	if err != nil {
		s.logger.Error("create block error", "error", err)
	} else if !added {
		s.logger.Debug("create block cancelled")
	}
	redirect(w, r, "/")
}

func (s *Server) handleDeleteBlock(w http.ResponseWriter, r *http.Request) {
	pm := s.plotMap(w, r)
	if err := pm.DeleteBlock(r.Context(), r.PathValue("id")); err != nil {
		s.logger.Error("delete block error", "error", err)
	}
	redirect(w, r, "/")
}

func (s *Server) handleSelectBlock(w http.ResponseWriter, r *http.Request) {
	pm := s.plotMap(w, r)
	if !pm.Select(r.PathValue("id")) {
		redirect(w, r, "/")
		return
	}
	redirect(w, r, detailsAnchor)
}

func (s *Server) handleAddLot(w http.ResponseWriter, r *http.Request) {
	pm := s.plotMap(w, r)
	if err := pm.AddLot(r.Context(), r.PathValue("id")); err != nil {
		s.logger.Error("add lot error", "error", err)
	}
	redirect(w, r, detailsAnchor)
}

func (s *Server) handleUpdateLotStatus(w http.ResponseWriter, r *http.Request) {
	number, ok := parseNumber(w, r)
	if !ok {
		return
	}
	pm := s.plotMap(w, r)
	status := domain.Status(r.FormValue("status"))
	if err := pm.UpdateLotStatus(r.Context(), r.PathValue("id"), number, status); err != nil {
		s.logger.Error("update lot status error", "error", err)
	}
	redirect(w, r, detailsAnchor)
}

func (s *Server) handleDeleteLot(w http.ResponseWriter, r *http.Request) {
	number, ok := parseNumber(w, r)
	if !ok {
		return
	}
	pm := s.plotMap(w, r)
	if err := pm.DeleteLot(r.Context(), r.PathValue("id"), number); err != nil {
		s.logger.Error("delete lot error", "error", err)
	}
	redirect(w, r, detailsAnchor)
}

func (s *Server) handleLinkLot(w http.ResponseWriter, r *http.Request) {
	number, ok := parseNumber(w, r)
	if !ok {
		return
	}
	pm := s.plotMap(w, r)
	if _, err := pm.LinkLot(r.Context(), r.PathValue("id"), number, prompt(r, "outro")); err != nil {
		s.logger.Error("link lot error", "error", err)
	}
	redirect(w, r, detailsAnchor)
}

func (s *Server) handleToggleOwner(w http.ResponseWriter, r *http.Request) {
	number, ok := parseNumber(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	pm := s.plotMap(w, r)
	// Closing carries the panel's fields so an edit still waiting on the
	// debounced PUT is part of the save.
	if pm.State().PanelOpenFor(r.PathValue("id"), number) {
		applyDraft(pm, r)
	}
	if err := pm.ToggleOwnerPanel(r.Context(), r.PathValue("id"), number); err != nil {
		s.logger.Error("toggle owner panel error", "error", err)
	}
	redirect(w, r, detailsAnchor)
}

// handleEditDraft copies the posted owner fields into the open panel's draft.
// Nothing is sent to the registry until the panel closes, so the page is left
// as it is.
func (s *Server) handleEditDraft(w http.ResponseWriter, r *http.Request) {
	number, ok := parseNumber(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	pm := s.plotMap(w, r)
	if !pm.State().PanelOpenFor(r.PathValue("id"), number) {
		s.logger.Debug("draft edit for closed panel ignored", "block", r.PathValue("id"), "lot", number)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	applyDraft(pm, r)
	w.WriteHeader(http.StatusNoContent)
}

// applyDraft copies every owner field present in the parsed form into the
// open panel's draft.
func applyDraft(pm *plotmap.PlotMap, r *http.Request) {
	for _, f := range plotmap.OwnerFields {
		if vals, ok := r.PostForm[string(f)]; ok && len(vals) > 0 {
			pm.EditDraft(f, vals[0])
		}
	}
}

// parseNumber extracts the {numero} path variable, answering 400 when it is
// not an integer.
func parseNumber(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(r.PathValue("numero"))
	if err != nil {
		http.Error(w, "invalid lot number", http.StatusBadRequest)
		return 0, false
	}
	return n, true
}
