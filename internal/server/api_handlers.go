package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aristath/arduino-watcher/internal/clients/eastmoney"
	"github.com/aristath/arduino-watcher/internal/domain"
	"github.com/aristath/arduino-watcher/internal/formula"
)

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) handleStoreErr(w http.ResponseWriter, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.writeError(w, http.StatusInternalServerError, err.Error())
}

// -- tasks --

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.store.ListTasks()
	if err != nil {
		s.handleStoreErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var t domain.Task
	if !s.decodeBody(w, r, &t) {
		return
	}
	if err := s.store.CreateTask(&t); err != nil {
		s.handleStoreErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, err := s.store.GetTask(id)
	if err != nil {
		s.handleStoreErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var t domain.Task
	if !s.decodeBody(w, r, &t) {
		return
	}
	t.ID = chi.URLParam(r, "id")
	if err := s.store.UpdateTask(&t); err != nil {
		s.handleStoreErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTask(chi.URLParam(r, "id")); err != nil {
		s.handleStoreErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// -- alerts --

func (s *Server) handleListAlertRules(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.store.ListAlertRules()
	if err != nil {
		s.handleStoreErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleCreateAlertRule(w http.ResponseWriter, r *http.Request) {
	var a domain.AlertRule
	if !s.decodeBody(w, r, &a) {
		return
	}
	if err := s.store.CreateAlertRule(&a); err != nil {
		s.handleStoreErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleDeleteAlertRule(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteAlertRule(chi.URLParam(r, "id")); err != nil {
		s.handleStoreErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// -- indicators --

func (s *Server) handleListIndicators(w http.ResponseWriter, r *http.Request) {
	inds, err := s.store.ListIndicators()
	if err != nil {
		s.handleStoreErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, inds)
}

func (s *Server) handleCreateIndicator(w http.ResponseWriter, r *http.Request) {
	var ind domain.Indicator
	if !s.decodeBody(w, r, &ind) {
		return
	}
	if err := s.store.CreateIndicator(&ind); err != nil {
		s.handleStoreErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, ind)
}

func (s *Server) handleUpdateIndicator(w http.ResponseWriter, r *http.Request) {
	var ind domain.Indicator
	if !s.decodeBody(w, r, &ind) {
		return
	}
	ind.ID = chi.URLParam(r, "id")
	if err := s.store.UpdateIndicator(&ind); err != nil {
		s.handleStoreErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ind)
}

func (s *Server) handleDeleteIndicator(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteIndicator(chi.URLParam(r, "id")); err != nil {
		s.handleStoreErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEvaluateIndicator(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	results, err := s.store.EvaluateIndicatorNow(id, s.bars)
	if err != nil {
		s.handleStoreErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

// -- watchlist --

func (s *Server) handleListWatchlist(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListWatchlistItems()
	if err != nil {
		s.handleStoreErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateWatchlistItem(w http.ResponseWriter, r *http.Request) {
	var item domain.WatchlistItem
	if !s.decodeBody(w, r, &item) {
		return
	}
	if err := s.store.CreateWatchlistItem(&item); err != nil {
		s.handleStoreErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleDeleteWatchlistItem(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteWatchlistItem(chi.URLParam(r, "id")); err != nil {
		s.handleStoreErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// -- messages --

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := s.store.ListMessages()
	if err != nil {
		s.handleStoreErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, messages)
}

func (s *Server) handleMarkMessageRead(w http.ResponseWriter, r *http.Request) {
	if err := s.store.MarkMessageRead(chi.URLParam(r, "id")); err != nil {
		s.handleStoreErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// -- schedule logs --

func (s *Server) handleListScheduleLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.store.ListScheduleLogs(chi.URLParam(r, "id"))
	if err != nil {
		s.handleStoreErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, logs)
}

// -- knowledge --

func (s *Server) handleCreateKnowledge(w http.ResponseWriter, r *http.Request) {
	var k domain.KnowledgeEntry
	if !s.decodeBody(w, r, &k) {
		return
	}
	if err := s.store.CreateKnowledge(&k); err != nil {
		s.handleStoreErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, k)
}

func (s *Server) handleSearchKnowledge(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "missing q query parameter")
		return
	}
	results, err := s.store.SearchKnowledge(query, 20)
	if err != nil {
		s.handleStoreErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

// -- market data --

func (s *Server) handleMarketQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := s.client.FetchQuote(chi.URLParam(r, "symbol"))
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, quote)
}

func (s *Server) handleMarketSearch(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("q")
	if keyword == "" {
		s.writeError(w, http.StatusBadRequest, "missing q query parameter")
		return
	}
	results, err := s.client.SearchStocks(keyword)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleMarketLimit(w http.ResponseWriter, r *http.Request) {
	var limitType eastmoney.LimitType
	switch chi.URLParam(r, "type") {
	case "up":
		limitType = eastmoney.LimitUp
	case "down":
		limitType = eastmoney.LimitDown
	default:
		s.writeError(w, http.StatusBadRequest, "type must be up or down")
		return
	}
	quotes, err := s.client.FetchLimitStocks(limitType)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, quotes)
}

// -- formulas --

func (s *Server) handleValidateFormula(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Source string `json:"source"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	s.writeJSON(w, http.StatusOK, formula.Validate(req.Source))
}
