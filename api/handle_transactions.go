package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/lightlink-network/ll-withdrawal-engine/database/models"
)

// handleWithdrawalsByStatusGet lists audit-store withdrawals in a given
// status, e.g. CHALLENGEABLE or FINALIZED.
func (s *Server) handleWithdrawalsByStatusGet(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		ERROR(w, http.StatusServiceUnavailable, errors.New("audit history is not configured"))
		return
	}

	withdrawals, err := s.db.GetWithdrawalsByStatus(r.Context(), chi.URLParam(r, "status"))
	if err != nil {
		ERROR(w, http.StatusInternalServerError, err)
		return
	}

	JSON(w, http.StatusOK, withdrawals)
}

func (s *Server) handleTransactionsGet(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		ERROR(w, http.StatusServiceUnavailable, errors.New("audit history is not configured"))
		return
	}

	// Get query parameters
	page, err := strconv.ParseInt(r.URL.Query().Get("page"), 10, 64)
	if err != nil || page < 1 {
		page = 1
	}

	pageSize, err := strconv.ParseInt(r.URL.Query().Get("pageSize"), 10, 64)
	if err != nil || pageSize < 1 {
		pageSize = 10
	}

	// Build filter from query parameters
	filter := models.Filter{
		Status:  r.URL.Query().Get("status"),
		Account: r.URL.Query().Get("account"),
		Type:    r.URL.Query().Get("type"),
	}

	// Get transactions
	result, err := s.db.GetTransactions(r.Context(), filter, page, pageSize)
	if err != nil {
		ERROR(w, http.StatusInternalServerError, err)
		return
	}

	JSON(w, http.StatusOK, result)
}
