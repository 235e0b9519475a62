package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/lightlink-network/ll-withdrawal-engine/engine"
)

func (s *Server) handleDepositPost(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Account string `json:"account"`
		Amount  string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	amount, err := parseAmount(payload.Amount)
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	account, err := s.engine.Deposit(common.HexToAddress(payload.Account), amount)
	if err != nil {
		ERROR(w, statusForError(err), err)
		return
	}

	JSON(w, http.StatusCreated, map[string]interface{}{
		"account": account.Address.Hex(),
		"balance": account.Balance.String(),
		"nonce":   account.Nonce,
	})
}

func (s *Server) handleCommitmentPost(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Root string `json:"root"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	seq := s.engine.PublishCommitment(common.HexToHash(payload.Root))

	JSON(w, http.StatusCreated, map[string]interface{}{
		"commitment_seq": seq,
		"root":           payload.Root,
	})
}

// handleCommitmentGet reads from the engine first and falls back to the audit
// store for commitments published before the last restart.
func (s *Server) handleCommitmentGet(w http.ResponseWriter, r *http.Request) {
	seq, err := strconv.ParseUint(chi.URLParam(r, "seq"), 10, 64)
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	root, err := s.engine.Commitment(seq)
	if err == nil {
		JSON(w, http.StatusOK, map[string]interface{}{
			"commitment_seq": seq,
			"root":           root.Hex(),
		})
		return
	}
	if errors.Is(err, engine.ErrUnknownCommitment) && s.db != nil {
		if record, dbErr := s.db.GetCommitment(r.Context(), seq); dbErr == nil {
			JSON(w, http.StatusOK, record)
			return
		}
	}

	ERROR(w, statusForError(err), err)
}

func (s *Server) handleAccountGet(w http.ResponseWriter, r *http.Request) {
	account := s.engine.GetAccount(common.HexToAddress(chi.URLParam(r, "address")))

	JSON(w, http.StatusOK, map[string]interface{}{
		"account": account.Address.Hex(),
		"balance": account.Balance.String(),
		"nonce":   account.Nonce,
	})
}

func (s *Server) handleVolumeGet(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"daily_volume": s.engine.DailyVolume().String(),
	})
}
