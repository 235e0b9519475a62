package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/lightlink-network/ll-withdrawal-engine/engine"
	"github.com/lightlink-network/ll-withdrawal-engine/merkle"
)

// Amounts cross the API as decimal strings to avoid JSON number precision
// loss on 256-bit values.
type proofPayload struct {
	Index    uint64   `json:"index"`
	Siblings []string `json:"siblings"`
}

func (p proofPayload) toProof() merkle.Proof {
	proof := merkle.Proof{Index: p.Index}
	for _, s := range p.Siblings {
		proof.Siblings = append(proof.Siblings, common.HexToHash(s))
	}
	return proof
}

type withdrawalPayload struct {
	Account       string       `json:"account"`
	Amount        string       `json:"amount"`
	Nonce         uint64       `json:"nonce"`
	CommitmentSeq uint64       `json:"commitment_seq"`
	Proof         proofPayload `json:"proof"`
}

func (p withdrawalPayload) toRequest() (engine.WithdrawalRequest, error) {
	amount, err := parseAmount(p.Amount)
	if err != nil {
		return engine.WithdrawalRequest{}, err
	}
	return engine.WithdrawalRequest{
		Account:       common.HexToAddress(p.Account),
		Amount:        amount,
		Nonce:         p.Nonce,
		CommitmentSeq: p.CommitmentSeq,
		Proof:         p.Proof.toProof(),
	}, nil
}

type withdrawalResponse struct {
	ID            uint64     `json:"id"`
	Hash          string     `json:"hash"`
	Account       string     `json:"account"`
	Amount        string     `json:"amount"`
	Nonce         uint64     `json:"nonce"`
	CommitmentSeq uint64     `json:"commitment_seq"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	Deadline      time.Time  `json:"deadline"`
	FinalizedAt   *time.Time `json:"finalized_at,omitempty"`
	RevertedAt    *time.Time `json:"reverted_at,omitempty"`
	Challenger    string     `json:"challenger,omitempty"`
	Penalty       string     `json:"penalty,omitempty"`
}

func toWithdrawalResponse(w *engine.Withdrawal) withdrawalResponse {
	resp := withdrawalResponse{
		ID:            w.ID,
		Hash:          w.Hash.Hex(),
		Account:       w.Account.Hex(),
		Amount:        w.Amount.String(),
		Nonce:         w.Nonce,
		CommitmentSeq: w.CommitmentSeq,
		Status:        string(w.Status),
		CreatedAt:     w.CreatedAt,
		Deadline:      w.Deadline,
		FinalizedAt:   w.FinalizedAt,
		RevertedAt:    w.RevertedAt,
	}
	if w.Challenger != nil {
		resp.Challenger = w.Challenger.Hex()
	}
	if w.PenaltyApplied != nil {
		resp.Penalty = w.PenaltyApplied.String()
	}
	return resp
}

func parseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if amount.BitLen() > 256 {
		return nil, fmt.Errorf("amount %q exceeds 256 bits", s)
	}
	return amount, nil
}

// Maps the engine error taxonomy onto HTTP status codes: validation errors
// are 422, lifecycle-state conflicts 409, the circuit breaker 429.
func statusForError(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnknownWithdrawal),
		errors.Is(err, engine.ErrUnknownCommitment):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrReplayedNonce),
		errors.Is(err, engine.ErrInvalidProof),
		errors.Is(err, engine.ErrInsufficientBalance),
		errors.Is(err, engine.ErrInvalidEvidence),
		errors.Is(err, engine.ErrNonPositiveAmount):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrChallengeWindowOpen),
		errors.Is(err, engine.ErrAlreadyFinalized),
		errors.Is(err, engine.ErrWithdrawalReverted),
		errors.Is(err, engine.ErrAlreadyReverted),
		errors.Is(err, engine.ErrNotChallengeable),
		errors.Is(err, engine.ErrReentrant):
		return http.StatusConflict
	case errors.Is(err, engine.ErrDailyLimitExceeded):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func withdrawalID(r *http.Request) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
}

func (s *Server) handleWithdrawalPost(w http.ResponseWriter, r *http.Request) {
	var payload withdrawalPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	req, err := payload.toRequest()
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	withdrawal, err := s.engine.InitiateWithdrawal(req)
	if err != nil {
		ERROR(w, statusForError(err), err)
		return
	}

	JSON(w, http.StatusCreated, toWithdrawalResponse(withdrawal))
}

func (s *Server) handleBatchWithdrawalPost(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Requests []withdrawalPayload `json:"requests"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	reqs := make([]engine.WithdrawalRequest, 0, len(payload.Requests))
	for _, p := range payload.Requests {
		req, err := p.toRequest()
		if err != nil {
			ERROR(w, http.StatusBadRequest, err)
			return
		}
		reqs = append(reqs, req)
	}

	withdrawals, err := s.engine.BatchWithdraw(reqs)
	if err != nil {
		ERROR(w, statusForError(err), err)
		return
	}

	resp := make([]withdrawalResponse, len(withdrawals))
	for i, withdrawal := range withdrawals {
		resp[i] = toWithdrawalResponse(withdrawal)
	}
	JSON(w, http.StatusCreated, resp)
}

func (s *Server) handleChallengePost(w http.ResponseWriter, r *http.Request) {
	id, err := withdrawalID(r)
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	var payload struct {
		Kind       string       `json:"kind"`
		Challenger string       `json:"challenger"`
		Leaf       struct {
			Account string `json:"account"`
			Amount  string `json:"amount"`
			Nonce   uint64 `json:"nonce"`
		} `json:"leaf"`
		Proof         proofPayload `json:"proof"`
		CommitmentSeq uint64       `json:"commitment_seq"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	amount, err := parseAmount(payload.Leaf.Amount)
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	evidence := engine.Evidence{
		Kind:       engine.EvidenceKind(payload.Kind),
		Challenger: common.HexToAddress(payload.Challenger),
		Leaf: merkle.Leaf{
			Account: common.HexToAddress(payload.Leaf.Account),
			Amount:  amount,
			Nonce:   payload.Leaf.Nonce,
		},
		Proof:         payload.Proof.toProof(),
		CommitmentSeq: payload.CommitmentSeq,
	}

	withdrawal, err := s.engine.SubmitFraudProof(id, evidence)
	if err != nil {
		ERROR(w, statusForError(err), err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"accepted":   true,
		"withdrawal": toWithdrawalResponse(withdrawal),
	})
}

func (s *Server) handleFinalizePost(w http.ResponseWriter, r *http.Request) {
	id, err := withdrawalID(r)
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	released, err := s.engine.FinalizeWithdrawal(id)
	if err != nil {
		ERROR(w, statusForError(err), err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"id":       id,
		"released": released.String(),
	})
}

// handleWithdrawalByHashGet serves live engine state when the withdrawal is
// known, and falls back to the audit store so history survives a cold restart.
func (s *Server) handleWithdrawalByHashGet(w http.ResponseWriter, r *http.Request) {
	hash := common.HexToHash(chi.URLParam(r, "hash"))

	withdrawal, err := s.engine.GetWithdrawalByHash(hash)
	if err == nil {
		JSON(w, http.StatusOK, toWithdrawalResponse(withdrawal))
		return
	}
	if !errors.Is(err, engine.ErrUnknownWithdrawal) || s.db == nil {
		ERROR(w, statusForError(err), err)
		return
	}

	record, dbErr := s.db.GetWithdrawalByHash(r.Context(), hash.Hex())
	if dbErr != nil {
		ERROR(w, http.StatusNotFound, err)
		return
	}

	resp := map[string]interface{}{"withdrawal": record}
	if finalized, err := s.db.GetWithdrawalFinalizedByHash(r.Context(), hash.Hex()); err == nil {
		resp["finalize_tx"] = finalized
	}
	if reverted, err := s.db.GetWithdrawalRevertedByHash(r.Context(), hash.Hex()); err == nil {
		resp["revert_tx"] = reverted
	}
	JSON(w, http.StatusOK, resp)
}

func (s *Server) handleWithdrawalGet(w http.ResponseWriter, r *http.Request) {
	id, err := withdrawalID(r)
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	withdrawal, err := s.engine.GetWithdrawal(id)
	if err != nil {
		ERROR(w, statusForError(err), err)
		return
	}

	JSON(w, http.StatusOK, toWithdrawalResponse(withdrawal))
}
