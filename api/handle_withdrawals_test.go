package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lightlink-network/ll-withdrawal-engine/engine"
	"github.com/lightlink-network/ll-withdrawal-engine/merkle"
	"github.com/stretchr/testify/require"
)

const testAccount = "0x1111111111111111111111111111111111111111"

type testClock struct {
	now time.Time
}

func (c *testClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestServer(t *testing.T) (*Server, *testClock) {
	t.Helper()

	clock := &testClock{now: time.Unix(1_700_000_000, 0).UTC()}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	eng, err := engine.NewEngine(engine.EngineOpts{
		ChallengePeriod: time.Hour,
		Logger:          logger,
		Now:             func() time.Time { return clock.now },
	})
	require.NoError(t, err)

	s, err := NewServer(ServerOpts{Logger: logger, Engine: eng})
	require.NoError(t, err)
	return s, clock
}

func do(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// commit publishes a commitment over the leaves and returns the sequence
// number plus proof payloads the API accepts.
func commit(t *testing.T, s *Server, leaves ...merkle.Leaf) (uint64, []proofPayload) {
	t.Helper()

	tree, err := merkle.NewTree(leaves)
	require.NoError(t, err)

	rec := do(t, s, http.MethodPost, "/v1/commitments",
		map[string]string{"root": tree.Root().Hex()})
	require.Equal(t, http.StatusCreated, rec.Code)
	seq := uint64(decode(t, rec)["commitment_seq"].(float64))

	proofs := make([]proofPayload, len(leaves))
	for i := range leaves {
		proof, err := tree.Prove(uint64(i))
		require.NoError(t, err)
		p := proofPayload{Index: proof.Index}
		for _, sib := range proof.Siblings {
			p.Siblings = append(p.Siblings, sib.Hex())
		}
		proofs[i] = p
	}
	return seq, proofs
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "online", decode(t, rec)["health_status"])
}

func TestDepositEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/deposits",
		map[string]string{"account": testAccount, "amount": "100"})
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decode(t, rec)
	require.Equal(t, "100", body["balance"])
	require.Equal(t, float64(0), body["nonce"])

	t.Run("malformed amount", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/v1/deposits",
			map[string]string{"account": testAccount, "amount": "ten"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/v1/deposits",
			map[string]string{"account": testAccount, "amount": "0"})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("amount wider than 256 bits", func(t *testing.T) {
		huge := new(big.Int).Lsh(big.NewInt(1), 256).String()
		rec := do(t, s, http.MethodPost, "/v1/deposits",
			map[string]string{"account": testAccount, "amount": huge})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestWithdrawalEndpoints(t *testing.T) {
	s, clock := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/deposits",
		map[string]string{"account": testAccount, "amount": "100"})
	require.Equal(t, http.StatusCreated, rec.Code)

	leaf := merkle.Leaf{
		Account: common.HexToAddress(testAccount),
		Amount:  parseTestAmount(t, "40"),
		Nonce:   0,
	}
	seq, proofs := commit(t, s, leaf)

	payload := withdrawalPayload{
		Account:       testAccount,
		Amount:        "40",
		Nonce:         0,
		CommitmentSeq: seq,
		Proof:         proofs[0],
	}

	rec = do(t, s, http.MethodPost, "/v1/withdrawals", payload)
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decode(t, rec)
	require.Equal(t, "CHALLENGEABLE", body["status"])
	id := uint64(body["id"].(float64))

	t.Run("get by id", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, fmt.Sprintf("/v1/withdrawals/%d", id), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "40", decode(t, rec)["amount"])
	})

	t.Run("get by hash", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/v1/withdrawals/hash/"+body["hash"].(string), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, float64(id), decode(t, rec)["id"])
	})

	t.Run("get unknown id", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/v1/withdrawals/999", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("replayed nonce", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/v1/withdrawals", payload)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("finalize inside the window", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, fmt.Sprintf("/v1/withdrawals/%d/finalize", id), nil)
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("finalize after the window", func(t *testing.T) {
		clock.advance(2 * time.Hour)

		rec := do(t, s, http.MethodPost, fmt.Sprintf("/v1/withdrawals/%d/finalize", id), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "40", decode(t, rec)["released"])
	})

	t.Run("account reflects the debit", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/v1/accounts/"+testAccount, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		require.Equal(t, "60", body["balance"])
		require.Equal(t, float64(1), body["nonce"])
	})

	t.Run("volume reflects the release", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/v1/volume", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "40", decode(t, rec)["daily_volume"])
	})
}

func TestWithdrawalInvalidProof(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/deposits",
		map[string]string{"account": testAccount, "amount": "100"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, s, http.MethodPost, "/v1/withdrawals", withdrawalPayload{
		Account:       testAccount,
		Amount:        "40",
		Nonce:         0,
		CommitmentSeq: 1,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestBatchWithdrawalEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/deposits",
		map[string]string{"account": testAccount, "amount": "100"})
	require.Equal(t, http.StatusCreated, rec.Code)

	addr := common.HexToAddress(testAccount)
	leaves := []merkle.Leaf{
		{Account: addr, Amount: parseTestAmount(t, "20"), Nonce: 0},
		{Account: addr, Amount: parseTestAmount(t, "25"), Nonce: 1},
	}
	seq, proofs := commit(t, s, leaves...)

	rec = do(t, s, http.MethodPost, "/v1/withdrawals/batch", map[string]interface{}{
		"requests": []withdrawalPayload{
			{Account: testAccount, Amount: "20", Nonce: 0, CommitmentSeq: seq, Proof: proofs[0]},
			{Account: testAccount, Amount: "25", Nonce: 1, CommitmentSeq: seq, Proof: proofs[1]},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 2)

	t.Run("overdraw rejects whole batch", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/v1/withdrawals/batch", map[string]interface{}{
			"requests": []withdrawalPayload{
				{Account: testAccount, Amount: "30", Nonce: 2, CommitmentSeq: seq},
				{Account: testAccount, Amount: "30", Nonce: 3, CommitmentSeq: seq},
			},
		})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestChallengeEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/deposits",
		map[string]string{"account": testAccount, "amount": "100"})
	require.Equal(t, http.StatusCreated, rec.Code)

	leaf := merkle.Leaf{
		Account: common.HexToAddress(testAccount),
		Amount:  parseTestAmount(t, "40"),
		Nonce:   0,
	}
	seq, proofs := commit(t, s, leaf)

	rec = do(t, s, http.MethodPost, "/v1/withdrawals", withdrawalPayload{
		Account: testAccount, Amount: "40", Nonce: 0,
		CommitmentSeq: seq, Proof: proofs[0],
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := uint64(decode(t, rec)["id"].(float64))

	// The withdrawal is genuinely committed, so any evidence must be
	// rejected and the withdrawal stay challengeable.
	rec = do(t, s, http.MethodPost, fmt.Sprintf("/v1/withdrawals/%d/challenge", id),
		map[string]interface{}{
			"kind":           "NON_INCLUSION",
			"challenger":     "0x2222222222222222222222222222222222222222",
			"leaf":           map[string]interface{}{"account": testAccount, "amount": "1", "nonce": 0},
			"proof":          proofs[0],
			"commitment_seq": seq,
		})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, s, http.MethodGet, fmt.Sprintf("/v1/withdrawals/%d", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "CHALLENGEABLE", decode(t, rec)["status"])
}

func TestCommitmentEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	leaf := merkle.Leaf{
		Account: common.HexToAddress(testAccount),
		Amount:  parseTestAmount(t, "40"),
		Nonce:   0,
	}
	tree, err := merkle.NewTree([]merkle.Leaf{leaf})
	require.NoError(t, err)

	rec := do(t, s, http.MethodPost, "/v1/commitments",
		map[string]string{"root": tree.Root().Hex()})
	require.Equal(t, http.StatusCreated, rec.Code)
	seq := uint64(decode(t, rec)["commitment_seq"].(float64))

	rec = do(t, s, http.MethodGet, fmt.Sprintf("/v1/commitments/%d", seq), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, tree.Root().Hex(), decode(t, rec)["root"])

	t.Run("unknown sequence", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/v1/commitments/99", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed sequence", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/v1/commitments/next", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDatabaseBackedEndpointsWithoutDatabase(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/v1/transactions", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, s, http.MethodGet, "/v1/withdrawals/status/FINALIZED", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// Without an audit store the hash lookup has no fallback.
	rec = do(t, s, http.MethodGet, "/v1/withdrawals/hash/0xdead", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func parseTestAmount(t *testing.T, s string) *big.Int {
	t.Helper()

	amount, err := parseAmount(s)
	require.NoError(t, err)
	return amount
}
