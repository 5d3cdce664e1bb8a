package rpc

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"walletd/ledger"
	"walletd/storage"
)

func newTestServer(t *testing.T) (*ledger.Ledger, *httptest.Server) {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	core := ledger.New(storage.NewMemDB(), ledger.MustRegistry(ledger.DefaultAssets), logger)
	ts := httptest.NewServer(NewServer(core, logger).Router())
	t.Cleanup(ts.Close)
	return core, ts
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func seed(t *testing.T, core *ledger.Ledger, asset ledger.AssetID, account string, amount uint64) {
	t.Helper()
	id := ledger.NewTradeID()
	require.NoError(t, core.AddFund(asset, id, "ext", account, amount, ""))
	require.True(t, core.CompleteFund(asset, id, true))
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t)
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/healthz", nil))
}

func TestAssetsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	var assets []struct {
		ID   uint32 `json:"id"`
		Name string `json:"name"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/assets", &assets))
	require.Len(t, assets, len(ledger.DefaultAssets))
	require.Equal(t, "btc", assets[0].Name)
}

func TestBalancesEndpoint(t *testing.T) {
	core, ts := newTestServer(t)
	seed(t, core, 0, "alice", 150)
	require.NoError(t, core.AddPay(0, "p1", "alice", "bob", 100, nil, ""))

	var balances []struct {
		Asset     string `json:"asset"`
		Available uint64 `json:"available"`
		Locked    uint64 `json:"locked"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/accounts/alice/balances", &balances))
	require.Equal(t, "btc", balances[0].Asset)
	require.Equal(t, uint64(50), balances[0].Available)
	require.Equal(t, uint64(100), balances[0].Locked)

	require.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/v1/accounts/nobody/balances", nil))
}

func TestTradesEndpoint(t *testing.T) {
	core, ts := newTestServer(t)
	seed(t, core, 0, "alice", 150)
	require.NoError(t, core.AddPay(0, "p1", "alice", "bob", 100, nil, "h"))

	var trades []struct {
		ID     string `json:"id"`
		Type   string `json:"type"`
		Status string `json:"status"`
		Amount uint64 `json:"amount"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/accounts/bob/trades?asset=btc", &trades))
	require.Len(t, trades, 1)
	require.Equal(t, "p1", trades[0].ID)
	require.Equal(t, "Pay", trades[0].Type)
	require.Equal(t, "Pending", trades[0].Status)

	require.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/v1/accounts/bob/trades", nil))
	require.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/v1/accounts/bob/trades?asset=doge", nil))
}

func TestApprovalsEndpoint(t *testing.T) {
	core, ts := newTestServer(t)
	_, err := core.ImportTrade(ledger.ImportRecord{
		TradeID: "h1", Asset: "btc", Type: "Withdraw", Status: "Approving",
		Amount: 10, From: "alice", To: "ext",
	})
	require.NoError(t, err)

	var ids []string
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/admin/approvals?asset=btc", &ids))
	require.Equal(t, []string{"h1"}, ids)
}

func TestWarningsEndpoint(t *testing.T) {
	core, ts := newTestServer(t)
	// A terminal pay with no covering history flags its sender on replay.
	_, err := core.ImportTrade(ledger.ImportRecord{
		TradeID: "p1", Asset: "btc", Type: "Pay", Status: "Succeeded",
		Amount: 100, From: "ghost", To: "bob",
	})
	require.NoError(t, err)

	var warnings []struct {
		Asset   string `json:"asset"`
		Account string `json:"account"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/admin/warnings", &warnings))
	require.Len(t, warnings, 1)
	require.Equal(t, "btc", warnings[0].Asset)
	require.Equal(t, "ghost", warnings[0].Account)
}
