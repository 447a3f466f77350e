package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"beanchain/config"
	"beanchain/core"
	"beanchain/core/types"
	"beanchain/crypto"
	"beanchain/history"
	"beanchain/services/beand/middleware"
	"beanchain/storage"
)

const testSecret = "beand-test-secret"

var (
	keeper = crypto.BytesToAddress([]byte{0x0a})
	farmer = crypto.BytesToAddress([]byte{0x01})
	other  = crypto.BytesToAddress([]byte{0x02})
)

type fixture struct {
	node   *core.Node
	server *httptest.Server
	now    time.Time
}

func (f *fixture) clock() time.Time { return f.now }

func newFixture(t *testing.T, hist History) *fixture {
	t.Helper()
	g := config.DefaultGenesis()
	start, err := g.Time()
	require.NoError(t, err)
	f := &fixture{now: start}
	node, err := core.NewNode(storage.NewMemDB(), core.Options{Clock: f.clock})
	require.NoError(t, err)
	require.NoError(t, node.Configure(g))
	require.NoError(t, node.InitGenesis(g))
	f.node = node

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := New(Config{Auth: middleware.AuthConfig{Enabled: true, HMACSecret: testSecret}}, node, hist, logger)
	require.NoError(t, err)
	f.server = httptest.NewServer(srv.Handler())
	t.Cleanup(f.server.Close)
	return f
}

func token(t *testing.T, subject string, scopes ...string) string {
	t.Helper()
	claims := jwt.MapClaims{"scope": strings.Join(scopes, " "), "exp": time.Now().Add(time.Hour).Unix()}
	if subject != "" {
		claims["sub"] = subject
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (f *fixture) do(t *testing.T, method, path, bearer string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	res, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	out := map[string]any{}
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	if len(bytes.TrimSpace(data)) > 0 && data[0] == '{' {
		require.NoError(t, json.Unmarshal(data, &out))
	}
	return res.StatusCode, out
}

func TestHealthAndReads(t *testing.T) {
	f := newFixture(t, nil)
	status, body := f.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 1, body["season"])

	status, _ = f.do(t, http.MethodGet, "/v1/query/season/status", "", nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = f.do(t, http.MethodGet, "/v1/query/governance/params", "", nil)
	require.Equal(t, http.StatusNotFound, status)
	status, _ = f.do(t, http.MethodGet, "/v1/accounts/nope", "", nil)
	require.Equal(t, http.StatusBadRequest, status)
	status, _ = f.do(t, http.MethodGet, "/v1/season/history", "", nil)
	require.Equal(t, http.StatusNotFound, status)
}

func TestDepositFlow(t *testing.T) {
	f := newFixture(t, nil)
	admin := token(t, "", middleware.ScopeSeasonAdmin)
	writer := token(t, farmer.String(), middleware.ScopeSiloWrite)
	deposit := map[string]string{"account": farmer.String(), "token": types.BeanToken, "amount": "1000000000"}

	status, _ := f.do(t, http.MethodPost, "/v1/silo/deposit", "", deposit)
	require.Equal(t, http.StatusUnauthorized, status)
	status, _ = f.do(t, http.MethodPost, "/v1/silo/deposit", admin, deposit)
	require.Equal(t, http.StatusForbidden, status)

	status, _ = f.do(t, http.MethodPost, "/v1/silo/deposit", writer, deposit)
	require.Equal(t, http.StatusConflict, status, "deposit without balance")

	status, _ = f.do(t, http.MethodPost, "/v1/admin/faucet", admin, map[string]string{"to": farmer.String(), "token": types.BeanToken, "amount": "1000000000"})
	require.Equal(t, http.StatusNoContent, status)

	status, body := f.do(t, http.MethodPost, "/v1/silo/deposit", writer, deposit)
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "stem")

	status, _ = f.do(t, http.MethodPost, "/v1/silo/deposit", writer, map[string]string{"account": farmer.String(), "token": types.BeanToken, "amount": "-5"})
	require.Equal(t, http.StatusBadRequest, status)

	otherWriter := token(t, other.String(), middleware.ScopeSiloWrite)
	status, _ = f.do(t, http.MethodPost, "/v1/silo/deposit", otherWriter, deposit)
	require.Equal(t, http.StatusForbidden, status)

	status, body = f.do(t, http.MethodGet, "/v1/accounts/"+farmer.String(), "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, farmer.String(), body["address"])
}

func TestStaleOracleReturnsUnavailable(t *testing.T) {
	f := newFixture(t, nil)
	admin := token(t, "", middleware.ScopeSeasonAdmin)
	lp := "BEAN:WETH"
	status, _ := f.do(t, http.MethodPost, "/v1/admin/faucet", admin, map[string]string{"to": farmer.String(), "token": lp, "amount": "1000000000000"})
	require.Equal(t, http.StatusNoContent, status)

	f.now = f.now.Add(time.Hour)
	writer := token(t, farmer.String(), middleware.ScopeSiloWrite)
	status, _ = f.do(t, http.MethodPost, "/v1/silo/deposit", writer, map[string]string{"account": farmer.String(), "token": lp, "amount": "1000000000000"})
	require.Equal(t, http.StatusServiceUnavailable, status)

	status, _ = f.do(t, http.MethodPost, "/v1/admin/oracle-override", admin, map[string]bool{"enabled": true})
	require.Equal(t, http.StatusNoContent, status)
	status, _ = f.do(t, http.MethodPost, "/v1/silo/deposit", writer, map[string]string{"account": farmer.String(), "token": lp, "amount": "1000000000000"})
	require.Equal(t, http.StatusOK, status)
}

type historyStub struct {
	records []history.SeasonRecord
}

func (h *historyStub) Get(_ context.Context, number uint64) (*history.SeasonRecord, error) {
	for i := range h.records {
		if h.records[i].Season == number {
			return &h.records[i], nil
		}
	}
	return nil, history.ErrNotFound
}

func (h *historyStub) Latest(_ context.Context, limit int) ([]history.SeasonRecord, error) {
	if limit > len(h.records) {
		limit = len(h.records)
	}
	return h.records[:limit], nil
}

func TestSunriseRequiresAdminAndElapsedSeason(t *testing.T) {
	hist := &historyStub{records: []history.SeasonRecord{{Season: 2, Minted: "0"}}}
	f := newFixture(t, hist)
	admin := token(t, "", middleware.ScopeSeasonAdmin)
	writer := token(t, "", middleware.ScopeSiloWrite)
	body := map[string]string{"account": keeper.String()}

	status, _ := f.do(t, http.MethodPost, "/v1/season/sunrise", writer, body)
	require.Equal(t, http.StatusForbidden, status)
	status, _ = f.do(t, http.MethodPost, "/v1/season/sunrise", admin, body)
	require.Equal(t, http.StatusConflict, status)

	f.now = f.now.Add(time.Hour)
	require.NoError(t, f.node.Feed().Publish("WETH", big.NewInt(1_000_000_000), f.now))
	status, report := f.do(t, http.MethodPost, "/v1/season/sunrise", admin, body)
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 2, report["season"])
	require.Equal(t, "5000000", report["incentive"])

	status, _ = f.do(t, http.MethodPost, "/v1/admin/pause", admin, map[string]any{"module": "lending", "paused": true})
	require.Equal(t, http.StatusBadRequest, status)

	status, record := f.do(t, http.MethodGet, "/v1/season/history/2", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 2, record["Season"])
	status, _ = f.do(t, http.MethodGet, "/v1/season/history/7", "", nil)
	require.Equal(t, http.StatusNotFound, status)
}

func TestEventStream(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/v1/events?types=silo"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, f.node.Faucet(types.BeanToken, farmer, big.NewInt(1_000_000_000)))
	_, err = f.node.Deposit(farmer, types.BeanToken, big.NewInt(1_000_000_000))
	require.NoError(t, err)

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var batch []types.Event
	require.NoError(t, json.Unmarshal(data, &batch))
	require.NotEmpty(t, batch)
	for _, evt := range batch {
		require.True(t, strings.HasPrefix(evt.Type, "silo"), "unexpected event %s", evt.Type)
	}
}
