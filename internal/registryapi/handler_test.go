package registryapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/loteamento/internal/db"
	"github.com/vbonduro/loteamento/internal/domain"
	"github.com/vbonduro/loteamento/internal/metrics"
	"github.com/vbonduro/loteamento/internal/registry"
	"github.com/vbonduro/loteamento/internal/store"
)

func newTestAPI(t *testing.T, opts Options) (*httptest.Server, *store.BlockStore) {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	blocks := store.NewBlockStore(d)
	srv := httptest.NewServer(NewHandler(slog.Default(), blocks, opts).Router())
	t.Cleanup(srv.Close)
	return srv, blocks
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, string) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestAPI(t, Options{})

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

func TestListEmpty(t *testing.T) {
	srv, _ := newTestAPI(t, Options{})

	for _, path := range []string{"/loteamentos", "/loteamentos/"} {
		resp, body := doJSON(t, http.MethodGet, srv.URL+path, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.JSONEq(t, `[]`, body, path)
	}
}

func TestCreateAndList(t *testing.T) {
	srv, _ := newTestAPI(t, Options{})

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/loteamentos", `{"_id":"Q1","lotes":[]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.JSONEq(t, `{"_id":"Q1","lotes":[]}`, body)

	_, body = doJSON(t, http.MethodGet, srv.URL+"/loteamentos", "")
	assert.JSONEq(t, `[{"_id":"Q1","lotes":[]}]`, body)
}

func TestCreateValidation(t *testing.T) {
	srv, _ := newTestAPI(t, Options{})

	tests := []struct {
		name string
		body string
		code string
	}{
		{name: "malformed", body: `{"_id":`, code: "invalid_json"},
		{name: "missing id", body: `{"lotes":[]}`, code: "invalid_block"},
		{name: "blank id", body: `{"_id":"   ","lotes":[]}`, code: "invalid_block"},
		{name: "bad status", body: `{"_id":"Q1","lotes":[{"numero":1,"status":"reservado"}]}`, code: "invalid_status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, http.MethodPost, srv.URL+"/loteamentos", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var e struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal([]byte(body), &e))
			assert.Equal(t, tt.code, e.Error.Code)
		})
	}
}

func TestDeleteBlock(t *testing.T) {
	srv, blocks := newTestAPI(t, Options{})
	_, err := blocks.Save(context.Background(), domain.Block{ID: "Quadra A"})
	require.NoError(t, err)

	resp, _ := doJSON(t, http.MethodDelete, srv.URL+"/loteamentos/Quadra%20A", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/loteamentos/Quadra%20A", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAddLot(t *testing.T) {
	srv, blocks := newTestAPI(t, Options{})
	_, err := blocks.Save(context.Background(), domain.Block{ID: "Q1", Lots: []domain.Lot{{Number: 1, Status: domain.StatusSold}}})
	require.NoError(t, err)

	resp, body := doJSON(t, http.MethodPut, srv.URL+"/loteamentos/Q1/lotes", `{"numero":2,"status":"vazio","proprietario":{}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	var b domain.Block
	require.NoError(t, json.Unmarshal([]byte(body), &b))
	require.Len(t, b.Lots, 2)
	assert.Equal(t, 2, b.Lots[1].Number)
	assert.Equal(t, domain.StatusVacant, b.Lots[1].Status)
}

func TestAddLotDefaultsNumberAndStatus(t *testing.T) {
	srv, blocks := newTestAPI(t, Options{})
	_, err := blocks.Save(context.Background(), domain.Block{ID: "Q1", Lots: []domain.Lot{{Number: 7, Status: domain.StatusSold}}})
	require.NoError(t, err)

	resp, body := doJSON(t, http.MethodPut, srv.URL+"/loteamentos/Q1/lotes", `{}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	var b domain.Block
	require.NoError(t, json.Unmarshal([]byte(body), &b))
	require.Len(t, b.Lots, 2)
	assert.Equal(t, 8, b.Lots[1].Number)
	assert.Equal(t, domain.StatusVacant, b.Lots[1].Status)
}

func TestAddLotUnknownBlock(t *testing.T) {
	srv, _ := newTestAPI(t, Options{})

	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/loteamentos/Q9/lotes", `{"numero":1,"status":"vazio"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateLotStatus(t *testing.T) {
	srv, blocks := newTestAPI(t, Options{})
	_, err := blocks.Save(context.Background(), domain.Block{ID: "Q1", Lots: []domain.Lot{{Number: 1, Status: domain.StatusVacant}}})
	require.NoError(t, err)

	resp, body := doJSON(t, http.MethodPut, srv.URL+"/loteamentos/Q1/lotes/1", `{"status":"pendente"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.JSONEq(t, `{"_id":"Q1","lotes":[{"numero":1,"status":"pendente"}]}`, body)

	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/loteamentos/Q1/lotes/abc", `{"status":"pendente"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/loteamentos/Q1/lotes/1", `{"status":"reservado"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/loteamentos/Q1/lotes/9", `{"status":"vendido"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateOwner(t *testing.T) {
	srv, blocks := newTestAPI(t, Options{})
	_, err := blocks.Save(context.Background(), domain.Block{ID: "Q1", Lots: []domain.Lot{{Number: 1, Status: domain.StatusSold}}})
	require.NoError(t, err)

	owner := `{"nome":"Ana","cpf":"123","telefone":"9999","email":"ana@example.com","observacoes":"quitado"}`
	resp, body := doJSON(t, http.MethodPut, srv.URL+"/loteamentos/Q1/lotes/1/proprietario", owner)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.JSONEq(t, `{"_id":"Q1","lotes":[{"numero":1,"status":"vendido","proprietario":`+owner+`}]}`, body)
}

func TestRateLimitAppliesToMutations(t *testing.T) {
	srv, _ := newTestAPI(t, Options{RateLimit: 0.001, RateBurst: 1})

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/loteamentos", `{"_id":"Q1","lotes":[]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/loteamentos", `{"_id":"Q2","lotes":[]}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))

	// Reads are never limited.
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/loteamentos", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestAPI(t, Options{Metrics: metrics.New()})

	doJSON(t, http.MethodGet, srv.URL+"/loteamentos", "")
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/metrics", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `loteamento_http_requests_total{method="GET",path="/loteamentos`)
	assert.NotContains(t, body, `path="/loteamentos/{id}`)
}

// TestClientRoundTrip drives the API through the registry client used by the
// plot map console.
func TestClientRoundTrip(t *testing.T) {
	srv, _ := newTestAPI(t, Options{})
	c := registry.NewClient(srv.URL)
	ctx := context.Background()

	_, err := c.Create(ctx, "Q1")
	require.NoError(t, err)
	_, err = c.AddLot(ctx, "Q1", domain.Lot{Number: 1, Status: domain.StatusVacant, Owner: &domain.Owner{}})
	require.NoError(t, err)
	_, err = c.AddLot(ctx, "Q1", domain.Lot{Number: 2, Status: domain.StatusVacant, Owner: &domain.Owner{}})
	require.NoError(t, err)
	_, err = c.UpdateLotStatus(ctx, "Q1", 1, domain.StatusSold)
	require.NoError(t, err)
	b, err := c.UpdateOwner(ctx, "Q1", 1, domain.Owner{Name: "Ana"})
	require.NoError(t, err)
	require.Len(t, b.Lots, 2)
	assert.Equal(t, "Ana", b.Lots[0].Owner.Name)

	b, err = c.Replace(ctx, domain.Block{ID: "Q1", Lots: b.Lots[:1]})
	require.NoError(t, err)
	assert.Len(t, b.Lots, 1)

	blocks, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, domain.StatusSold, blocks[0].Lots[0].Status)

	require.NoError(t, c.Delete(ctx, "Q1"))
	err = c.Delete(ctx, "Q1")
	var se *registry.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
}
