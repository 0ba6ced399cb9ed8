package charts

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/aristath/odyssey/internal/modules/allocation"
)

func setupChartService(t *testing.T, loadTable bool) *allocation.Service {
	openMemoryDB := func() *sql.DB {
		db, err := sql.Open("sqlite", ":memory:")
		require.NoError(t, err)
		db.SetMaxOpenConns(1)
		t.Cleanup(func() { db.Close() })
		return db
	}

	repo := allocation.NewRepository(openMemoryDB(), zerolog.Nop())
	require.NoError(t, repo.Migrate())
	cache, err := allocation.NewIndexCache(openMemoryDB(), zerolog.Nop())
	require.NoError(t, err)
	svc := allocation.NewService(repo, cache, zerolog.Nop())

	if loadTable {
		path := filepath.Join(t.TempDir(), "wshards.csv")
		csv := "Name,Wallet,Odyssey Drop,wShards\n" +
			"alice,0xABCDEF1234,10000,100\n" +
			"bob,0x9988776655,500,20\n"
		require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))
		require.NoError(t, svc.Refresh(path))
	}

	return svc
}

type distributionResponse struct {
	Figure   Figure                   `json:"figure"`
	NotFound bool                     `json:"not_found"`
	Result   *allocation.SearchResult `json:"result"`
}

func TestHandleDistribution_NoWallet(t *testing.T) {
	handler := NewHandler(setupChartService(t, true), NewBuilder(zerolog.Nop()), zerolog.Nop())

	req := httptest.NewRequest("GET", "/api/charts/distribution", nil)
	w := httptest.NewRecorder()
	handler.HandleDistribution(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp distributionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.NotFound)
	assert.Nil(t, resp.Result)
	require.Len(t, resp.Figure.Data, 2)
	assert.Len(t, resp.Figure.Data[0].X, 2)
}

func TestHandleDistribution_WithHighlight(t *testing.T) {
	handler := NewHandler(setupChartService(t, true), NewBuilder(zerolog.Nop()), zerolog.Nop())

	req := httptest.NewRequest("GET", "/api/charts/distribution?wallet=0X9988776655", nil)
	w := httptest.NewRecorder()
	handler.HandleDistribution(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp distributionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.NotFound)
	require.NotNil(t, resp.Result)
	assert.Equal(t, "bob", resp.Result.Record.Name)

	// The matched point carries the highlight size.
	require.Len(t, resp.Figure.Data, 2)
	assert.Equal(t, []float64{6, 12}, resp.Figure.Data[0].Marker.Size)
}

func TestHandleDistribution_UnknownWalletStillRendersChart(t *testing.T) {
	handler := NewHandler(setupChartService(t, true), NewBuilder(zerolog.Nop()), zerolog.Nop())

	req := httptest.NewRequest("GET", "/api/charts/distribution?wallet=0xdeadbeef00", nil)
	w := httptest.NewRecorder()
	handler.HandleDistribution(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp distributionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.NotFound)
	assert.Nil(t, resp.Result)
	require.Len(t, resp.Figure.Data, 2)
	assert.Equal(t, []float64{6, 6}, resp.Figure.Data[0].Marker.Size)
}

func TestHandleDistribution_TableNotLoaded(t *testing.T) {
	handler := NewHandler(setupChartService(t, false), NewBuilder(zerolog.Nop()), zerolog.Nop())

	req := httptest.NewRequest("GET", "/api/charts/distribution", nil)
	w := httptest.NewRecorder()
	handler.HandleDistribution(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
