package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aiwuxian/sanguo-rpg/internal/catalog"
	"github.com/aiwuxian/sanguo-rpg/internal/combat"
	"github.com/aiwuxian/sanguo-rpg/internal/gacha"
	"github.com/aiwuxian/sanguo-rpg/internal/metrics"
	"github.com/aiwuxian/sanguo-rpg/internal/models"
	"github.com/aiwuxian/sanguo-rpg/internal/narrative"
	"github.com/aiwuxian/sanguo-rpg/internal/rng"
	"github.com/aiwuxian/sanguo-rpg/internal/services"
	"github.com/aiwuxian/sanguo-rpg/internal/session"
	"github.com/aiwuxian/sanguo-rpg/internal/storage"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.New(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	content, err := catalog.LoadEmbedded()
	require.NoError(t, err)

	cfg := models.DefaultConfig().Game
	log := zap.NewNop()
	m := metrics.New()
	src := rng.NewSeeded(1)

	rules := services.NewRuleEngine(cfg.Leveling, src)
	ledger := services.NewLedgerService(store, content, rules, cfg.Leveling, services.NewLocks(), m, log)
	sessions := session.NewMemoryStore[services.AdventureSession](cfg.SessionTTL)

	h := NewHandler(
		services.NewActorService(store, content, ledger, cfg, log),
		services.NewAdventureService(store, ledger, narrative.NewEngine(content, src), sessions, cfg, log),
		services.NewBattleService(store, content, ledger, combat.NewResolver(cfg.Combat, content.Units, src), cfg, log),
		services.NewRecruitService(store, content, ledger, gacha.NewEngine(cfg.Gacha, content, src), cfg, log),
		services.NewStealService(store, content, ledger, cfg, log),
		services.NewShopService(store, content, ledger, cfg, log),
		ledger,
		store,
		log,
	)
	return NewRouter(h, m.Handler(), log)
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(t)

	rec := do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
	assert.Empty(t, rec.Header().Get(requestIDHeader))

	rec = do(t, r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sanguo_rewards_applied_total")
}

func TestActorEndpoints(t *testing.T) {
	r := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/api/actors", gin.H{"id": "liubei", "name": "刘备"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	assert.Equal(t, float64(1000), decode(t, rec)["coins"])

	rec = do(t, r, http.MethodPost, "/api/actors", gin.H{"id": "liubei"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/actors", gin.H{"name": "无名"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/actors/liubei", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "刘备", decode(t, rec)["name"])

	rec = do(t, r, http.MethodGet, "/api/actors/nobody", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	t.Run("sign in once per day", func(t *testing.T) {
		rec := do(t, r, http.MethodPost, "/api/actors/liubei/sign-in", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = do(t, r, http.MethodPost, "/api/actors/liubei/sign-in", nil)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		assert.Greater(t, decode(t, rec)["retry_after"], float64(0))
	})

	t.Run("grant rewards", func(t *testing.T) {
		rec := do(t, r, http.MethodPost, "/api/actors/liubei/rewards", gin.H{
			"rewards": gin.H{"coins": 50, "items": []string{"wound_salve"}},
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = do(t, r, http.MethodPost, "/api/actors/liubei/rewards", gin.H{
			"cost": gin.H{"currency": "gems", "amount": 100000},
		})
		assert.Equal(t, http.StatusPaymentRequired, rec.Code)

		rec = do(t, r, http.MethodGet, "/api/actors/liubei/inventory", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		items := decode(t, rec)["items"].([]any)
		assert.Len(t, items, 1)
	})
}

func TestGameplayErrors(t *testing.T) {
	r := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/api/actors", gin.H{"id": "liubei"}).Code)
	require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/api/actors", gin.H{"id": "caocao"}).Code)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"advance without session", http.MethodPost, "/api/actors/liubei/adventure/advance", gin.H{"choice": 1}, http.StatusConflict},
		{"abandon without session", http.MethodPost, "/api/actors/liubei/adventure/abandon", nil, http.StatusConflict},
		{"unknown challenge", http.MethodPost, "/api/actors/liubei/battles", gin.H{"challenge_id": "nowhere", "unit_ids": []string{"x"}}, http.StatusNotFound},
		{"empty party", http.MethodPost, "/api/actors/liubei/battles", gin.H{"challenge_id": "yt_outpost"}, http.StatusBadRequest},
		{"unit not owned", http.MethodPost, "/api/actors/liubei/battles", gin.H{"challenge_id": "yt_outpost", "unit_ids": []string{"guan_yu"}}, http.StatusBadRequest},
		{"steal self", http.MethodPost, "/api/actors/liubei/steal", gin.H{"victim_id": "liubei"}, http.StatusBadRequest},
		{"steal missing victim", http.MethodPost, "/api/actors/liubei/steal", gin.H{"victim_id": "nobody"}, http.StatusNotFound},
		{"level up without exp", http.MethodPost, "/api/actors/liubei/units/abc/level-up", gin.H{"amount": 10}, http.StatusPaymentRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode(t, rec)["error"])
		})
	}
}

func TestAdventureFlow(t *testing.T) {
	r := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/api/actors", gin.H{"id": "liubei"}).Code)

	rec := do(t, r, http.MethodPost, "/api/actors/liubei/adventure/start", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	prompt := decode(t, rec)["prompt"].(map[string]any)
	assert.NotEmpty(t, prompt["text"])
	assert.NotEmpty(t, prompt["options"])

	rec = do(t, r, http.MethodPost, "/api/actors/liubei/adventure/start", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["prompt"].(map[string]any)["resumed"])

	rec = do(t, r, http.MethodPost, "/api/actors/liubei/adventure/advance", gin.H{"choice": 99})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for _, body := range []gin.H{{"choice": 0}, {}} {
		rec = do(t, r, http.MethodPost, "/api/actors/liubei/adventure/advance", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode(t, rec)["error"], "请输入 1-")
	}

	rec = do(t, r, http.MethodPost, "/api/actors/liubei/adventure/abandon", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/actors/liubei/adventure/auto", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["prompt"].(map[string]any)["is_final"])
	assert.NotNil(t, body["settlement"])
}

func TestRecruitAndUnits(t *testing.T) {
	r := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/api/actors", gin.H{"id": "liubei"}).Code)

	rec := do(t, r, http.MethodGet, "/api/actors/liubei/recruit/rates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["rates"], 4)

	rec = do(t, r, http.MethodPost, "/api/actors/liubei/recruit", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, false, decode(t, rec)["duplicate"])

	rec = do(t, r, http.MethodGet, "/api/actors/liubei/units", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["units"], 1)

	rec = do(t, r, http.MethodGet, "/api/challenges", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["challenges"], 10)

	rec = do(t, r, http.MethodGet, "/api/actors/liubei/battles?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestShopEndpoints(t *testing.T) {
	r := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/api/actors", gin.H{"id": "liubei"}).Code)

	rec := do(t, r, http.MethodGet, "/api/shop", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	offers := decode(t, rec)["offers"].([]any)
	require.GreaterOrEqual(t, len(offers), 5)

	var itemID string
	for _, o := range offers {
		offer := o.(map[string]any)
		if offer["currency"] == "coins" {
			itemID = offer["item"].(map[string]any)["id"].(string)
			break
		}
	}
	require.NotEmpty(t, itemID)

	rec = do(t, r, http.MethodPost, "/api/actors/liubei/shop/buy", gin.H{"item_id": itemID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, decode(t, rec)["message"], "购买成功")

	rec = do(t, r, http.MethodGet, "/api/actors/liubei/inventory", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 1)

	rec = do(t, r, http.MethodPost, "/api/actors/liubei/shop/buy", gin.H{"item_id": "jade_seal"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/actors/liubei/shop/buy", gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
