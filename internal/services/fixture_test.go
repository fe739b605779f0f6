package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aiwuxian/sanguo-rpg/internal/catalog"
	"github.com/aiwuxian/sanguo-rpg/internal/metrics"
	"github.com/aiwuxian/sanguo-rpg/internal/models"
	"github.com/aiwuxian/sanguo-rpg/internal/rng"
	"github.com/aiwuxian/sanguo-rpg/internal/storage"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// testCatalog 小型内容：一条剧情、四名武将、三个副本、两种道具
func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c := &catalog.Catalog{
		Openings: []catalog.Opening{
			{ID: "gate", Tags: []string{"city"}, Template: "{player_name}来到城门。"},
		},
		Events: []catalog.Event{
			{ID: "beggar", Tags: []string{"city"}, Template: "一名乞丐拦住去路。", Options: []catalog.Option{
				{Text: "施舍", Next: "give"},
				{Text: "离开", Next: "leave"},
			}},
		},
		Resolutions: map[string]catalog.Resolution{
			"give": {
				Type:     catalog.ResolutionFinal,
				Template: "乞丐原来是隐士，赠你盘缠。",
				Rewards:  models.RewardSpec{Coins: 50, Exp: 10, Reputation: 1},
			},
			"leave": {
				Type:     catalog.ResolutionChoice,
				Template: "你转身离开，身后传来叹息。",
				Options:  []catalog.Option{{Text: "回头", Next: "give"}},
			},
		},
		Units: []models.Unit{
			{ID: "soldier", Name: "乡勇", Rarity: models.RarityCommon, Might: 40, Intellect: 20, Command: 30, Speed: 30},
			{ID: "archer", Name: "弓手", Rarity: models.RarityRare, Might: 50, Intellect: 30, Command: 40, Speed: 45},
			{ID: "zhao_yun", Name: "赵云", Rarity: models.RarityEpic, Might: 96, Intellect: 76, Command: 91, Speed: 90},
			{ID: "guan_yu", Name: "关羽", Rarity: models.RarityLegendary, Might: 97, Intellect: 75, Command: 95, Speed: 80},
		},
		Items: []models.Item{
			{ID: "herb", Name: "草药", Type: models.ItemConsumable, Value: 10, PriceCoins: 15},
			{ID: "war_manual", Name: "兵书", Type: models.ItemSpecial, Value: 100, Scaled: true, PriceGems: 5},
		},
		Challenges: []models.Challenge{
			{ID: "easy", Name: "山贼营寨", RecommendedLevel: 1, MaxPartySize: 3, DifficultyMin: 0.01, DifficultyMax: 0.01, EntryFee: 10,
				Rewards: models.RewardSpec{Coins: 50, Exp: 20, Items: []string{"herb"}}},
			{ID: "hard", Name: "虎牢关", RecommendedLevel: 1, MaxPartySize: 3, DifficultyMin: 100, DifficultyMax: 100,
				Rewards: models.RewardSpec{Coins: 500}},
			{ID: "elite", Name: "长坂坡", RecommendedLevel: 5, MaxPartySize: 2, DifficultyMin: 1, DifficultyMax: 1},
		},
	}
	require.NoError(t, c.Build())
	return c
}

func testConfig() models.GameConfig {
	cfg := models.DefaultConfig().Game
	cfg.AdventureCostMin = 0
	cfg.AdventureCostMax = 0
	return cfg
}

type fixture struct {
	store   *storage.Storage
	content *catalog.Catalog
	clock   *testClock
	rules   *RuleEngine
	ledger  *LedgerService
	metrics *metrics.Metrics
	config  models.GameConfig
	actors  *ActorService
}

func newFixture(t *testing.T, content *catalog.Catalog, cfg models.GameConfig) *fixture {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	clock := &testClock{now: time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)}
	rules := NewRuleEngine(cfg.Leveling, rng.NewSeeded(42)).WithClock(clock.Now)
	m := metrics.New()
	ledger := NewLedgerService(store, content, rules, cfg.Leveling, NewLocks(), m, zap.NewNop())

	return &fixture{
		store:   store,
		content: content,
		clock:   clock,
		rules:   rules,
		ledger:  ledger,
		metrics: m,
		config:  cfg,
		actors:  NewActorService(store, content, ledger, cfg, zap.NewNop()),
	}
}

func (f *fixture) register(t *testing.T, id string) *models.Actor {
	t.Helper()
	a, err := f.actors.Register(context.Background(), id, id+"公")
	require.NoError(t, err)
	return a
}

func (f *fixture) actor(t *testing.T, id string) *models.Actor {
	t.Helper()
	a, err := f.store.GetActor(context.Background(), id)
	require.NoError(t, err)
	return a
}

// update 直接改写玩家数值
func (f *fixture) update(t *testing.T, id string, mutate func(a *models.Actor)) {
	t.Helper()
	a := f.actor(t, id)
	mutate(a)
	require.NoError(t, f.store.UpdateActor(context.Background(), a))
}

func (f *fixture) addUnit(t *testing.T, actorID, unitID string, level int) *models.UnitInstance {
	t.Helper()
	inst := &models.UnitInstance{
		ID:         uuid.New().String(),
		ActorID:    actorID,
		UnitID:     unitID,
		Level:      level,
		AcquiredAt: f.clock.Now(),
	}
	require.NoError(t, f.store.CreateUnitInstance(context.Background(), inst))
	return inst
}

func counterValue(t *testing.T, f *fixture, target string) float64 {
	t.Helper()
	return testutil.ToFloat64(f.metrics.LevelUps.WithLabelValues(target))
}
