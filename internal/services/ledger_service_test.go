package services

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiwuxian/sanguo-rpg/internal/models"
)

func TestLedgerCost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testCatalog(t), testConfig())
	f.register(t, "liubei")
	f.update(t, "liubei", func(a *models.Actor) { a.Coins = 10 })

	t.Run("insufficient funds leaves actor untouched", func(t *testing.T) {
		bundle := models.NewBundle(models.ReputationDelta{Amount: 5})
		_, err := f.ledger.Apply(ctx, "liubei", bundle, models.Cost{Currency: models.CurrencyCoins, Amount: 20})
		require.ErrorIs(t, err, models.ErrInsufficientFunds)

		a := f.actor(t, "liubei")
		assert.Equal(t, 10, a.Coins)
		assert.Equal(t, 0, a.Reputation)
	})

	t.Run("cost deducted before effects", func(t *testing.T) {
		bundle := models.NewBundle(models.CurrencyDelta{Currency: models.CurrencyCoins, Amount: 5})
		st, err := f.ledger.Apply(ctx, "liubei", bundle, models.Cost{Currency: models.CurrencyCoins, Amount: 10})
		require.NoError(t, err)
		assert.Equal(t, 5, st.Actor.Coins)
		assert.Contains(t, st.Message, "消耗 10 铜钱")
		assert.Equal(t, 5, f.actor(t, "liubei").Coins)
	})

	t.Run("unregistered", func(t *testing.T) {
		_, err := f.ledger.Apply(ctx, "nobody", models.RewardBundle{}, models.NoCost)
		assert.ErrorIs(t, err, models.ErrNotRegistered)
	})
}

func TestLedgerClamps(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testCatalog(t), testConfig())
	f.register(t, "caocao")
	f.update(t, "caocao", func(a *models.Actor) {
		a.Coins = 30
		a.Gems = 0
		a.Health = 90
	})

	bundle := models.NewBundle(
		models.CurrencyDelta{Currency: models.CurrencyCoins, Amount: -50},
		models.CurrencyDelta{Currency: models.CurrencyGems, Amount: -5},
		models.ReputationDelta{Amount: -3},
		models.HealthDelta{Amount: 40},
		models.ExperienceDelta{Pool: models.ExpUnitPool, Amount: -10},
		models.SetStatus{Status: "负伤"},
	)
	st, err := f.ledger.Apply(ctx, "caocao", bundle, models.NoCost)
	require.NoError(t, err)

	a := f.actor(t, "caocao")
	assert.Equal(t, 0, a.Coins)
	assert.Equal(t, 0, a.Gems)
	assert.Equal(t, 0, a.Reputation)
	assert.Equal(t, a.MaxHealth, a.Health)
	assert.Equal(t, 0, a.UnitExp)
	assert.Equal(t, "负伤", a.Status)

	// 只记录实际发生的变化
	assert.Equal(t, -30, st.Delta(models.KindCurrency, string(models.CurrencyCoins)))
	assert.Equal(t, 10, st.Delta(models.KindHealth, ""))
	kinds := map[string]bool{}
	for _, e := range st.Applied {
		kinds[e.Kind+":"+e.Target] = true
	}
	assert.Equal(t, map[string]bool{
		"currency:coins": true,
		"health:":        true,
		"status:":        true,
	}, kinds)

	t.Run("health floors at zero", func(t *testing.T) {
		_, err := f.ledger.Apply(ctx, "caocao", models.NewBundle(models.HealthDelta{Amount: -500}), models.NoCost)
		require.NoError(t, err)
		assert.Equal(t, 0, f.actor(t, "caocao").Health)
	})
}

func TestLedgerSaturatesHugeGrants(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testCatalog(t), testConfig())
	f.register(t, "liubei")

	st, err := f.ledger.Apply(ctx, "liubei", models.NewBundle(
		models.CurrencyDelta{Currency: models.CurrencyCoins, Amount: math.MaxInt},
	), models.NoCost)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, st.Actor.Coins)
	assert.Equal(t, math.MaxInt-1000, st.Delta(models.KindCurrency, string(models.CurrencyCoins)))
	assert.Equal(t, math.MaxInt, f.actor(t, "liubei").Coins)

	st, err = f.ledger.Apply(ctx, "liubei", models.NewBundle(
		models.CurrencyDelta{Currency: models.CurrencyCoins, Amount: math.MaxInt},
	), models.NoCost)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, st.Actor.Coins)
	assert.Equal(t, 0, st.Delta(models.KindCurrency, string(models.CurrencyCoins)))
}

func TestClampedAdd(t *testing.T) {
	tests := []struct {
		name          string
		v, delta      int
		lo, hi        int
		want, applied int
	}{
		{"plain", 10, 5, 0, -1, 15, 5},
		{"floor", 10, -50, 0, -1, 0, -10},
		{"ceiling", 90, 40, 0, 100, 100, 10},
		{"overflow", math.MaxInt - 1, 10, 0, -1, math.MaxInt, 1},
		{"underflow", math.MinInt + 1, -10, math.MinInt, -1, math.MinInt, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.v
			applied := clampedAdd(&v, tt.delta, tt.lo, tt.hi)
			assert.Equal(t, tt.want, v)
			assert.Equal(t, tt.applied, applied)
		})
	}
}

func TestLedgerLeaderCascade(t *testing.T) {
	ctx := context.Background()

	t.Run("several levels at once", func(t *testing.T) {
		f := newFixture(t, testCatalog(t), testConfig())
		f.register(t, "sunquan")
		f.update(t, "sunquan", func(a *models.Actor) { a.Health = 20 })

		// 100 + 120 + 144 = 364，剩余 36，第4级需要 173
		st, err := f.ledger.Apply(ctx, "sunquan",
			models.NewBundle(models.ExperienceDelta{Pool: models.ExpLeader, Amount: 400}), models.NoCost)
		require.NoError(t, err)

		a := f.actor(t, "sunquan")
		assert.Equal(t, 4, a.LeaderLevel)
		assert.Equal(t, 36, a.LeaderExp)
		assert.Equal(t, 16, a.Attack)
		assert.Equal(t, 8, a.Defense)
		assert.Equal(t, 130, a.MaxHealth)
		assert.Equal(t, 130, a.Health)

		require.Len(t, st.LevelUps, 1)
		assert.Equal(t, models.LevelUp{Target: "leader", Name: "sunquan公", From: 1, To: 4}, st.LevelUps[0])
		assert.Contains(t, st.Message, "主公升至 4 级")
		assert.Equal(t, 3.0, counterValue(t, f, "leader"))
	})

	t.Run("stops at max level", func(t *testing.T) {
		cfg := testConfig()
		cfg.Leveling.MaxLevel = 2
		f := newFixture(t, testCatalog(t), cfg)
		f.register(t, "sunquan")

		_, err := f.ledger.Apply(ctx, "sunquan",
			models.NewBundle(models.ExperienceDelta{Pool: models.ExpLeader, Amount: 400}), models.NoCost)
		require.NoError(t, err)

		a := f.actor(t, "sunquan")
		assert.Equal(t, 2, a.LeaderLevel)
		assert.Equal(t, 300, a.LeaderExp)
	})
}

func TestLevelUpUnit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testCatalog(t), testConfig())
	f.register(t, "liubei")
	f.register(t, "caocao")
	f.update(t, "liubei", func(a *models.Actor) { a.UnitExp = 200 })
	mine := f.addUnit(t, "liubei", "guan_yu", 1)
	theirs := f.addUnit(t, "caocao", "zhao_yun", 1)

	t.Run("transfers pool experience", func(t *testing.T) {
		// 50 + 60 = 110
		st, err := f.ledger.LevelUpUnit(ctx, "liubei", mine.ID, 110)
		require.NoError(t, err)

		inst, err := f.store.GetUnitInstance(ctx, mine.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, inst.Level)
		assert.Equal(t, 0, inst.Exp)
		assert.Equal(t, 90, f.actor(t, "liubei").UnitExp)

		require.Len(t, st.LevelUps, 1)
		assert.Equal(t, "关羽", st.LevelUps[0].Name)
		assert.Contains(t, st.Message, "关羽 升至 3 级")
	})

	t.Run("not enough pool experience", func(t *testing.T) {
		_, err := f.ledger.LevelUpUnit(ctx, "liubei", mine.ID, 500)
		assert.ErrorIs(t, err, models.ErrInsufficientFunds)
	})

	t.Run("non positive amount", func(t *testing.T) {
		_, err := f.ledger.LevelUpUnit(ctx, "liubei", mine.ID, 0)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})

	t.Run("someone else's unit rolls back", func(t *testing.T) {
		_, err := f.ledger.LevelUpUnit(ctx, "liubei", theirs.ID, 10)
		require.ErrorIs(t, err, models.ErrUnitNotOwned)
		assert.Equal(t, 90, f.actor(t, "liubei").UnitExp)
	})
}

func TestLedgerItems(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testCatalog(t), testConfig())
	f.register(t, "liubei")
	f.addUnit(t, "liubei", "soldier", 1)
	f.addUnit(t, "liubei", "guan_yu", 3)

	bundle := models.NewBundle(
		models.GrantItem{ItemID: "herb", Quantity: 2},
		models.GrantItem{ItemID: "war_manual", Quantity: 1},
	)
	st, err := f.ledger.Apply(ctx, "liubei", bundle, models.NoCost)
	require.NoError(t, err)
	assert.Contains(t, st.Message, "【草药】x2")

	items, err := f.actors.ListInventory(ctx, "liubei")
	require.NoError(t, err)
	require.Len(t, items, 2)

	byID := map[string]InventoryItem{}
	for _, it := range items {
		byID[it.ItemID] = it
	}
	assert.Equal(t, 2, byID["herb"].Quantity)
	assert.Equal(t, 10, byID["herb"].Value)
	// 缩放道具价值按最强武将等级冻结
	assert.Equal(t, 300, byID["war_manual"].Value)
	assert.Equal(t, map[string]int{"value": 300}, byID["war_manual"].Properties)

	t.Run("unknown item", func(t *testing.T) {
		_, err := f.ledger.Apply(ctx, "liubei", models.NewBundle(models.GrantItem{ItemID: "jade_seal"}), models.NoCost)
		assert.ErrorIs(t, err, models.ErrItemNotFound)
	})

	t.Run("unknown effect", func(t *testing.T) {
		_, err := f.ledger.Apply(ctx, "liubei", models.NewBundle(nil), models.NoCost)
		assert.ErrorIs(t, err, models.ErrUnknownEffect)
	})
}
