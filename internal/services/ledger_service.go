package services

import (
	"context"
	"fmt"
	"maps"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/aiwuxian/sanguo-rpg/internal/catalog"
	"github.com/aiwuxian/sanguo-rpg/internal/metrics"
	"github.com/aiwuxian/sanguo-rpg/internal/models"
	"github.com/aiwuxian/sanguo-rpg/internal/storage"
)

const leaderTarget = "leader"

// LedgerService 奖励结算：扣除消耗、应用效果、连续升级，并写回存储
type LedgerService struct {
	storage *storage.Storage
	content *catalog.Catalog
	rules   *RuleEngine
	config  models.LevelingConfig
	locks   *Locks
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewLedgerService(storage *storage.Storage, content *catalog.Catalog, rules *RuleEngine, config models.LevelingConfig, locks *Locks, m *metrics.Metrics, logger *zap.Logger) *LedgerService {
	if locks == nil {
		locks = NewLocks()
	}
	if m == nil {
		m = metrics.New()
	}
	return &LedgerService{
		storage: storage,
		content: content,
		rules:   rules,
		config:  config,
		locks:   locks,
		metrics: m,
		logger:  logger.Named("ledger"),
	}
}

// Apply 加锁读取玩家后结算
func (ls *LedgerService) Apply(ctx context.Context, actorID string, bundle models.RewardBundle, cost models.Cost) (*models.Settlement, error) {
	unlock := ls.locks.Lock(actorID)
	defer unlock()

	actor, err := ls.storage.GetActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	var settlement *models.Settlement
	err = ls.storage.InTx(ctx, func(tx *storage.Storage) error {
		settlement, err = ls.ApplyTo(ctx, tx, actor, bundle, cost)
		return err
	})
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

// ApplyTo 调用方已持有玩家锁。tx 为当前事务，actor 仅在成功时被更新。
func (ls *LedgerService) ApplyTo(ctx context.Context, tx *storage.Storage, actor *models.Actor, bundle models.RewardBundle, cost models.Cost) (*models.Settlement, error) {
	next := *actor
	next.Cooldowns = maps.Clone(actor.Cooldowns)

	if cost.Amount > 0 {
		balance := balanceOf(&next, cost.Currency)
		if *balance < cost.Amount {
			return nil, fmt.Errorf("%w: 需要 %d %s，当前 %d", models.ErrInsufficientFunds, cost.Amount, cost.Currency.Label(), *balance)
		}
		*balance -= cost.Amount
	}

	st := &models.Settlement{Cost: cost}
	record := func(e models.AppliedEffect) {
		if e.Amount != 0 || e.Status != "" {
			st.Applied = append(st.Applied, e)
		}
	}

	strongest := -1
	for _, effect := range bundle.Effects {
		switch e := effect.(type) {
		case models.CurrencyDelta:
			balance := balanceOf(&next, e.Currency)
			delta := clampedAdd(balance, e.Amount, 0, -1)
			record(models.AppliedEffect{Kind: models.KindCurrency, Target: string(e.Currency), Amount: delta})

		case models.ExperienceDelta:
			applied, err := ls.applyExperience(ctx, tx, &next, e, st)
			if err != nil {
				return nil, err
			}
			target := string(e.Pool)
			if e.Pool == models.ExpUnit {
				target = e.UnitInstanceID
			}
			record(models.AppliedEffect{Kind: models.KindExperience, Target: target, Amount: applied})

		case models.ReputationDelta:
			delta := clampedAdd(&next.Reputation, e.Amount, 0, -1)
			record(models.AppliedEffect{Kind: models.KindReputation, Amount: delta})

		case models.HealthDelta:
			delta := clampedAdd(&next.Health, e.Amount, 0, next.MaxHealth)
			record(models.AppliedEffect{Kind: models.KindHealth, Amount: delta})

		case models.GrantItem:
			item, ok := ls.content.Item(e.ItemID)
			if !ok {
				return nil, fmt.Errorf("%w: %s", models.ErrItemNotFound, e.ItemID)
			}
			qty := e.Quantity
			if qty <= 0 {
				qty = 1
			}
			var props map[string]int
			if item.Scaled {
				if strongest < 0 {
					level, err := strongestUnitLevel(ctx, tx, next.ID)
					if err != nil {
						return nil, err
					}
					strongest = level
				}
				props = map[string]int{"value": item.Value * max(1, strongest)}
			}
			// 每件单独发放，缩放道具各自保存价值
			for i := 0; i < qty; i++ {
				if err := tx.AddItem(ctx, next.ID, item.ID, 1, props); err != nil {
					return nil, fmt.Errorf("发放道具失败: %w", err)
				}
			}
			record(models.AppliedEffect{Kind: models.KindItem, Target: item.ID, Amount: qty})

		case models.SetStatus:
			next.Status = e.Status
			record(models.AppliedEffect{Kind: models.KindStatus, Status: e.Status})

		default:
			return nil, fmt.Errorf("%w: %T", models.ErrUnknownEffect, effect)
		}
	}

	if err := tx.UpdateActor(ctx, &next); err != nil {
		return nil, fmt.Errorf("更新玩家失败: %w", err)
	}
	*actor = next

	st.Actor = actor
	st.Message = ls.describe(st)
	ls.metrics.RewardsApplied.Inc()
	for _, lu := range st.LevelUps {
		label := "unit"
		if lu.Target == leaderTarget {
			label = leaderTarget
		}
		ls.metrics.LevelUps.WithLabelValues(label).Add(float64(lu.To - lu.From))
	}
	ls.logger.Debug("结算完成",
		zap.String("actor_id", actor.ID),
		zap.Int("effects", len(st.Applied)),
		zap.Int("level_ups", len(st.LevelUps)))
	return st, nil
}

// applyExperience 返回钳制后的实际变化量
func (ls *LedgerService) applyExperience(ctx context.Context, tx *storage.Storage, actor *models.Actor, e models.ExperienceDelta, st *models.Settlement) (int, error) {
	switch e.Pool {
	case models.ExpUnitPool:
		return clampedAdd(&actor.UnitExp, e.Amount, 0, -1), nil

	case models.ExpLeader:
		delta := clampedAdd(&actor.LeaderExp, e.Amount, 0, -1)
		from := actor.LeaderLevel
		level, rest := ls.rules.CheckLevelUp(actor.LeaderLevel, actor.LeaderExp, ls.rules.LeaderRequired)
		if gained := level - from; gained > 0 {
			actor.Attack += gained * ls.config.AttackPerLevel
			actor.Defense += gained * ls.config.DefensePerLevel
			actor.MaxHealth += gained * ls.config.HealthPerLevel
			actor.Health = actor.MaxHealth
			st.LevelUps = append(st.LevelUps, models.LevelUp{Target: leaderTarget, Name: actor.Name, From: from, To: level})
		}
		actor.LeaderLevel, actor.LeaderExp = level, rest
		return delta, nil

	case models.ExpUnit:
		inst, err := tx.GetUnitInstance(ctx, e.UnitInstanceID)
		if err != nil {
			return 0, err
		}
		if inst.ActorID != actor.ID {
			return 0, fmt.Errorf("%w: %s", models.ErrUnitNotOwned, e.UnitInstanceID)
		}
		delta := clampedAdd(&inst.Exp, e.Amount, 0, -1)
		from := inst.Level
		inst.Level, inst.Exp = ls.rules.CheckLevelUp(inst.Level, inst.Exp, ls.rules.UnitRequired)
		if inst.Level > from {
			name := inst.UnitID
			if u, ok := ls.content.Unit(inst.UnitID); ok {
				name = u.Name
			}
			st.LevelUps = append(st.LevelUps, models.LevelUp{Target: inst.ID, Name: name, From: from, To: inst.Level})
		}
		if err := tx.UpdateUnitLevelExp(ctx, inst.ID, inst.Level, inst.Exp); err != nil {
			return 0, fmt.Errorf("更新武将失败: %w", err)
		}
		return delta, nil
	}
	return 0, fmt.Errorf("%w: 经验去向 %q", models.ErrUnknownEffect, e.Pool)
}

// LevelUpUnit 从武将经验池转移经验给指定武将
func (ls *LedgerService) LevelUpUnit(ctx context.Context, actorID, instanceID string, amount int) (*models.Settlement, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: 经验数量必须大于0", models.ErrInvalidInput)
	}

	unlock := ls.locks.Lock(actorID)
	defer unlock()

	actor, err := ls.storage.GetActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.UnitExp < amount {
		return nil, fmt.Errorf("%w: 武将经验池只有 %d", models.ErrInsufficientFunds, actor.UnitExp)
	}

	bundle := models.NewBundle(
		models.ExperienceDelta{Pool: models.ExpUnitPool, Amount: -amount},
		models.ExperienceDelta{Pool: models.ExpUnit, UnitInstanceID: instanceID, Amount: amount},
	)

	var settlement *models.Settlement
	err = ls.storage.InTx(ctx, func(tx *storage.Storage) error {
		settlement, err = ls.ApplyTo(ctx, tx, actor, bundle, models.NoCost)
		return err
	})
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

// describe 结算文案
func (ls *LedgerService) describe(st *models.Settlement) string {
	var parts []string
	if st.Cost.Amount > 0 {
		parts = append(parts, fmt.Sprintf("消耗 %d %s", st.Cost.Amount, st.Cost.Currency.Label()))
	}

	var gains []string
	for _, e := range st.Applied {
		switch e.Kind {
		case models.KindCurrency:
			gains = append(gains, fmt.Sprintf("%s%+d", models.Currency(e.Target).Label(), e.Amount))
		case models.KindExperience:
			switch models.ExpPool(e.Target) {
			case models.ExpLeader:
				gains = append(gains, fmt.Sprintf("主公经验%+d", e.Amount))
			case models.ExpUnitPool:
				gains = append(gains, fmt.Sprintf("武将经验%+d", e.Amount))
			default:
				gains = append(gains, fmt.Sprintf("%s经验%+d", ls.instanceName(st, e.Target), e.Amount))
			}
		case models.KindReputation:
			gains = append(gains, fmt.Sprintf("声望%+d", e.Amount))
		case models.KindHealth:
			gains = append(gains, fmt.Sprintf("生命%+d", e.Amount))
		case models.KindItem:
			name := e.Target
			if it, ok := ls.content.Item(e.Target); ok {
				name = it.Name
			}
			gains = append(gains, fmt.Sprintf("【%s】x%d", name, e.Amount))
		case models.KindStatus:
			gains = append(gains, "状态变为「"+e.Status+"」")
		}
	}
	if len(gains) > 0 {
		parts = append(parts, "获得 "+strings.Join(gains, "、"))
	}

	for _, lu := range st.LevelUps {
		if lu.Target == leaderTarget {
			parts = append(parts, fmt.Sprintf("主公升至 %d 级", lu.To))
		} else {
			parts = append(parts, fmt.Sprintf("%s 升至 %d 级", lu.Name, lu.To))
		}
	}
	if len(parts) == 0 {
		return "无变化"
	}
	return strings.Join(parts, "；")
}

func (ls *LedgerService) instanceName(st *models.Settlement, id string) string {
	for _, lu := range st.LevelUps {
		if lu.Target == id {
			return lu.Name
		}
	}
	return "武将"
}

func balanceOf(actor *models.Actor, c models.Currency) *int {
	if c == models.CurrencyGems {
		return &actor.Gems
	}
	return &actor.Coins
}

// clampedAdd 把 delta 加到 *v 上并钳制在 [lo, hi]，hi < 0 表示无上限，溢出时饱和。返回实际变化量。
func clampedAdd(v *int, delta, lo, hi int) int {
	before := *v
	var after int
	switch {
	case delta > 0 && before > math.MaxInt-delta:
		after = math.MaxInt
	case delta < 0 && before < math.MinInt-delta:
		after = math.MinInt
	default:
		after = before + delta
	}
	if after < lo {
		after = lo
	}
	if hi >= 0 && after > hi {
		after = hi
	}
	*v = after
	return after - before
}

func strongestUnitLevel(ctx context.Context, tx *storage.Storage, actorID string) (int, error) {
	units, err := tx.ListUnitInstances(ctx, actorID)
	if err != nil {
		return 0, fmt.Errorf("读取武将失败: %w", err)
	}
	level := 0
	for _, u := range units {
		level = max(level, u.Level)
	}
	return level, nil
}
