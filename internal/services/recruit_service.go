package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aiwuxian/sanguo-rpg/internal/catalog"
	"github.com/aiwuxian/sanguo-rpg/internal/combat"
	"github.com/aiwuxian/sanguo-rpg/internal/gacha"
	"github.com/aiwuxian/sanguo-rpg/internal/models"
	"github.com/aiwuxian/sanguo-rpg/internal/storage"
)

// RecruitOutcome 一次招募的结果
type RecruitOutcome struct {
	gacha.Result
	Instance   *models.UnitInstance `json:"instance,omitempty"` // 重复时为空
	Settlement *models.Settlement   `json:"settlement"`
	Message    string               `json:"message"`
}

// OwnedUnit 玩家武将及其图鉴信息
type OwnedUnit struct {
	models.UnitInstance
	Unit  models.Unit `json:"unit"`
	Power float64     `json:"power"`
}

// RecruitService 武将招募
type RecruitService struct {
	storage *storage.Storage
	content *catalog.Catalog
	ledger  *LedgerService
	engine  *gacha.Engine
	config  models.GameConfig
	logger  *zap.Logger
}

func NewRecruitService(storage *storage.Storage, content *catalog.Catalog, ledger *LedgerService,
	engine *gacha.Engine, config models.GameConfig, logger *zap.Logger) *RecruitService {
	return &RecruitService{
		storage: storage,
		content: content,
		ledger:  ledger,
		engine:  engine,
		config:  config,
		logger:  logger.Named("recruit"),
	}
}

// Draw 招募一次。余额不足时不抽取、不改动保底；抽到已有武将不扣费，但冷却照常。
func (rs *RecruitService) Draw(ctx context.Context, actorID string) (*RecruitOutcome, error) {
	unlock := rs.ledger.locks.Lock(actorID)
	defer unlock()

	actor, err := rs.storage.GetActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	now := rs.ledger.rules.Now()
	if err := models.CheckCooldown(actor, models.ActivityRecruit, rs.config.Cooldowns.Recruit, now); err != nil {
		return nil, err
	}
	if actor.Gems < rs.config.RecruitCost {
		return nil, fmt.Errorf("%w: 招募需要 %d 元宝，当前 %d", models.ErrInsufficientFunds, rs.config.RecruitCost, actor.Gems)
	}

	instances, err := rs.storage.ListUnitInstances(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("读取武将失败: %w", err)
	}
	owned := make(map[string]bool, len(instances))
	for _, inst := range instances {
		owned[inst.UnitID] = true
	}

	res, err := rs.engine.Draw(actor.Pity, actor.Reputation, owned)
	if err != nil {
		return nil, err
	}

	out := &RecruitOutcome{Result: res}
	err = rs.storage.InTx(ctx, func(tx *storage.Storage) error {
		actor.Pity = res.Pity
		actor.MarkCooldown(models.ActivityRecruit, now)

		cost := models.NoCost
		if !res.Duplicate {
			cost = models.Cost{Currency: models.CurrencyGems, Amount: rs.config.RecruitCost}
			out.Instance = &models.UnitInstance{
				ID:         uuid.New().String(),
				ActorID:    actorID,
				UnitID:     res.Unit.ID,
				Level:      1,
				AcquiredAt: now,
			}
			if err := tx.CreateUnitInstance(ctx, out.Instance); err != nil {
				return fmt.Errorf("保存武将失败: %w", err)
			}
		}

		var err error
		out.Settlement, err = rs.ledger.ApplyTo(ctx, tx, actor, models.RewardBundle{}, cost)
		return err
	})
	if err != nil {
		return nil, err
	}

	if res.Duplicate {
		out.Message = fmt.Sprintf("招募到 %s【%s】，但你已拥有该武将，本次不消耗元宝。", res.Rarity, res.Unit.Name)
	} else {
		out.Message = fmt.Sprintf("招募成功！%s【%s】加入麾下，消耗 %d 元宝。", res.Rarity, res.Unit.Name, rs.config.RecruitCost)
	}

	rs.ledger.metrics.GachaDraws.WithLabelValues(strconv.Itoa(int(res.Rarity)), strconv.FormatBool(res.Duplicate)).Inc()
	if res.Forced {
		rs.ledger.metrics.PityTriggers.WithLabelValues(strconv.Itoa(int(res.Rarity))).Inc()
	}
	rs.logger.Info("招募",
		zap.String("actor_id", actorID),
		zap.String("unit", res.Unit.ID),
		zap.Int("rarity", int(res.Rarity)),
		zap.Bool("forced", res.Forced),
		zap.Bool("duplicate", res.Duplicate),
		zap.Int("pity_epic", res.Pity.Epic),
		zap.Int("pity_legendary", res.Pity.Legendary))
	return out, nil
}

// Rates 当前声望下的招募概率
func (rs *RecruitService) Rates(ctx context.Context, actorID string) ([]gacha.TierRate, error) {
	actor, err := rs.storage.GetActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return rs.engine.Rates(actor.Reputation), nil
}

// ListUnits 玩家拥有的武将
func (rs *RecruitService) ListUnits(ctx context.Context, actorID string) ([]OwnedUnit, error) {
	if _, err := rs.storage.GetActor(ctx, actorID); err != nil {
		return nil, err
	}
	instances, err := rs.storage.ListUnitInstances(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("读取武将失败: %w", err)
	}

	units := make([]OwnedUnit, 0, len(instances))
	for _, inst := range instances {
		u, ok := rs.content.Unit(inst.UnitID)
		if !ok {
			rs.logger.Warn("武将不在图鉴中", zap.String("unit", inst.UnitID))
			continue
		}
		units = append(units, OwnedUnit{UnitInstance: inst, Unit: u, Power: combat.UnitPower(u, inst.Level)})
	}
	return units, nil
}
