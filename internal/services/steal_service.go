package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aiwuxian/sanguo-rpg/internal/catalog"
	"github.com/aiwuxian/sanguo-rpg/internal/models"
	"github.com/aiwuxian/sanguo-rpg/internal/rng"
	"github.com/aiwuxian/sanguo-rpg/internal/storage"
)

// StealOutcome 一次偷窃的结果
type StealOutcome struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Thief   *models.Settlement `json:"thief"`
	Victim  *models.Settlement `json:"victim,omitempty"`
	Log     *models.BattleLog  `json:"log"`
}

// StealService 偷窃其他玩家
type StealService struct {
	storage *storage.Storage
	content *catalog.Catalog
	ledger  *LedgerService
	config  models.GameConfig
	logger  *zap.Logger
}

func NewStealService(storage *storage.Storage, content *catalog.Catalog, ledger *LedgerService, config models.GameConfig, logger *zap.Logger) *StealService {
	return &StealService{
		storage: storage,
		content: content,
		ledger:  ledger,
		config:  config,
		logger:  logger.Named("steal"),
	}
}

// Steal 失败被罚铜钱；成功时优先偷道具，对方背包为空则偷铜钱或元宝
func (ss *StealService) Steal(ctx context.Context, thiefID, victimID string) (*StealOutcome, error) {
	if thiefID == victimID {
		return nil, models.ErrSelfTarget
	}

	unlock := ss.ledger.locks.Lock(thiefID, victimID)
	defer unlock()

	thief, err := ss.storage.GetActor(ctx, thiefID)
	if err != nil {
		return nil, err
	}
	victim, err := ss.storage.GetActor(ctx, victimID)
	if err != nil {
		return nil, fmt.Errorf("目标玩家%w", err)
	}

	now := ss.ledger.rules.Now()
	if err := models.CheckCooldown(thief, models.ActivitySteal, ss.config.Cooldowns.Steal, now); err != nil {
		return nil, err
	}

	cfg := ss.config.Steal
	src := ss.ledger.rules.Rand()
	out := &StealOutcome{}
	log := &models.BattleLog{
		ID:        uuid.New().String(),
		ActorID:   thiefID,
		Kind:      models.BattleSteal,
		Target:    victimID,
		CreatedAt: now,
	}

	err = ss.storage.InTx(ctx, func(tx *storage.Storage) error {
		thief.MarkCooldown(models.ActivitySteal, now)

		var thiefBundle, victimBundle models.RewardBundle
		if src.Float64() < cfg.FailChance {
			fine := rng.Between(src, cfg.FineMin, cfg.FineMax)
			thiefBundle.Add(models.CurrencyDelta{Currency: models.CurrencyCoins, Amount: -fine})
			out.Message = fmt.Sprintf("偷窃失败！你被 %s 发现了，被罚款 %d 铜钱。", victim.Name, min(fine, thief.Coins))
		} else {
			out.Success = true
			msg, err := ss.loot(ctx, tx, src, thiefID, victim, &thiefBundle, &victimBundle)
			if err != nil {
				return err
			}
			out.Message = msg
		}

		var err error
		if out.Thief, err = ss.ledger.ApplyTo(ctx, tx, thief, thiefBundle, models.NoCost); err != nil {
			return err
		}
		if !victimBundle.IsEmpty() {
			if out.Victim, err = ss.ledger.ApplyTo(ctx, tx, victim, victimBundle, models.NoCost); err != nil {
				return err
			}
		}

		log.Win = out.Success
		log.Detail = out.Message
		return tx.CreateBattleLog(ctx, log)
	})
	if err != nil {
		return nil, fmt.Errorf("偷窃结算失败: %w", err)
	}
	out.Log = log

	label := "fail"
	if out.Success {
		label = "success"
	}
	ss.ledger.metrics.Steals.WithLabelValues(label).Inc()
	ss.logger.Info("偷窃",
		zap.String("thief_id", thiefID),
		zap.String("victim_id", victimID),
		zap.Bool("success", out.Success))
	return out, nil
}

// loot 成功后的收获。道具直接在两个背包间移动，保留实例属性。
func (ss *StealService) loot(ctx context.Context, tx *storage.Storage, src rng.Source, thiefID string, victim *models.Actor,
	thiefBundle, victimBundle *models.RewardBundle) (string, error) {
	cfg := ss.config.Steal

	entries, err := tx.ListItems(ctx, victim.ID)
	if err != nil {
		return "", fmt.Errorf("读取目标背包失败: %w", err)
	}
	if entry, ok := rng.Pick(src, entries); ok {
		taken, err := tx.TakeItem(ctx, victim.ID, entry.ID)
		if err != nil {
			return "", err
		}
		if err := tx.AddItem(ctx, thiefID, taken.ItemID, 1, taken.Properties); err != nil {
			return "", fmt.Errorf("转移道具失败: %w", err)
		}
		name := taken.ItemID
		if it, ok := ss.content.Item(taken.ItemID); ok {
			name = it.Name
		}
		return fmt.Sprintf("偷窃成功！你从 %s 那里偷到了【%s】x1。", victim.Name, name), nil
	}

	currency, share := models.CurrencyCoins, cfg.MaxCoinShare
	if src.Float64() >= cfg.CoinChance {
		currency, share = models.CurrencyGems, cfg.MaxGemShare
	}
	limit := int(float64(*balanceOf(victim, currency)) * share)
	if limit <= 0 {
		return fmt.Sprintf("你成功接近了 %s，但对方身无分文，你一无所获。", victim.Name), nil
	}

	amount := rng.Between(src, 1, limit)
	thiefBundle.Add(models.CurrencyDelta{Currency: currency, Amount: amount})
	victimBundle.Add(models.CurrencyDelta{Currency: currency, Amount: -amount})
	return fmt.Sprintf("你发现 %s 背包空空如也，但还是成功偷到了 %d %s。", victim.Name, amount, currency.Label()), nil
}
