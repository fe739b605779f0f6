package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aiwuxian/sanguo-rpg/internal/catalog"
	"github.com/aiwuxian/sanguo-rpg/internal/combat"
	"github.com/aiwuxian/sanguo-rpg/internal/models"
	"github.com/aiwuxian/sanguo-rpg/internal/storage"
)

// BattleOutcome 一场副本的结果
type BattleOutcome struct {
	Challenge  models.Challenge   `json:"challenge"`
	Result     combat.Result      `json:"result"`
	Log        *models.BattleLog  `json:"log"`
	Settlement *models.Settlement `json:"settlement"`
}

// BattleService 副本挑战
type BattleService struct {
	storage  *storage.Storage
	content  *catalog.Catalog
	ledger   *LedgerService
	resolver *combat.Resolver
	config   models.GameConfig
	logger   *zap.Logger
}

func NewBattleService(storage *storage.Storage, content *catalog.Catalog, ledger *LedgerService,
	resolver *combat.Resolver, config models.GameConfig, logger *zap.Logger) *BattleService {
	return &BattleService{
		storage:  storage,
		content:  content,
		ledger:   ledger,
		resolver: resolver,
		config:   config,
		logger:   logger.Named("battle"),
	}
}

// ListChallenges 全部副本
func (bs *BattleService) ListChallenges() []models.Challenge {
	return bs.content.Challenges
}

// ResolveBattle 挑战副本。unitIDs 可以是武将实例ID，也可以是图鉴ID。
// 门票需在开战前备足，只在胜利结算时扣除；战败不改变任何货币。
func (bs *BattleService) ResolveBattle(ctx context.Context, actorID, challengeID string, unitIDs []string) (*BattleOutcome, error) {
	unlock := bs.ledger.locks.Lock(actorID)
	defer unlock()

	ch, ok := bs.content.Challenge(challengeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrChallengeNotFound, challengeID)
	}

	actor, err := bs.storage.GetActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	now := bs.ledger.rules.Now()
	if err := models.CheckCooldown(actor, models.ActivityDungeon, bs.config.Cooldowns.Dungeon, now); err != nil {
		return nil, err
	}

	party, err := bs.party(ctx, actorID, unitIDs)
	if err != nil {
		return nil, err
	}
	leader := combat.Leader{Level: actor.LeaderLevel, Attack: actor.Attack, Defense: actor.Defense}
	if err := combat.Check(party, leader, ch); err != nil {
		return nil, err
	}
	if actor.Coins < ch.EntryFee {
		return nil, fmt.Errorf("%w: 门票 %d 铜钱，当前 %d", models.ErrInsufficientFunds, ch.EntryFee, actor.Coins)
	}

	result, err := bs.resolver.Resolve(party, leader, ch)
	if err != nil {
		return nil, err
	}

	log := &models.BattleLog{
		ID:         uuid.New().String(),
		ActorID:    actorID,
		Kind:       models.BattleDungeon,
		Target:     ch.ID,
		Win:        result.Win,
		PartyPower: result.PartyPower,
		EnemyPower: result.EnemyPower,
		CreatedAt:  now,
	}

	cost := models.NoCost
	if result.Win {
		cost = models.Cost{Currency: models.CurrencyCoins, Amount: ch.EntryFee}
	}

	var settlement *models.Settlement
	err = bs.storage.InTx(ctx, func(tx *storage.Storage) error {
		actor.MarkCooldown(models.ActivityDungeon, now)
		var err error
		settlement, err = bs.ledger.ApplyTo(ctx, tx, actor, result.Reward, cost)
		if err != nil {
			return err
		}
		log.Detail = settlement.Message
		return tx.CreateBattleLog(ctx, log)
	})
	if err != nil {
		return nil, fmt.Errorf("副本结算失败: %w", err)
	}

	label := "lose"
	if result.Win {
		label = "win"
	}
	bs.ledger.metrics.Battles.WithLabelValues(label).Inc()
	bs.logger.Info("副本战斗",
		zap.String("actor_id", actorID),
		zap.String("challenge", ch.ID),
		zap.Bool("win", result.Win),
		zap.Float64("party_power", result.PartyPower),
		zap.Float64("enemy_power", result.EnemyPower))

	return &BattleOutcome{Challenge: ch, Result: result, Log: log, Settlement: settlement}, nil
}

// party 解析出战武将，重复的ID只算一次
func (bs *BattleService) party(ctx context.Context, actorID string, unitIDs []string) ([]combat.Member, error) {
	owned, err := bs.storage.ListUnitInstances(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("读取武将失败: %w", err)
	}

	seen := make(map[string]bool, len(unitIDs))
	party := make([]combat.Member, 0, len(unitIDs))
	for _, id := range unitIDs {
		inst, ok := findInstance(owned, id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", models.ErrUnitNotOwned, id)
		}
		if seen[inst.ID] {
			continue
		}
		seen[inst.ID] = true

		unit, ok := bs.content.Unit(inst.UnitID)
		if !ok {
			return nil, fmt.Errorf("武将图鉴中没有 %s", inst.UnitID)
		}
		party = append(party, combat.Member{Instance: inst, Unit: unit})
	}
	return party, nil
}

func findInstance(owned []models.UnitInstance, id string) (models.UnitInstance, bool) {
	for _, inst := range owned {
		if inst.ID == id || inst.UnitID == id {
			return inst, true
		}
	}
	return models.UnitInstance{}, false
}

// BattleHistory 最近的战斗记录
func (bs *BattleService) BattleHistory(ctx context.Context, actorID string, limit int) ([]models.BattleLog, error) {
	if _, err := bs.storage.GetActor(ctx, actorID); err != nil {
		return nil, err
	}
	logs, err := bs.storage.ListBattleLogs(ctx, actorID, limit)
	if err != nil {
		return nil, fmt.Errorf("读取战斗记录失败: %w", err)
	}
	return logs, nil
}
