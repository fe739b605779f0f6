package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aiwuxian/sanguo-rpg/internal/catalog"
	"github.com/aiwuxian/sanguo-rpg/internal/models"
	"github.com/aiwuxian/sanguo-rpg/internal/storage"
)

// InventoryItem 背包条目及道具信息
type InventoryItem struct {
	models.InventoryEntry
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value int    `json:"value"`
}

// ActorService 玩家档案：注册、签到、背包
type ActorService struct {
	storage *storage.Storage
	content *catalog.Catalog
	ledger  *LedgerService
	config  models.GameConfig
	logger  *zap.Logger
}

func NewActorService(storage *storage.Storage, content *catalog.Catalog, ledger *LedgerService, config models.GameConfig, logger *zap.Logger) *ActorService {
	return &ActorService{
		storage: storage,
		content: content,
		ledger:  ledger,
		config:  config,
		logger:  logger.Named("actor"),
	}
}

// Register 注册新玩家，初始数值取自配置
func (s *ActorService) Register(ctx context.Context, id, name string) (*models.Actor, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" {
		return nil, fmt.Errorf("%w: 玩家ID不能为空", models.ErrInvalidInput)
	}
	if name == "" {
		name = id
	}

	unlock := s.ledger.locks.Lock(id)
	defer unlock()

	_, err := s.storage.GetActor(ctx, id)
	if err == nil {
		return nil, models.ErrAlreadyRegistered
	}
	if !errors.Is(err, models.ErrNotRegistered) {
		return nil, err
	}

	now := s.ledger.rules.Now()
	actor := &models.Actor{
		ID:          id,
		Name:        name,
		Coins:       s.config.InitialCoins,
		Gems:        s.config.InitialGems,
		LeaderLevel: 1,
		Health:      s.config.InitialHealth,
		MaxHealth:   s.config.InitialHealth,
		Attack:      s.config.InitialAttack,
		Defense:     s.config.InitialDefense,
		Cooldowns:   map[models.Activity]time.Time{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.storage.CreateActor(ctx, actor); err != nil {
		return nil, fmt.Errorf("创建玩家失败: %w", err)
	}

	s.logger.Info("🎉 新玩家注册", zap.String("actor_id", id), zap.String("name", name))
	return actor, nil
}

// GetActor 读取玩家
func (s *ActorService) GetActor(ctx context.Context, id string) (*models.Actor, error) {
	return s.storage.GetActor(ctx, id)
}

// SignIn 每日签到，同一自然日只能签一次
func (s *ActorService) SignIn(ctx context.Context, actorID string) (*models.Settlement, error) {
	unlock := s.ledger.locks.Lock(actorID)
	defer unlock()

	actor, err := s.storage.GetActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	now := s.ledger.rules.Now()
	if last, ok := actor.Cooldowns[models.ActivitySignIn]; ok && SameDay(now, last) {
		return nil, &models.CooldownError{Activity: models.ActivitySignIn, Remaining: NextMidnight(now).Sub(now)}
	}

	actor.MarkCooldown(models.ActivitySignIn, now)
	bundle := models.NewBundle(
		models.CurrencyDelta{Currency: models.CurrencyCoins, Amount: s.config.SignInCoins},
		models.ExperienceDelta{Pool: models.ExpLeader, Amount: s.config.SignInLeaderExp},
	)

	var settlement *models.Settlement
	err = s.storage.InTx(ctx, func(tx *storage.Storage) error {
		settlement, err = s.ledger.ApplyTo(ctx, tx, actor, bundle, models.NoCost)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("签到失败: %w", err)
	}
	settlement.Message = "签到成功！" + settlement.Message
	return settlement, nil
}

// ListInventory 背包，缩放道具显示获得时冻结的价值
func (s *ActorService) ListInventory(ctx context.Context, actorID string) ([]InventoryItem, error) {
	if _, err := s.storage.GetActor(ctx, actorID); err != nil {
		return nil, err
	}
	entries, err := s.storage.ListItems(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("读取背包失败: %w", err)
	}

	items := make([]InventoryItem, 0, len(entries))
	for _, e := range entries {
		view := InventoryItem{InventoryEntry: e, Name: e.ItemID}
		if it, ok := s.content.Item(e.ItemID); ok {
			view.Name = it.Name
			view.Type = string(it.Type)
			view.Value = it.Value
		}
		if v, ok := e.Properties["value"]; ok {
			view.Value = v
		}
		items = append(items, view)
	}
	return items, nil
}
