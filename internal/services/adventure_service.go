package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aiwuxian/sanguo-rpg/internal/models"
	"github.com/aiwuxian/sanguo-rpg/internal/narrative"
	"github.com/aiwuxian/sanguo-rpg/internal/rng"
	"github.com/aiwuxian/sanguo-rpg/internal/session"
	"github.com/aiwuxian/sanguo-rpg/internal/storage"
)

// 自动冒险的最大步数，防止内容成环时死循环
const maxAutoSteps = 32

// AdventureSession 进行中的冒险
type AdventureSession struct {
	State     narrative.State `json:"state"`
	Cost      int             `json:"cost"` // 入场花费的铜钱
	StartedAt time.Time       `json:"started_at"`
}

// AdventureStep 一次冒险操作的返回
type AdventureStep struct {
	Prompt     narrative.Prompt   `json:"prompt"`
	Cost       int                `json:"cost,omitempty"`
	Story      string             `json:"story,omitempty"` // 仅自动冒险返回完整经过
	Settlement *models.Settlement `json:"settlement,omitempty"`
}

// AdventureService 闯关：开始、选择、放弃、自动
type AdventureService struct {
	storage  *storage.Storage
	ledger   *LedgerService
	engine   *narrative.Engine
	sessions session.Store[AdventureSession]
	config   models.GameConfig
	narrator Narrator
	logger   *zap.Logger
}

func NewAdventureService(storage *storage.Storage, ledger *LedgerService, engine *narrative.Engine,
	sessions session.Store[AdventureSession], config models.GameConfig, logger *zap.Logger) *AdventureService {
	return &AdventureService{
		storage:  storage,
		ledger:   ledger,
		engine:   engine,
		sessions: sessions,
		config:   config,
		logger:   logger.Named("adventure"),
	}
}

// WithNarrator 设置结局润色，nil 表示不润色
func (as *AdventureService) WithNarrator(n Narrator) *AdventureService {
	as.narrator = n
	return as
}

// StartAdventure 开始冒险；已有进行中的冒险时直接返回当前进度，不再收费
func (as *AdventureService) StartAdventure(ctx context.Context, actorID string) (*AdventureStep, error) {
	unlock := as.ledger.locks.Lock(actorID)
	defer unlock()

	actor, err := as.storage.GetActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	step, _, err := as.start(ctx, actor)
	return step, err
}

func (as *AdventureService) start(ctx context.Context, actor *models.Actor) (*AdventureStep, AdventureSession, error) {
	sess, ok, err := as.sessions.Get(ctx, actor.ID)
	if err != nil {
		return nil, AdventureSession{}, fmt.Errorf("读取冒险进度失败: %w", err)
	}
	if ok {
		prompt := narrative.PromptFor(sess.State)
		prompt.Resumed = true
		return &AdventureStep{Prompt: prompt, Cost: sess.Cost}, sess, nil
	}

	now := as.ledger.rules.Now()
	if err := models.CheckCooldown(actor, models.ActivityAdventure, as.config.Cooldowns.Adventure, now); err != nil {
		return nil, AdventureSession{}, err
	}

	cost := rng.Between(as.ledger.rules.Rand(), as.config.AdventureCostMin, as.config.AdventureCostMax)
	if cost > 0 {
		err = as.storage.InTx(ctx, func(tx *storage.Storage) error {
			_, err := as.ledger.ApplyTo(ctx, tx, actor, models.RewardBundle{}, models.Cost{Currency: models.CurrencyCoins, Amount: cost})
			return err
		})
		if err != nil {
			return nil, AdventureSession{}, err
		}
	}

	state, prompt := as.engine.Start(actor.Name)
	sess = AdventureSession{State: state, Cost: cost, StartedAt: now}
	if err := as.sessions.Put(ctx, actor.ID, sess); err != nil {
		return nil, AdventureSession{}, fmt.Errorf("保存冒险进度失败: %w", err)
	}

	as.ledger.metrics.AdventuresStarted.Inc()
	as.logger.Info("冒险开始",
		zap.String("actor_id", actor.ID),
		zap.String("opening", state.OpeningID),
		zap.String("event", state.EventID),
		zap.Int("cost", cost))
	return &AdventureStep{Prompt: prompt, Cost: cost}, sess, nil
}

// AdvanceAdventure 按 1 开始的序号做出选择。到达结局时结算奖励并结束冒险。
func (as *AdventureService) AdvanceAdventure(ctx context.Context, actorID string, choice int) (*AdventureStep, error) {
	unlock := as.ledger.locks.Lock(actorID)
	defer unlock()

	actor, err := as.storage.GetActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	sess, ok, err := as.sessions.Get(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("读取冒险进度失败: %w", err)
	}
	if !ok {
		return nil, models.ErrNoActiveSession
	}
	return as.advance(ctx, actor, sess, choice)
}

func (as *AdventureService) advance(ctx context.Context, actor *models.Actor, sess AdventureSession, choice int) (*AdventureStep, error) {
	out, err := as.engine.Advance(sess.State, choice, actor.Name)
	if errors.Is(err, models.ErrBrokenNarrativeLink) {
		// 内容损坏，结束会话，不退款
		if delErr := as.sessions.Delete(ctx, actor.ID); delErr != nil {
			as.logger.Warn("删除冒险进度失败", zap.String("actor_id", actor.ID), zap.Error(delErr))
		}
		as.ledger.metrics.AdventuresFinished.WithLabelValues("broken").Inc()
		as.logger.Error("剧情链接断裂",
			zap.String("actor_id", actor.ID),
			zap.String("node", sess.State.NodeID),
			zap.Error(err))
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if !out.Prompt.IsFinal {
		sess.State = out.State
		if err := as.sessions.Put(ctx, actor.ID, sess); err != nil {
			return nil, fmt.Errorf("保存冒险进度失败: %w", err)
		}
		return &AdventureStep{Prompt: out.Prompt, Cost: sess.Cost}, nil
	}

	prompt := out.Prompt
	if as.narrator != nil {
		text, err := as.narrator.Narrate(ctx, actor.Name, sess.State.Story, prompt.Text)
		if err != nil {
			as.logger.Warn("结局润色失败，使用原文", zap.String("actor_id", actor.ID), zap.Error(err))
		} else {
			prompt.Text = text
		}
	}

	actor.MarkCooldown(models.ActivityAdventure, as.ledger.rules.Now())
	var settlement *models.Settlement
	err = as.storage.InTx(ctx, func(tx *storage.Storage) error {
		settlement, err = as.ledger.ApplyTo(ctx, tx, actor, out.Reward.ToBundle(), models.NoCost)
		return err
	})
	if err != nil {
		// 会话保留，玩家可以重新提交选择
		return nil, fmt.Errorf("冒险结算失败: %w", err)
	}
	if err := as.sessions.Delete(ctx, actor.ID); err != nil {
		as.logger.Error("删除冒险进度失败", zap.String("actor_id", actor.ID), zap.Error(err))
	}

	gained := settlement.Delta(models.KindCurrency, string(models.CurrencyCoins))
	settlement.Message = fmt.Sprintf("%s（入场花费 %d 铜钱，净收益 %+d 铜钱）", settlement.Message, sess.Cost, gained-sess.Cost)

	as.ledger.metrics.AdventuresFinished.WithLabelValues("final").Inc()
	as.logger.Info("冒险结束",
		zap.String("actor_id", actor.ID),
		zap.String("resolution", out.ResolutionID),
		zap.Int("steps", out.State.Step))
	return &AdventureStep{Prompt: prompt, Cost: sess.Cost, Settlement: settlement}, nil
}

// AbandonAdventure 放弃当前冒险，入场费不退
func (as *AdventureService) AbandonAdventure(ctx context.Context, actorID string) error {
	unlock := as.ledger.locks.Lock(actorID)
	defer unlock()

	_, ok, err := as.sessions.Get(ctx, actorID)
	if err != nil {
		return fmt.Errorf("读取冒险进度失败: %w", err)
	}
	if !ok {
		return models.ErrNoActiveSession
	}
	if err := as.sessions.Delete(ctx, actorID); err != nil {
		return fmt.Errorf("删除冒险进度失败: %w", err)
	}
	as.ledger.metrics.AdventuresFinished.WithLabelValues("abandoned").Inc()
	as.logger.Info("冒险放弃", zap.String("actor_id", actorID))
	return nil
}

// AutoAdventure 自动冒险：随机选择直到结局
func (as *AdventureService) AutoAdventure(ctx context.Context, actorID string) (*AdventureStep, error) {
	unlock := as.ledger.locks.Lock(actorID)
	defer unlock()

	actor, err := as.storage.GetActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	step, sess, err := as.start(ctx, actor)
	if err != nil {
		return nil, err
	}

	story := sess.State.Story
	for i := 0; i < maxAutoSteps; i++ {
		choice := as.engine.RandomChoice(sess.State)
		step, err = as.advance(ctx, actor, sess, choice)
		if err != nil {
			return nil, err
		}
		story += "\n\n" + step.Prompt.Text
		if step.Prompt.IsFinal {
			step.Story = story
			return step, nil
		}
		sess, _, err = as.sessions.Get(ctx, actorID)
		if err != nil {
			return nil, fmt.Errorf("读取冒险进度失败: %w", err)
		}
	}

	if err := as.sessions.Delete(ctx, actorID); err != nil {
		as.logger.Warn("删除冒险进度失败", zap.String("actor_id", actorID), zap.Error(err))
	}
	as.ledger.metrics.AdventuresFinished.WithLabelValues("broken").Inc()
	as.logger.Error("自动冒险步数超限", zap.String("actor_id", actorID), zap.Int("steps", maxAutoSteps))
	return nil, fmt.Errorf("%w: 自动冒险超过 %d 步仍未结束", models.ErrBrokenNarrativeLink, maxAutoSteps)
}
