package gacha

import (
	"github.com/aiwuxian/sanguo-rpg/internal/models"
	"github.com/aiwuxian/sanguo-rpg/internal/rng"
)

// Pool 可招募的武将
type Pool interface {
	UnitsByRarity(r models.Rarity) []models.Unit
}

// Result 一次抽取结果
type Result struct {
	Unit      models.Unit   `json:"unit"`
	Rarity    models.Rarity `json:"rarity"`
	Forced    bool          `json:"forced"`    // 保底触发
	Duplicate bool          `json:"duplicate"` // 已拥有
	// 抽取后的保底计数
	Pity models.Pity `json:"pity"`
	// 本次是否计入保底
	CountsTowardPity bool `json:"counts_toward_pity"`
}

// Engine 招募引擎
type Engine struct {
	cfg  models.GachaConfig
	pool Pool
	rng  rng.Source
}

func NewEngine(cfg models.GachaConfig, pool Pool, src rng.Source) *Engine {
	if src == nil {
		src = rng.Default()
	}
	return &Engine{cfg: cfg, pool: pool, rng: src}
}

// Rates 某声望下的概率表
func (e *Engine) Rates(reputation int) []TierRate {
	return Rates(Luck(reputation, e.cfg.LuckPerReputation, e.cfg.MaxLuck))
}

// Draw 抽取一名武将。
// 先把两个计数各加一：五星计数到达阈值强制五星，否则四星计数到达阈值强制四星，否则按概率抽取。
// 命中四星及以上清空四星计数，命中五星清空两个计数。
// 保底命中时优先从未拥有的武将中挑选；保底已兑现，即使抽到重复武将也照常清空计数。
func (e *Engine) Draw(pity models.Pity, reputation int, owned map[string]bool) (Result, error) {
	available := func(r models.Rarity) bool { return len(e.pool.UnitsByRarity(r)) > 0 }

	next := models.Pity{Epic: pity.Epic + 1, Legendary: pity.Legendary + 1}

	var (
		tier   models.Rarity
		forced bool
	)
	switch {
	case e.cfg.LegendaryPity > 0 && next.Legendary >= e.cfg.LegendaryPity && available(models.RarityLegendary):
		tier, forced = models.RarityLegendary, true
	case e.cfg.EpicPity > 0 && next.Epic >= e.cfg.EpicPity && available(models.RarityEpic):
		tier, forced = models.RarityEpic, true
	default:
		var ok bool
		tier, ok = sampleTier(e.Rates(reputation), available, e.rng)
		if !ok {
			return Result{}, models.ErrEmptyPool
		}
	}

	if tier >= models.RarityEpic {
		next.Epic = 0
	}
	if tier == models.RarityLegendary {
		next.Legendary = 0
	}
	if forced && tier == models.RarityEpic && e.cfg.EpicPityResetsLegendary {
		next.Legendary = 0
	}

	candidates := e.pool.UnitsByRarity(tier)
	if forced {
		if fresh := unowned(candidates, owned); len(fresh) > 0 {
			candidates = fresh
		}
	}
	unit, _ := rng.Pick(e.rng, candidates)
	res := Result{
		Unit:             unit,
		Rarity:           tier,
		Forced:           forced,
		Duplicate:        owned[unit.ID],
		Pity:             next,
		CountsTowardPity: true,
	}
	if res.Duplicate && !forced && !e.cfg.DuplicateAdvancesPity {
		res.Pity = pity
		res.CountsTowardPity = false
	}
	return res, nil
}

func unowned(units []models.Unit, owned map[string]bool) []models.Unit {
	var out []models.Unit
	for _, u := range units {
		if !owned[u.ID] {
			out = append(out, u)
		}
	}
	return out
}
