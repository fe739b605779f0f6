// Package gacha 武将招募：加权星级抽取与两档保底。
package gacha

import (
	"github.com/aiwuxian/sanguo-rpg/internal/models"
	"github.com/aiwuxian/sanguo-rpg/internal/rng"
)

// TierRate 某星级的概率
type TierRate struct {
	Rarity models.Rarity `json:"rarity"`
	P      float64       `json:"p"`
}

// BaseRates 基础概率，由低到高
var BaseRates = []TierRate{
	{Rarity: models.RarityCommon, P: 0.70},
	{Rarity: models.RarityRare, P: 0.20},
	{Rarity: models.RarityEpic, P: 0.09},
	{Rarity: models.RarityLegendary, P: 0.01},
}

// 幸运加成从普通档挪出的概率按 3:2:1 分给三个高星档
var luckShares = map[models.Rarity]float64{
	models.RarityRare:      3.0 / 6.0,
	models.RarityEpic:      2.0 / 6.0,
	models.RarityLegendary: 1.0 / 6.0,
}

// Luck 声望换算的幸运值，[0, maxLuck]
func Luck(reputation int, perReputation, maxLuck float64) float64 {
	luck := float64(reputation) * perReputation
	if luck < 0 {
		return 0
	}
	if luck > maxLuck {
		return maxLuck
	}
	return luck
}

// Rates 幸运调整后的概率表，总和为 1
func Rates(luck float64) []TierRate {
	if luck < 0 {
		luck = 0
	}
	if luck > 1 {
		luck = 1
	}
	out := make([]TierRate, len(BaseRates))
	copy(out, BaseRates)

	moved := out[0].P * luck
	out[0].P -= moved
	for i := 1; i < len(out); i++ {
		out[i].P += moved * luckShares[out[i].Rarity]
	}
	return out
}

// sampleTier 只在有武将的星级中按概率抽取（等价于抽到空档后重抽）
func sampleTier(rates []TierRate, available func(models.Rarity) bool, src rng.Source) (models.Rarity, bool) {
	total := 0.0
	for _, r := range rates {
		if available(r.Rarity) {
			total += r.P
		}
	}
	if total <= 0 {
		return 0, false
	}

	roll := src.Float64() * total
	var last models.Rarity
	for _, r := range rates {
		if !available(r.Rarity) {
			continue
		}
		last = r.Rarity
		if roll < r.P {
			return r.Rarity, true
		}
		roll -= r.P
	}
	return last, true
}
