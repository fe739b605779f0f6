package combat

import (
	"fmt"

	"github.com/aiwuxian/sanguo-rpg/internal/models"
	"github.com/aiwuxian/sanguo-rpg/internal/rng"
)

// Member 出战武将
type Member struct {
	Instance models.UnitInstance
	Unit     models.Unit
}

// Leader 主公
type Leader struct {
	Level   int
	Attack  int
	Defense int
}

// Result 一场战斗的结果
type Result struct {
	Win        bool                `json:"win"`
	PartyPower float64             `json:"party_power"`
	EnemyPower float64             `json:"enemy_power"`
	WinChance  float64             `json:"win_chance"`
	Guaranteed bool                `json:"guaranteed"` // 未掷骰，直接判定
	Reward     models.RewardBundle `json:"-"`
}

// Resolver 副本战斗判定
type Resolver struct {
	cfg   models.CombatConfig
	units []models.Unit
	rng   rng.Source
}

// NewResolver units 为武将图鉴，用于推算敌方参考战力
func NewResolver(cfg models.CombatConfig, units []models.Unit, src rng.Source) *Resolver {
	if src == nil {
		src = rng.Default()
	}
	return &Resolver{cfg: cfg, units: units, rng: src}
}

// Check 出战前置条件，不消耗随机数
func Check(party []Member, leader Leader, ch models.Challenge) error {
	if len(party) == 0 {
		return models.ErrEmptyParty
	}
	if ch.MaxPartySize > 0 && len(party) > ch.MaxPartySize {
		return fmt.Errorf("%w: 最多 %d 名，实际 %d 名", models.ErrPartyTooLarge, ch.MaxPartySize, len(party))
	}
	if leader.Level < ch.RecommendedLevel {
		return fmt.Errorf("%w: 主公等级 %d，推荐等级 %d", models.ErrLevelRequirementNotMet, leader.Level, ch.RecommendedLevel)
	}
	for _, m := range party {
		if m.Instance.Level < ch.RecommendedLevel {
			return fmt.Errorf("%w: %s 等级 %d，推荐等级 %d", models.ErrLevelRequirementNotMet, m.Unit.Name, m.Instance.Level, ch.RecommendedLevel)
		}
	}
	return nil
}

// PartyPower 全队战力（含主公）
func PartyPower(party []Member, leader Leader) float64 {
	total := LeaderPower(leader.Attack, leader.Defense)
	for _, m := range party {
		total += UnitPower(m.Unit, m.Instance.Level)
	}
	return total
}

// EnemyPower 敌方战力 = 参考战力 × 目标人数 × 难度倍率 × 随机浮动
func (r *Resolver) EnemyPower(ch models.Challenge) float64 {
	ref := ReferencePower(r.units, ch.RecommendedLevel)
	difficulty := rng.Uniform(r.rng, ch.DifficultyMin, ch.DifficultyMax)
	jitter := rng.Uniform(r.rng, r.cfg.JitterMin, r.cfg.JitterMax)
	return ref * float64(TargetSize(ch)) * difficulty * jitter
}

// Resolve 判定一场副本战斗。胜利时附带奖励，武将经验平分给出战武将。
func (r *Resolver) Resolve(party []Member, leader Leader, ch models.Challenge) (Result, error) {
	if err := Check(party, leader, ch); err != nil {
		return Result{}, err
	}

	res := Result{
		PartyPower: PartyPower(party, leader),
		EnemyPower: r.EnemyPower(ch),
	}
	res.Win, res.WinChance, res.Guaranteed = Decide(res.PartyPower, res.EnemyPower, r.cfg, r.rng)
	if res.Win {
		res.Reward = VictoryReward(ch.Rewards, party)
	}
	return res, nil
}

// Decide 按战力比判定胜负。碾压或悬殊时不掷骰。
func Decide(party, enemy float64, cfg models.CombatConfig, src rng.Source) (win bool, chance float64, guaranteed bool) {
	if enemy <= 0 || party >= cfg.WinRatio*enemy {
		return true, 1, true
	}
	if party < cfg.LoseRatio*enemy {
		return false, 0, true
	}
	chance = party / (party + enemy)
	return src.Float64() < chance, chance, false
}

// VictoryReward 副本奖励，exp 平分给出战武将，余数给第一位
func VictoryReward(spec models.RewardSpec, party []Member) models.RewardBundle {
	exp := spec.Exp
	spec.Exp = 0
	bundle := spec.ToBundle()
	if exp == 0 || len(party) == 0 {
		return bundle
	}

	share := exp / len(party)
	remainder := exp % len(party)
	for i, m := range party {
		amount := share
		if i == 0 {
			amount += remainder
		}
		if amount == 0 {
			continue
		}
		bundle.Add(models.ExperienceDelta{Pool: models.ExpUnit, UnitInstanceID: m.Instance.ID, Amount: amount})
	}
	return bundle
}
