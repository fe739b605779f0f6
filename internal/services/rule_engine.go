package services

import (
	"math"
	"time"

	"github.com/aiwuxian/sanguo-rpg/internal/models"
	"github.com/aiwuxian/sanguo-rpg/internal/rng"
)

// RuleEngine 升级曲线、时钟与随机数
type RuleEngine struct {
	leveling models.LevelingConfig
	rng      rng.Source
	now      func() time.Time
}

func NewRuleEngine(leveling models.LevelingConfig, src rng.Source) *RuleEngine {
	if src == nil {
		src = rng.Default()
	}
	return &RuleEngine{leveling: leveling, rng: src, now: time.Now}
}

// WithClock 替换时钟（测试用）
func (re *RuleEngine) WithClock(now func() time.Time) *RuleEngine {
	re.now = now
	return re
}

// Now 当前时间
func (re *RuleEngine) Now() time.Time {
	return re.now()
}

// Rand 共享随机源
func (re *RuleEngine) Rand() rng.Source {
	return re.rng
}

// RequiredExp 从 level 升到 level+1 所需经验 = round(base * growth^(level-1))
func RequiredExp(base int, growth float64, level int) int {
	if level < 1 {
		level = 1
	}
	req := int(math.Round(float64(base) * math.Pow(growth, float64(level-1))))
	if req < 1 {
		req = 1
	}
	return req
}

// LeaderRequired 主公升级所需经验
func (re *RuleEngine) LeaderRequired(level int) int {
	return RequiredExp(re.leveling.LeaderBaseExp, re.leveling.Growth, level)
}

// UnitRequired 武将升级所需经验
func (re *RuleEngine) UnitRequired(level int) int {
	return RequiredExp(re.leveling.UnitBaseExp, re.leveling.Growth, level)
}

// CheckLevelUp 连续升级，返回新等级与剩余经验。到达上限后经验保留。
func (re *RuleEngine) CheckLevelUp(level, exp int, required func(int) int) (int, int) {
	for (re.leveling.MaxLevel <= 0 || level < re.leveling.MaxLevel) && exp >= required(level) {
		exp -= required(level)
		level++
	}
	return level, exp
}

// NextMidnight now 之后的第一个零点（本地时区）
func NextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
}

// SameDay 是否同一自然日
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}
