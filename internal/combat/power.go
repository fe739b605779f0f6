// Package combat 战力计算与胜负判定，不做任何持久化。
package combat

import (
	"math"

	"github.com/aiwuxian/sanguo-rpg/internal/models"
)

// 四维权重：武力、智力、统率、速度
const (
	MightWeight     = 1.2
	IntellectWeight = 0.8
	CommandWeight   = 1.0
	SpeedWeight     = 0.5

	LeaderAttackWeight  = 1.5
	LeaderDefenseWeight = 1.0

	growthPerLevel = 0.02
)

// StatAtLevel 每级在基础值上线性成长 2%，四舍五入
func StatAtLevel(base, level int) int {
	if level < 1 {
		level = 1
	}
	return int(math.Round(float64(base) * (1 + growthPerLevel*float64(level-1))))
}

// Stats 某等级下的四维
type Stats struct {
	Might     int `json:"might"`
	Intellect int `json:"intellect"`
	Command   int `json:"command"`
	Speed     int `json:"speed"`
}

// StatsAt 计算武将在某等级的四维
func StatsAt(u models.Unit, level int) Stats {
	return Stats{
		Might:     StatAtLevel(u.Might, level),
		Intellect: StatAtLevel(u.Intellect, level),
		Command:   StatAtLevel(u.Command, level),
		Speed:     StatAtLevel(u.Speed, level),
	}
}

// Power 四维加权
func (s Stats) Power() float64 {
	return float64(s.Might)*MightWeight +
		float64(s.Intellect)*IntellectWeight +
		float64(s.Command)*CommandWeight +
		float64(s.Speed)*SpeedWeight
}

// UnitPower 武将战力
func UnitPower(u models.Unit, level int) float64 {
	return StatsAt(u, level).Power()
}

// LeaderPower 主公战力
func LeaderPower(attack, defense int) float64 {
	return float64(attack)*LeaderAttackWeight + float64(defense)*LeaderDefenseWeight
}

// ReferencePower 图鉴中全部武将在某等级的平均战力
func ReferencePower(units []models.Unit, level int) float64 {
	if len(units) == 0 {
		return 0
	}
	total := 0.0
	for _, u := range units {
		total += UnitPower(u, level)
	}
	return total / float64(len(units))
}

// TargetSize 副本按多少名武将设计，未配置时取上限的一半（向上取整）
func TargetSize(ch models.Challenge) int {
	if ch.TargetSize > 0 {
		return ch.TargetSize
	}
	size := (ch.MaxPartySize + 1) / 2
	if size < 1 {
		size = 1
	}
	return size
}
