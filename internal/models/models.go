package models

import (
	"fmt"
	"strings"
	"time"
)

// Activity 带冷却的玩家行为
type Activity string

const (
	ActivityAdventure Activity = "adventure"
	ActivityDungeon   Activity = "dungeon"
	ActivityRecruit   Activity = "recruit"
	ActivitySteal     Activity = "steal"
	ActivitySignIn    Activity = "sign_in"
)

// Label 中文名称
func (a Activity) Label() string {
	switch a {
	case ActivityAdventure:
		return "闯关"
	case ActivityDungeon:
		return "副本"
	case ActivityRecruit:
		return "招募"
	case ActivitySteal:
		return "偷窃"
	case ActivitySignIn:
		return "签到"
	}
	return string(a)
}

// Pity 两档保底计数（自上次命中以来的抽数）
type Pity struct {
	Epic      int `json:"epic"`      // 四星及以上
	Legendary int `json:"legendary"` // 五星
}

// Actor 主公档案（跨所有玩法共享）
type Actor struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Coins       int                    `json:"coins"`      // 铜钱
	Gems        int                    `json:"gems"`       // 元宝
	UnitExp     int                    `json:"unit_exp"`   // 武将经验池
	LeaderExp   int                    `json:"leader_exp"` // 主公经验
	LeaderLevel int                    `json:"leader_level"`
	Reputation  int                    `json:"reputation"`
	Health      int                    `json:"health"`
	MaxHealth   int                    `json:"max_health"`
	Attack      int                    `json:"attack"`
	Defense     int                    `json:"defense"`
	Status      string                 `json:"status"`
	Pity        Pity                   `json:"pity"`
	Cooldowns   map[Activity]time.Time `json:"cooldowns"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// CooldownRemaining 返回某行为剩余冷却时间，0 表示可用
func (a *Actor) CooldownRemaining(activity Activity, cooldown time.Duration, now time.Time) time.Duration {
	last, ok := a.Cooldowns[activity]
	if !ok || cooldown <= 0 {
		return 0
	}
	remaining := last.Add(cooldown).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// MarkCooldown 记录行为时间
func (a *Actor) MarkCooldown(activity Activity, now time.Time) {
	if a.Cooldowns == nil {
		a.Cooldowns = make(map[Activity]time.Time)
	}
	a.Cooldowns[activity] = now
}

// Rarity 稀有度（星级）
type Rarity int

const (
	RarityCommon    Rarity = 2
	RarityRare      Rarity = 3
	RarityEpic      Rarity = 4
	RarityLegendary Rarity = 5
)

// Rarities 由低到高
var Rarities = []Rarity{RarityCommon, RarityRare, RarityEpic, RarityLegendary}

// Valid 是否为支持的星级
func (r Rarity) Valid() bool {
	return r >= RarityCommon && r <= RarityLegendary
}

func (r Rarity) String() string {
	if !r.Valid() {
		return fmt.Sprintf("rarity(%d)", int(r))
	}
	return strings.Repeat("★", int(r))
}

// Unit 武将图鉴条目
type Unit struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Rarity      Rarity `yaml:"rarity" json:"rarity"`
	Camp        string `yaml:"camp" json:"camp"` // 魏/蜀/吴/群
	Might       int    `yaml:"might" json:"might"`         // 武力
	Intellect   int    `yaml:"intellect" json:"intellect"` // 智力
	Command     int    `yaml:"command" json:"command"`     // 统率
	Speed       int    `yaml:"speed" json:"speed"`         // 速度
	Skill       string `yaml:"skill" json:"skill"`
	Background  string `yaml:"background" json:"background"` // 生平
}

// UnitInstance 玩家拥有的武将
type UnitInstance struct {
	ID         string    `json:"id"`
	ActorID    string    `json:"actor_id"`
	UnitID     string    `json:"unit_id"`
	Level      int       `json:"level"`
	Exp        int       `json:"exp"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// ItemType 道具类别
type ItemType string

const (
	ItemConsumable ItemType = "consumable"
	ItemEquipment  ItemType = "equipment"
	ItemSpecial    ItemType = "special"
)

// Item 道具图鉴条目
type Item struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Type        ItemType `yaml:"type" json:"type"`
	Description string   `yaml:"description" json:"description"`
	Value       int      `yaml:"value" json:"value"`   // 基础价值
	Scaled      bool     `yaml:"scaled" json:"scaled"` // 价值随最强武将等级缩放
	PriceCoins  int      `yaml:"price_coins" json:"price_coins,omitempty"`
	PriceGems   int      `yaml:"price_gems" json:"price_gems,omitempty"`
}

// Price 商店售价，铜钱标价优先；两者都为 0 时不上架
func (it Item) Price() (Currency, int, bool) {
	switch {
	case it.PriceCoins > 0:
		return CurrencyCoins, it.PriceCoins, true
	case it.PriceGems > 0:
		return CurrencyGems, it.PriceGems, true
	}
	return "", 0, false
}

// ShopStock 某天商店的一种商品
type ShopStock struct {
	Day       string `json:"day"` // 2006-01-02
	ItemID    string `json:"item_id"`
	Remaining int    `json:"remaining"`
}

// InventoryEntry 背包条目
type InventoryEntry struct {
	ID         int64          `json:"id"`
	ActorID    string         `json:"actor_id"`
	ItemID     string         `json:"item_id"`
	Quantity   int            `json:"quantity"`
	Properties map[string]int `json:"properties,omitempty"` // 实例属性（如冻结的价值）
}

// BattleKind 战斗记录类型
type BattleKind string

const (
	BattleDungeon BattleKind = "dungeon"
	BattleSteal   BattleKind = "steal"
)

// BattleLog 战斗/偷窃记录
type BattleLog struct {
	ID         string     `json:"id"`
	ActorID    string     `json:"actor_id"`
	Kind       BattleKind `json:"kind"`
	Target     string     `json:"target"` // 副本ID或被偷窃的玩家ID
	Win        bool       `json:"win"`
	PartyPower float64    `json:"party_power"`
	EnemyPower float64    `json:"enemy_power"`
	Detail     string     `json:"detail"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Challenge 副本描述
type Challenge struct {
	ID               string     `yaml:"id" json:"id"`
	Name             string     `yaml:"name" json:"name"`
	Description      string     `yaml:"description" json:"description"`
	RecommendedLevel int        `yaml:"recommended_level" json:"recommended_level"`
	MaxPartySize     int        `yaml:"max_party_size" json:"max_party_size"`
	TargetSize       int        `yaml:"target_size" json:"target_size,omitempty"` // 0 表示按 MaxPartySize 推算
	DifficultyMin    float64    `yaml:"difficulty_min" json:"difficulty_min"`
	DifficultyMax    float64    `yaml:"difficulty_max" json:"difficulty_max"`
	EntryFee         int        `yaml:"entry_fee" json:"entry_fee"`
	Rewards          RewardSpec `yaml:"rewards" json:"rewards"`
}
