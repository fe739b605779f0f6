package models

import "fmt"

// Currency 货币种类
type Currency string

const (
	CurrencyCoins Currency = "coins" // 铜钱
	CurrencyGems  Currency = "gems"  // 元宝
)

// Label 中文名称
func (c Currency) Label() string {
	if c == CurrencyGems {
		return "元宝"
	}
	return "铜钱"
}

// ExpPool 经验去向
type ExpPool string

const (
	ExpLeader   ExpPool = "leader"    // 主公经验，可连续升级
	ExpUnitPool ExpPool = "unit_pool" // 武将经验池
	ExpUnit     ExpPool = "unit"      // 指定武将
)

// Effect 奖励效果。只能是本包定义的几种类型。
type Effect interface {
	isEffect()
}

// CurrencyDelta 货币增减
type CurrencyDelta struct {
	Currency Currency
	Amount   int
}

// ExperienceDelta 经验增减
type ExperienceDelta struct {
	Pool           ExpPool
	UnitInstanceID string // 仅 Pool == ExpUnit 时使用
	Amount         int
}

// ReputationDelta 声望增减
type ReputationDelta struct {
	Amount int
}

// HealthDelta 生命增减
type HealthDelta struct {
	Amount int
}

// GrantItem 发放道具
type GrantItem struct {
	ItemID   string
	Quantity int
}

// SetStatus 覆盖状态
type SetStatus struct {
	Status string
}

func (CurrencyDelta) isEffect()   {}
func (ExperienceDelta) isEffect() {}
func (ReputationDelta) isEffect() {}
func (HealthDelta) isEffect()     {}
func (GrantItem) isEffect()       {}
func (SetStatus) isEffect()       {}

// RewardBundle 一组按顺序结算的效果
type RewardBundle struct {
	Effects []Effect
}

// NewBundle 创建奖励包
func NewBundle(effects ...Effect) RewardBundle {
	return RewardBundle{Effects: effects}
}

// Add 追加效果
func (b *RewardBundle) Add(effects ...Effect) {
	b.Effects = append(b.Effects, effects...)
}

// IsEmpty 是否没有任何效果
func (b RewardBundle) IsEmpty() bool {
	return len(b.Effects) == 0
}

// RewardSpec 内容文件中的奖励写法
type RewardSpec struct {
	Coins      int      `yaml:"coins" json:"coins,omitempty"`
	Gems       int      `yaml:"gems" json:"gems,omitempty"`
	Exp        int      `yaml:"exp" json:"exp,omitempty"` // 进入武将经验池
	LordExp    int      `yaml:"lord_exp" json:"lord_exp,omitempty"`
	Reputation int      `yaml:"reputation" json:"reputation,omitempty"`
	Health     int      `yaml:"health" json:"health,omitempty"`
	Items      []string `yaml:"items" json:"items,omitempty"`
	Status     string   `yaml:"status" json:"status,omitempty"`
}

// ToBundle 转换为奖励包，零值字段不产生效果
func (r RewardSpec) ToBundle() RewardBundle {
	var b RewardBundle
	if r.Coins != 0 {
		b.Add(CurrencyDelta{Currency: CurrencyCoins, Amount: r.Coins})
	}
	if r.Gems != 0 {
		b.Add(CurrencyDelta{Currency: CurrencyGems, Amount: r.Gems})
	}
	if r.Exp != 0 {
		b.Add(ExperienceDelta{Pool: ExpUnitPool, Amount: r.Exp})
	}
	if r.LordExp != 0 {
		b.Add(ExperienceDelta{Pool: ExpLeader, Amount: r.LordExp})
	}
	if r.Reputation != 0 {
		b.Add(ReputationDelta{Amount: r.Reputation})
	}
	if r.Health != 0 {
		b.Add(HealthDelta{Amount: r.Health})
	}
	for _, id := range r.Items {
		b.Add(GrantItem{ItemID: id, Quantity: 1})
	}
	if r.Status != "" {
		b.Add(SetStatus{Status: r.Status})
	}
	return b
}

// Cost 行为消耗，结算前检查余额
type Cost struct {
	Currency Currency `json:"currency,omitempty"`
	Amount   int      `json:"amount,omitempty"`
}

// NoCost 无消耗
var NoCost = Cost{}

// 结算记录中的效果类别
const (
	KindCurrency   = "currency"
	KindExperience = "experience"
	KindReputation = "reputation"
	KindHealth     = "health"
	KindItem       = "item"
	KindStatus     = "status"
)

// AppliedEffect 实际生效的效果（钳制之后）
type AppliedEffect struct {
	Kind   string `json:"kind"`
	Target string `json:"target,omitempty"`
	Amount int    `json:"amount,omitempty"`
	Status string `json:"status,omitempty"`
}

func (e AppliedEffect) String() string {
	if e.Status != "" {
		return fmt.Sprintf("%s=%s", e.Kind, e.Status)
	}
	if e.Target != "" {
		return fmt.Sprintf("%s[%s]%+d", e.Kind, e.Target, e.Amount)
	}
	return fmt.Sprintf("%s%+d", e.Kind, e.Amount)
}

// LevelUp 一次升级记录
type LevelUp struct {
	Target string `json:"target"` // "leader" 或武将实例ID
	Name   string `json:"name"`
	From   int    `json:"from"`
	To     int    `json:"to"`
}

// Settlement 结算结果
type Settlement struct {
	Applied  []AppliedEffect `json:"applied"`
	LevelUps []LevelUp       `json:"level_ups,omitempty"`
	Cost     Cost            `json:"cost"`
	Message  string          `json:"message"`
	Actor    *Actor          `json:"actor"`
}

// Delta 汇总某类效果的实际变化量
func (s *Settlement) Delta(kind, target string) int {
	total := 0
	for _, e := range s.Applied {
		if e.Kind == kind && (target == "" || e.Target == target) {
			total += e.Amount
		}
	}
	return total
}
