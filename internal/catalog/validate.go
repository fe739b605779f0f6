package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidContent 内容校验失败
var ErrInvalidContent = errors.New("内容校验失败")

// Validate 检查内容完整性，收集全部问题后一起返回
func (c *Catalog) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if len(c.Openings) == 0 {
		add("没有开场")
	}
	if len(c.Events) == 0 {
		add("没有事件")
	}

	seen := map[string]bool{}
	for _, o := range c.Openings {
		if o.ID == "" || seen[o.ID] {
			add("开场ID为空或重复: %q", o.ID)
		}
		seen[o.ID] = true
	}

	checkOptions := func(owner string, opts []Option) {
		if len(opts) == 0 {
			add("%s 没有选项", owner)
		}
		for i, opt := range opts {
			if opt.Next == "" {
				add("%s 第%d个选项没有指向", owner, i+1)
				continue
			}
			if _, ok := c.Resolutions[opt.Next]; !ok && !c.AllowDangling {
				add("%s 第%d个选项指向不存在的结局 %q", owner, i+1, opt.Next)
			}
		}
	}
	checkRewardItems := func(owner string, items []string) {
		for _, id := range items {
			if _, ok := c.itemsByID[id]; !ok {
				add("%s 奖励了不存在的道具 %q", owner, id)
			}
		}
	}

	seen = map[string]bool{}
	for _, e := range c.Events {
		if e.ID == "" || seen[e.ID] {
			add("事件ID为空或重复: %q", e.ID)
		}
		seen[e.ID] = true
		checkOptions("事件 "+e.ID, e.Options)
	}

	for id, r := range c.Resolutions {
		owner := "结局 " + id
		switch r.Type {
		case ResolutionFinal:
			checkRewardItems(owner, r.Rewards.Items)
		case ResolutionChoice:
			checkOptions(owner, r.Options)
		default:
			add("%s 类型无效: %q", owner, r.Type)
		}
	}

	if c.Flavor.AmountMax < c.Flavor.AmountMin {
		add("随机金额区间无效: [%d, %d]", c.Flavor.AmountMin, c.Flavor.AmountMax)
	}

	seen = map[string]bool{}
	for _, u := range c.Units {
		if u.ID == "" || seen[u.ID] {
			add("武将ID为空或重复: %q", u.ID)
		}
		seen[u.ID] = true
		if !u.Rarity.Valid() {
			add("武将 %s 星级无效: %d", u.ID, u.Rarity)
		}
		if u.Might < 0 || u.Intellect < 0 || u.Command < 0 || u.Speed < 0 {
			add("武将 %s 属性为负", u.ID)
		}
	}

	seen = map[string]bool{}
	for _, it := range c.Items {
		if it.ID == "" || seen[it.ID] {
			add("道具ID为空或重复: %q", it.ID)
		}
		seen[it.ID] = true
		if it.PriceCoins < 0 || it.PriceGems < 0 {
			add("道具 %s 售价为负", it.ID)
		}
	}

	seen = map[string]bool{}
	for _, ch := range c.Challenges {
		owner := "副本 " + ch.ID
		if ch.ID == "" || seen[ch.ID] {
			add("副本ID为空或重复: %q", ch.ID)
		}
		seen[ch.ID] = true
		if ch.RecommendedLevel < 1 {
			add("%s 推荐等级必须 >= 1", owner)
		}
		if ch.MaxPartySize < 1 {
			add("%s 出战人数上限必须 >= 1", owner)
		}
		if ch.DifficultyMin <= 0 || ch.DifficultyMax < ch.DifficultyMin {
			add("%s 难度区间无效: [%.2f, %.2f]", owner, ch.DifficultyMin, ch.DifficultyMax)
		}
		if ch.EntryFee < 0 {
			add("%s 门票为负", owner)
		}
		checkRewardItems(owner, ch.Rewards.Items)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidContent, strings.Join(problems, "; "))
	}
	return nil
}
