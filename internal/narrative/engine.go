// Package narrative 冒险剧情状态机：开场 -> 事件 -> 若干分支 -> 最终结局。
// Engine 本身无状态，会话状态由调用方保存。
package narrative

import (
	"fmt"
	"strings"

	"github.com/aiwuxian/sanguo-rpg/internal/catalog"
	"github.com/aiwuxian/sanguo-rpg/internal/models"
	"github.com/aiwuxian/sanguo-rpg/internal/rng"
)

// State 一次冒险的会话状态
type State struct {
	OpeningID string           `json:"opening_id"`
	EventID   string           `json:"event_id"`
	NodeID    string           `json:"node_id"` // 最近一次到达的节点（事件或结局）
	Current   string           `json:"current"` // 当前节点渲染后的文本
	Story     string           `json:"story"`   // 累计剧情
	Options   []catalog.Option `json:"options"`
	Step      int              `json:"step"`
}

// Prompt 返回给玩家的剧情片段
type Prompt struct {
	Text    string   `json:"text"`
	Options []string `json:"options,omitempty"`
	IsFinal bool     `json:"is_final"`
	Resumed bool     `json:"resumed,omitempty"`
}

// Outcome Advance 的结果。IsFinal 时 Reward 非空，State 不再有效。
type Outcome struct {
	Prompt       Prompt
	State        State
	ResolutionID string
	Reward       *models.RewardSpec
}

// Engine 剧情引擎
type Engine struct {
	content *catalog.Catalog
	rng     rng.Source
}

// NewEngine 创建剧情引擎
func NewEngine(content *catalog.Catalog, src rng.Source) *Engine {
	if src == nil {
		src = rng.Default()
	}
	return &Engine{content: content, rng: src}
}

// Start 随机开场，并挑选与之有共同标签的事件；没有匹配时从全部事件中随机
func (e *Engine) Start(actorName string) (State, Prompt) {
	opening, _ := rng.Pick(e.rng, e.content.Openings)

	var compatible []catalog.Event
	for _, ev := range e.content.Events {
		if sharesTag(opening.Tags, ev.Tags) {
			compatible = append(compatible, ev)
		}
	}
	if len(compatible) == 0 {
		compatible = e.content.Events
	}
	event, _ := rng.Pick(e.rng, compatible)

	text := e.render(opening.Template, actorName) + "\n\n" + e.render(event.Template, actorName)
	state := State{
		OpeningID: opening.ID,
		EventID:   event.ID,
		NodeID:    event.ID,
		Current:   text,
		Story:     text,
		Options:   event.Options,
	}
	return state, PromptFor(state)
}

// Advance 按 1 开始的选项序号推进剧情。
// 序号越界返回 ErrInvalidChoice，原状态保持不变；结局缺失返回 ErrBrokenNarrativeLink。
func (e *Engine) Advance(state State, choice int, actorName string) (Outcome, error) {
	if choice < 1 || choice > len(state.Options) {
		return Outcome{State: state}, fmt.Errorf("%w: 请输入 1-%d", models.ErrInvalidChoice, len(state.Options))
	}
	target := state.Options[choice-1].Next

	res, ok := e.content.Resolution(target)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s -> %s", models.ErrBrokenNarrativeLink, state.NodeID, target)
	}

	text := e.render(res.Template, actorName)
	next := State{
		OpeningID: state.OpeningID,
		EventID:   state.EventID,
		NodeID:    res.ID,
		Current:   text,
		Story:     state.Story + "\n\n" + text,
		Step:      state.Step + 1,
	}

	switch res.Type {
	case catalog.ResolutionFinal:
		reward := res.Rewards
		return Outcome{
			Prompt:       Prompt{Text: text, IsFinal: true},
			State:        next,
			ResolutionID: res.ID,
			Reward:       &reward,
		}, nil
	case catalog.ResolutionChoice:
		if len(res.Options) == 0 {
			return Outcome{}, fmt.Errorf("%w: 结局 %s 没有后续选项", models.ErrBrokenNarrativeLink, res.ID)
		}
		next.Options = res.Options
		return Outcome{Prompt: PromptFor(next), State: next, ResolutionID: res.ID}, nil
	}
	return Outcome{}, fmt.Errorf("%w: 结局 %s 类型未知", models.ErrBrokenNarrativeLink, res.ID)
}

// RandomChoice 自动冒险时随机挑一个选项（1 开始）
func (e *Engine) RandomChoice(state State) int {
	if len(state.Options) == 0 {
		return 0
	}
	return e.rng.IntN(len(state.Options)) + 1
}

// PromptFor 根据会话状态重建当前提示
func PromptFor(state State) Prompt {
	labels := make([]string, len(state.Options))
	for i, opt := range state.Options {
		labels[i] = opt.Text
	}
	return Prompt{Text: state.Current, Options: labels}
}

func sharesTag(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// render 替换模板变量，每次调用重新随机
func (e *Engine) render(template, actorName string) string {
	if !strings.Contains(template, "{") {
		return template
	}
	f := e.content.Flavor
	general, _ := rng.Pick(e.rng, f.Generals)
	city, _ := rng.Pick(e.rng, f.Cities)
	item, _ := rng.Pick(e.rng, f.Items)
	amount := rng.Between(e.rng, f.AmountMin, f.AmountMax)

	r := strings.NewReplacer(
		"{player_name}", actorName,
		"{random_general_name}", general,
		"{random_city_name}", city,
		"{random_item_name}", item,
		"{random_amount}", fmt.Sprint(amount),
	)
	return r.Replace(template)
}
