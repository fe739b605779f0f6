package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotRegistered     = errors.New("尚未注册")
	ErrAlreadyRegistered = errors.New("已经注册过了")
	ErrInsufficientFunds = errors.New("余额不足")
	ErrCooldownActive    = errors.New("冷却中")
	ErrSelfTarget        = errors.New("不能以自己为目标")
	ErrInvalidInput      = errors.New("参数无效")

	ErrNoActiveSession      = errors.New("当前没有进行中的冒险")
	ErrSessionAlreadyActive = errors.New("已有进行中的冒险")
	ErrInvalidChoice        = errors.New("无效的选项")
	ErrBrokenNarrativeLink  = errors.New("剧情链接断裂")

	ErrLevelRequirementNotMet = errors.New("等级不足")
	ErrEmptyParty             = errors.New("未选择出战武将")
	ErrPartyTooLarge          = errors.New("出战武将过多")
	ErrUnitNotOwned           = errors.New("未拥有该武将")
	ErrChallengeNotFound      = errors.New("副本不存在")

	ErrEmptyPool     = errors.New("卡池为空")
	ErrUnknownEffect = errors.New("未知的奖励效果")
	ErrItemNotFound  = errors.New("道具不存在")
	ErrSoldOut       = errors.New("已售罄")
)

// CooldownError 带剩余时间的冷却错误
type CooldownError struct {
	Activity  Activity
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s%s，还需等待 %s", e.Activity.Label(), ErrCooldownActive.Error(), e.Remaining.Round(time.Second))
}

func (e *CooldownError) Unwrap() error {
	return ErrCooldownActive
}

// CheckCooldown 冷却未结束时返回 *CooldownError
func CheckCooldown(actor *Actor, activity Activity, cooldown time.Duration, now time.Time) error {
	if remaining := actor.CooldownRemaining(activity, cooldown, now); remaining > 0 {
		return &CooldownError{Activity: activity, Remaining: remaining}
	}
	return nil
}
