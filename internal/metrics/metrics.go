// Package metrics 游戏内事件计数，注册在独立的 registry 上，通过 /metrics 暴露。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 全部计数器
type Metrics struct {
	registry *prometheus.Registry

	AdventuresStarted  prometheus.Counter
	AdventuresFinished *prometheus.CounterVec // outcome: final, abandoned, broken
	Battles            *prometheus.CounterVec // result: win, lose
	GachaDraws         *prometheus.CounterVec // rarity, duplicate
	PityTriggers       *prometheus.CounterVec // tier
	LevelUps           *prometheus.CounterVec // target: leader, unit
	RewardsApplied     prometheus.Counter
	Steals             *prometheus.CounterVec // result
	ShopPurchases      *prometheus.CounterVec // currency
	ActiveSessions     prometheus.Gauge
}

// New 创建并注册计数器
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		AdventuresStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "sanguo_adventures_started_total",
			Help: "Total number of adventures started.",
		}),
		AdventuresFinished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sanguo_adventures_finished_total",
			Help: "Total number of adventures finished, by outcome.",
		}, []string{"outcome"}),
		Battles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sanguo_battles_total",
			Help: "Total number of dungeon battles, by result.",
		}, []string{"result"}),
		GachaDraws: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sanguo_gacha_draws_total",
			Help: "Total number of recruitment draws, by rarity and duplicate flag.",
		}, []string{"rarity", "duplicate"}),
		PityTriggers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sanguo_gacha_pity_triggers_total",
			Help: "Total number of draws forced by pity, by tier.",
		}, []string{"tier"}),
		LevelUps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sanguo_level_ups_total",
			Help: "Total number of levels gained, by target.",
		}, []string{"target"}),
		RewardsApplied: f.NewCounter(prometheus.CounterOpts{
			Name: "sanguo_rewards_applied_total",
			Help: "Total number of reward bundles applied by the ledger.",
		}),
		Steals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sanguo_steals_total",
			Help: "Total number of steal attempts, by result.",
		}, []string{"result"}),
		ShopPurchases: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sanguo_shop_purchases_total",
			Help: "Total number of shop purchases, by currency.",
		}, []string{"currency"}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "sanguo_adventure_sessions",
			Help: "Number of adventure sessions currently held in memory.",
		}),
	}
}

// Handler /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry 底层 registry（测试用）
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
