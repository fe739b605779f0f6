package models

import "time"

// Config 配置
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"server"`
	Database DatabaseConfig `yaml:"database" envconfig:"database"`
	LLM      LLMConfig      `yaml:"llm" envconfig:"llm"`
	Log      LogConfig      `yaml:"log" envconfig:"log"`
	Game     GameConfig     `yaml:"game" envconfig:"game"`
	// 内容目录，为空时使用内置内容
	ContentDir string `yaml:"content_dir" envconfig:"content_dir"`
}

type ServerConfig struct {
	Port string `yaml:"port" envconfig:"port"`
	Host string `yaml:"host" envconfig:"host"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" envconfig:"path"`
}

type LLMConfig struct {
	Enabled     bool          `yaml:"enabled" envconfig:"enabled"`
	APIKey      string        `yaml:"api_key" envconfig:"api_key"`
	APIBase     string        `yaml:"api_base" envconfig:"api_base"`
	Model       string        `yaml:"model" envconfig:"model"`
	Temperature float32       `yaml:"temperature" envconfig:"temperature"`
	MaxTokens   int           `yaml:"max_tokens" envconfig:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"timeout"`
}

type LogConfig struct {
	Level      string `yaml:"level" envconfig:"level"`
	Encoding   string `yaml:"encoding" envconfig:"encoding"`
	OutputPath string `yaml:"output_path" envconfig:"output_path"`
}

// GameConfig 数值配置
type GameConfig struct {
	InitialCoins     int `yaml:"initial_coins" envconfig:"initial_coins"`
	InitialGems      int `yaml:"initial_gems" envconfig:"initial_gems"`
	InitialHealth    int `yaml:"initial_health" envconfig:"initial_health"`
	InitialAttack    int `yaml:"initial_attack" envconfig:"initial_attack"`
	InitialDefense   int `yaml:"initial_defense" envconfig:"initial_defense"`
	SignInCoins      int `yaml:"sign_in_coins" envconfig:"sign_in_coins"`
	SignInLeaderExp  int `yaml:"sign_in_leader_exp" envconfig:"sign_in_leader_exp"`
	AdventureCostMin int `yaml:"adventure_cost_min" envconfig:"adventure_cost_min"`
	AdventureCostMax int `yaml:"adventure_cost_max" envconfig:"adventure_cost_max"`
	RecruitCost      int `yaml:"recruit_cost" envconfig:"recruit_cost"` // 元宝

	Cooldowns  CooldownConfig `yaml:"cooldowns" envconfig:"cooldowns"`
	SessionTTL time.Duration  `yaml:"session_ttl" envconfig:"session_ttl"`

	Leveling LevelingConfig `yaml:"leveling" envconfig:"leveling"`
	Gacha    GachaConfig    `yaml:"gacha" envconfig:"gacha"`
	Combat   CombatConfig   `yaml:"combat" envconfig:"combat"`
	Steal    StealConfig    `yaml:"steal" envconfig:"steal"`
	Shop     ShopConfig     `yaml:"shop" envconfig:"shop"`
}

type CooldownConfig struct {
	Adventure time.Duration `yaml:"adventure" envconfig:"adventure"`
	Dungeon   time.Duration `yaml:"dungeon" envconfig:"dungeon"`
	Recruit   time.Duration `yaml:"recruit" envconfig:"recruit"`
	Steal     time.Duration `yaml:"steal" envconfig:"steal"`
}

// For 按行为取冷却时长
func (c CooldownConfig) For(activity Activity) time.Duration {
	switch activity {
	case ActivityAdventure:
		return c.Adventure
	case ActivityDungeon:
		return c.Dungeon
	case ActivityRecruit:
		return c.Recruit
	case ActivitySteal:
		return c.Steal
	}
	return 0
}

// LevelingConfig 升级曲线 requiredExp(l) = BaseExp * Growth^(l-1)
type LevelingConfig struct {
	LeaderBaseExp   int     `yaml:"leader_base_exp" envconfig:"leader_base_exp"`
	UnitBaseExp     int     `yaml:"unit_base_exp" envconfig:"unit_base_exp"`
	Growth          float64 `yaml:"growth" envconfig:"growth"`
	MaxLevel        int     `yaml:"max_level" envconfig:"max_level"`
	AttackPerLevel  int     `yaml:"attack_per_level" envconfig:"attack_per_level"`
	DefensePerLevel int     `yaml:"defense_per_level" envconfig:"defense_per_level"`
	HealthPerLevel  int     `yaml:"health_per_level" envconfig:"health_per_level"`
}

type GachaConfig struct {
	EpicPity          int     `yaml:"epic_pity" envconfig:"epic_pity"`
	LegendaryPity     int     `yaml:"legendary_pity" envconfig:"legendary_pity"`
	LuckPerReputation float64 `yaml:"luck_per_reputation" envconfig:"luck_per_reputation"`
	MaxLuck           float64 `yaml:"max_luck" envconfig:"max_luck"`
	// 重复武将是否推进保底
	DuplicateAdvancesPity bool `yaml:"duplicate_advances_pity" envconfig:"duplicate_advances_pity"`
	// 四星保底命中时是否同时清空五星计数
	EpicPityResetsLegendary bool `yaml:"epic_pity_resets_legendary" envconfig:"epic_pity_resets_legendary"`
}

type CombatConfig struct {
	WinRatio  float64 `yaml:"win_ratio" envconfig:"win_ratio"`
	LoseRatio float64 `yaml:"lose_ratio" envconfig:"lose_ratio"`
	JitterMin float64 `yaml:"jitter_min" envconfig:"jitter_min"`
	JitterMax float64 `yaml:"jitter_max" envconfig:"jitter_max"`
}

type StealConfig struct {
	FailChance   float64 `yaml:"fail_chance" envconfig:"fail_chance"`
	FineMin      int     `yaml:"fine_min" envconfig:"fine_min"`
	FineMax      int     `yaml:"fine_max" envconfig:"fine_max"`
	CoinChance   float64 `yaml:"coin_chance" envconfig:"coin_chance"`
	MaxCoinShare float64 `yaml:"max_coin_share" envconfig:"max_coin_share"`
	MaxGemShare  float64 `yaml:"max_gem_share" envconfig:"max_gem_share"`
}

// ShopConfig 每日商店：上架种类数与每种库存的随机区间
type ShopConfig struct {
	MinOffers int `yaml:"min_offers" envconfig:"min_offers"`
	MaxOffers int `yaml:"max_offers" envconfig:"max_offers"`
	MinStock  int `yaml:"min_stock" envconfig:"min_stock"`
	MaxStock  int `yaml:"max_stock" envconfig:"max_stock"`
}

// DefaultConfig 默认配置，config.yml 与环境变量在此之上覆盖
func DefaultConfig() Config {
	return Config{
		Server:   ServerConfig{Host: "0.0.0.0", Port: "8080"},
		Database: DatabaseConfig{Path: "./data/sanguo.db"},
		LLM: LLMConfig{
			Model:       "gpt-3.5-turbo",
			Temperature: 0.8,
			MaxTokens:   400,
			Timeout:     10 * time.Second,
		},
		Log: LogConfig{Level: "info", Encoding: "console"},
		Game: GameConfig{
			InitialCoins:     1000,
			InitialGems:      100,
			InitialHealth:    100,
			InitialAttack:    10,
			InitialDefense:   5,
			SignInCoins:      200,
			SignInLeaderExp:  10,
			AdventureCostMin: 20,
			AdventureCostMax: 50,
			RecruitCost:      50,
			Cooldowns: CooldownConfig{
				Adventure: 10 * time.Minute,
				Dungeon:   5 * time.Minute,
				Recruit:   5 * time.Minute,
				Steal:     5 * time.Minute,
			},
			SessionTTL: 30 * time.Minute,
			Leveling: LevelingConfig{
				LeaderBaseExp:   100,
				UnitBaseExp:     50,
				Growth:          1.2,
				MaxLevel:        100,
				AttackPerLevel:  2,
				DefensePerLevel: 1,
				HealthPerLevel:  10,
			},
			Gacha: GachaConfig{
				EpicPity:          10,
				LegendaryPity:     80,
				LuckPerReputation: 0.001,
				MaxLuck:           0.2,
			},
			Combat: CombatConfig{
				WinRatio:  1.5,
				LoseRatio: 0.6,
				JitterMin: 0.9,
				JitterMax: 1.1,
			},
			Steal: StealConfig{
				FailChance:   0.5,
				FineMin:      10,
				FineMax:      50,
				CoinChance:   0.8,
				MaxCoinShare: 0.1,
				MaxGemShare:  0.05,
			},
			Shop: ShopConfig{
				MinOffers: 5,
				MaxOffers: 10,
				MinStock:  1,
				MaxStock:  5,
			},
		},
	}
}
