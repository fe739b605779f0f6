// Package catalog 静态内容：冒险剧情、武将图鉴、副本与道具。加载后只读。
package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aiwuxian/sanguo-rpg/internal/models"
)

//go:embed data/*.yaml
var embedded embed.FS

// Option 剧情选项
type Option struct {
	Text string `yaml:"text" json:"text"`
	Next string `yaml:"next" json:"next"` // 指向的结局ID
}

// Opening 开场
type Opening struct {
	ID       string   `yaml:"id"`
	Tags     []string `yaml:"tags"`
	Template string   `yaml:"template"`
}

// Event 事件，通过标签与开场关联
type Event struct {
	ID       string   `yaml:"id"`
	Tags     []string `yaml:"tags"`
	Template string   `yaml:"template"`
	Options  []Option `yaml:"options"`
}

// ResolutionType 结局类型
type ResolutionType string

const (
	ResolutionFinal  ResolutionType = "final"
	ResolutionChoice ResolutionType = "choice"
)

// Resolution 结局：最终结算或继续分支
type Resolution struct {
	ID       string            `yaml:"-"`
	Type     ResolutionType    `yaml:"type"`
	Template string            `yaml:"template"`
	Rewards  models.RewardSpec `yaml:"rewards"`
	Options  []Option          `yaml:"options"`
}

// Flavor 模板变量的随机取值
type Flavor struct {
	Generals  []string `yaml:"generals"`
	Cities    []string `yaml:"cities"`
	Items     []string `yaml:"items"`
	AmountMin int      `yaml:"amount_min"`
	AmountMax int      `yaml:"amount_max"`
}

// Catalog 全部静态内容
type Catalog struct {
	Openings    []Opening             `yaml:"openings"`
	Events      []Event               `yaml:"events"`
	Resolutions map[string]Resolution `yaml:"resolutions"`
	Flavor      Flavor                `yaml:"flavor"`
	Units       []models.Unit         `yaml:"units"`
	Challenges  []models.Challenge    `yaml:"challenges"`
	Items       []models.Item         `yaml:"items"`

	// 允许选项指向不存在的结局（仅测试使用）
	AllowDangling bool `yaml:"-"`

	unitsByID      map[string]models.Unit
	unitsByRarity  map[models.Rarity][]models.Unit
	challengesByID map[string]models.Challenge
	itemsByID      map[string]models.Item
}

var contentFiles = []string{"narrative.yaml", "units.yaml", "challenges.yaml", "items.yaml"}

// LoadEmbedded 加载内置内容
func LoadEmbedded() (*Catalog, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, err
	}
	return Load(sub)
}

// LoadDir 从目录加载内容，缺失的文件回退到内置版本
func LoadDir(dir string) (*Catalog, error) {
	if dir == "" {
		return LoadEmbedded()
	}
	return Load(overlayFS{primary: os.DirFS(dir)})
}

// Load 从文件系统加载并校验
func Load(fsys fs.FS) (*Catalog, error) {
	c := &Catalog{}
	for _, name := range contentFiles {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("读取内容文件 %s 失败: %w", name, err)
		}
		// 各文件只填充自己的字段，解析到同一个结构上
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("解析内容文件 %s 失败: %w", name, err)
		}
	}
	if err := c.Build(); err != nil {
		return nil, err
	}
	return c, nil
}

// Build 建立索引并校验，手动构造的 Catalog 需要先调用
func (c *Catalog) Build() error {
	for id, r := range c.Resolutions {
		r.ID = id
		c.Resolutions[id] = r
	}

	c.unitsByID = make(map[string]models.Unit, len(c.Units))
	c.unitsByRarity = make(map[models.Rarity][]models.Unit)
	for _, u := range c.Units {
		c.unitsByID[u.ID] = u
		c.unitsByRarity[u.Rarity] = append(c.unitsByRarity[u.Rarity], u)
	}
	c.challengesByID = make(map[string]models.Challenge, len(c.Challenges))
	for _, ch := range c.Challenges {
		c.challengesByID[ch.ID] = ch
	}
	c.itemsByID = make(map[string]models.Item, len(c.Items))
	for _, it := range c.Items {
		c.itemsByID[it.ID] = it
	}

	return c.Validate()
}

// Resolution 按ID查找结局
func (c *Catalog) Resolution(id string) (Resolution, bool) {
	r, ok := c.Resolutions[id]
	return r, ok
}

// Unit 按ID查找武将
func (c *Catalog) Unit(id string) (models.Unit, bool) {
	u, ok := c.unitsByID[id]
	return u, ok
}

// UnitsByRarity 某星级的全部武将
func (c *Catalog) UnitsByRarity(r models.Rarity) []models.Unit {
	return c.unitsByRarity[r]
}

// Challenge 按ID查找副本
func (c *Catalog) Challenge(id string) (models.Challenge, bool) {
	ch, ok := c.challengesByID[id]
	return ch, ok
}

// Item 按ID查找道具
func (c *Catalog) Item(id string) (models.Item, bool) {
	it, ok := c.itemsByID[id]
	return it, ok
}

// overlayFS 优先读取目录中的文件，不存在时读取内置文件
type overlayFS struct {
	primary fs.FS
}

func (o overlayFS) Open(name string) (fs.File, error) {
	f, err := o.primary.Open(name)
	if err == nil {
		return f, nil
	}
	return embedded.Open("data/" + name)
}
