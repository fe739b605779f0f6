package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiwuxian/sanguo-rpg/internal/models"
)

func TestLoadEmbedded(t *testing.T) {
	c, err := LoadEmbedded()
	require.NoError(t, err)

	assert.NotEmpty(t, c.Openings)
	assert.NotEmpty(t, c.Events)
	assert.NotEmpty(t, c.Resolutions)
	assert.Len(t, c.Challenges, 10)

	for _, r := range models.Rarities {
		assert.NotEmpty(t, c.UnitsByRarity(r), "rarity %s has no units", r)
	}
	for _, u := range c.Units {
		assert.NotEmpty(t, u.Camp, u.ID)
		assert.NotEmpty(t, u.Background, u.ID)
	}

	res, ok := c.Resolution("end_accept_reward")
	require.True(t, ok)
	assert.Equal(t, "end_accept_reward", res.ID)
	assert.Equal(t, ResolutionFinal, res.Type)
	assert.Equal(t, 50, res.Rewards.Coins)

	ch, ok := c.Challenge("yt_outpost")
	require.True(t, ok)
	assert.Equal(t, 1, ch.RecommendedLevel)
	assert.Equal(t, 3, ch.MaxPartySize)

	manual, ok := c.Item("old_war_manual")
	require.True(t, ok)
	currency, price, onSale := manual.Price()
	assert.True(t, onSale)
	assert.Equal(t, models.CurrencyCoins, currency)
	assert.Equal(t, 60, price)

	pendant, ok := c.Item("jade_pendant")
	require.True(t, ok)
	_, _, onSale = pendant.Price()
	assert.False(t, onSale)
}

func TestValidateCollectsProblems(t *testing.T) {
	c := &Catalog{
		Openings: []Opening{{ID: "o1", Tags: []string{"a"}}, {ID: "o1"}},
		Events: []Event{
			{ID: "e1", Options: []Option{{Text: "去", Next: "missing"}}},
			{ID: "e2"},
		},
		Resolutions: map[string]Resolution{
			"r1": {Type: "weird"},
			"r2": {Type: ResolutionFinal, Rewards: models.RewardSpec{Items: []string{"ghost"}}},
		},
		Units:      []models.Unit{{ID: "u1", Rarity: 9}},
		Challenges: []models.Challenge{{ID: "c1", RecommendedLevel: 0, MaxPartySize: 0, DifficultyMin: 2, DifficultyMax: 1}},
	}

	err := c.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidContent)

	msg := err.Error()
	for _, want := range []string{"o1", "missing", "e2", "weird", "ghost", "u1", "c1"} {
		assert.Contains(t, msg, want)
	}
}

func TestAllowDangling(t *testing.T) {
	c := &Catalog{
		Openings:      []Opening{{ID: "o1"}},
		Events:        []Event{{ID: "e1", Options: []Option{{Text: "去", Next: "nowhere"}}}},
		Resolutions:   map[string]Resolution{},
		AllowDangling: true,
	}
	assert.NoError(t, c.Build())
}

func TestLoadDirOverlaysEmbedded(t *testing.T) {
	dir := t.TempDir()
	items := []byte(`items:
  - {id: only_item, name: 孤品, type: special, value: 1}
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "items.yaml"), items, 0o644))

	// 内置剧情引用了其他道具，只替换道具表应当校验失败
	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidContent)
}

func TestLoadFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"narrative.yaml": {Data: []byte(`
openings:
  - {id: o1, tags: [a], template: "开场"}
events:
  - id: e1
    tags: [a]
    template: "事件"
    options:
      - {text: "结束", next: r1}
resolutions:
  r1: {type: final, template: "完", rewards: {coins: 5}}
`)},
		"units.yaml":      {Data: []byte("units: []\n")},
		"challenges.yaml": {Data: []byte("challenges: []\n")},
		"items.yaml":      {Data: []byte("items: []\n")},
	}

	c, err := Load(fsys)
	require.NoError(t, err)
	assert.Len(t, c.Openings, 1)
	r, ok := c.Resolution("r1")
	require.True(t, ok)
	assert.Equal(t, 5, r.Rewards.Coins)
}
