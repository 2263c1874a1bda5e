package classifier

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/sentia/internal/models"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		dist      models.Distribution
		primary   models.Emotion
		secondary models.Emotion
	}{
		{"positive wins", models.Distribution{0.1, 0.2, 0.7}, models.Positive, models.Neutral},
		{"negative wins", models.Distribution{0.6, 0.1, 0.3}, models.Negative, models.Positive},
		{"tie at the top favours negativo", models.Distribution{0.4, 0.2, 0.4}, models.Negative, models.Positive},
		{"tie for second favours negativo", models.Distribution{0.2, 0.2, 0.6}, models.Positive, models.Negative},
		{"neutro beats positivo on a tie", models.Distribution{0.2, 0.4, 0.4}, models.Neutral, models.Positive},
		{"uniform follows declared order", models.Distribution{1.0 / 3, 1.0 / 3, 1.0 / 3}, models.Negative, models.Neutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.dist, "")
			assert.Equal(t, tt.primary, got.Primary)
			assert.Equal(t, tt.secondary, got.Secondary)
			assert.Equal(t, LocalModelID, got.Model)
		})
	}
}

func TestDecide_Summary(t *testing.T) {
	got := Decide(models.Distribution{0.1, 0.2, 0.7}, LocalModelID)
	assert.Equal(t, "Análisis de texto con modelo LSTM. Principal: positivo.", got.Summary)

	got = Decide(models.Distribution{0.7, 0.2, 0.1}, "openai/gpt-4o-mini")
	assert.Equal(t, "Análisis de texto con modelo openai/gpt-4o-mini. Principal: negativo.", got.Summary)
	assert.Equal(t, "openai/gpt-4o-mini", got.Model)
}

func TestRank_OrderedByProbability(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		var d models.Distribution
		var sum float64
		for j := range d {
			// Coarse values make ties frequent.
			d[j] = float64(rng.Intn(4))
			sum += d[j]
		}
		if sum == 0 {
			continue
		}
		ranked := Rank(d)
		assert.GreaterOrEqual(t, d.Get(ranked[0]), d.Get(ranked[1]))
		assert.GreaterOrEqual(t, d.Get(ranked[1]), d.Get(ranked[2]))
		assert.ElementsMatch(t, models.Labels[:], ranked[:])
		assert.Equal(t, ranked, Rank(d))
	}
}

func TestParseDistribution(t *testing.T) {
	d, err := ParseDistribution(map[string]float64{"negativo": 0.1, "neutro": 0.2, "positivo": 0.7})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.1, 0.2, 0.7}, d[:], 1e-12)

	d, err = ParseDistribution(map[string]float64{"negativo": 5, "neutro": 3, "positivo": 1})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{5.0 / 9, 3.0 / 9, 1.0 / 9}, d[:], 1e-12)
	assert.InDelta(t, 1.0, d[0]+d[1]+d[2], 1e-12)

	bad := []map[string]float64{
		{"negativo": 0.5, "neutro": 0.5},
		{"negativo": 0.5, "neutro": 0.5, "feliz": 0},
		{"negativo": -0.1, "neutro": 0.5, "positivo": 0.6},
		{"negativo": 0.1, "neutro": 0.2, "positivo": 0.7, "extra": 0},
		{"negativo": 0, "neutro": 0, "positivo": 0},
		{"negativo": math.MaxFloat64, "neutro": math.MaxFloat64, "positivo": 0},
	}
	for _, m := range bad {
		_, err := ParseDistribution(m)
		assert.ErrorIs(t, err, ErrInputType, "%v", m)
	}
}

func TestInput(t *testing.T) {
	_, err := Input{}.Text()
	assert.ErrorIs(t, err, ErrInputType)

	text, err := RawText("hola").Text()
	require.NoError(t, err)
	assert.Equal(t, "hola", text)

	in := Structured(models.SelfReport{
		FeelingToday: "Feliz",
		EnergyLevel:  "8",
		Description:  "buen día",
		Hobby:        "correr",
	})
	assert.True(t, in.IsStructured())
	text, err = in.Text()
	require.NoError(t, err)
	assert.Equal(t, "Feliz 8    buen día correr", text)
}
