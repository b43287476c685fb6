package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"streamflix-catalog-service/internal/models"
)

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate(100)
	b := Generate(100)
	require.Equal(t, a, b)

	// A smaller catalog is a prefix of a larger one.
	small := Generate(10)
	require.Equal(t, a[:10], small)
}

func TestGenerate_ItemShape(t *testing.T) {
	items := Generate(60)
	require.Len(t, items, 60)

	seen := make(map[string]bool)
	for i, c := range items {
		require.NotEmpty(t, c.ID)
		require.False(t, seen[c.ID], "duplicate id %s", c.ID)
		seen[c.ID] = true

		require.NotEmpty(t, c.Title)
		require.Len(t, c.Genres, 2)
		require.GreaterOrEqual(t, c.Rating, 3.0)
		require.LessOrEqual(t, c.Rating, 5.0)
		require.GreaterOrEqual(t, c.Year, 2018)
		require.LessOrEqual(t, c.Year, 2024)
		require.NotEmpty(t, c.Description)

		if i%3 == 0 {
			require.Equal(t, models.KindSeries, c.Kind)
			require.Contains(t, c.Duration, "Seasons")
		} else {
			require.Equal(t, models.KindMovie, c.Kind)
			require.Contains(t, c.Duration, "min")
		}
	}
}

func TestGenerate_Flags(t *testing.T) {
	items := Generate(30)

	var trending, featured int
	for _, c := range items {
		if c.Trending {
			trending++
		}
		if c.Featured {
			featured++
		}
	}
	require.Equal(t, 6, trending)
	require.Equal(t, 2, featured)
}
