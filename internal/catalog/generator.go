package catalog

import (
	"fmt"
	"math/rand"
	"strings"

	"streamflix-catalog-service/internal/models"
)

var (
	genres = []string{"Action", "Comedy", "Drama", "Sci-Fi", "Horror", "Romance", "Thriller", "Documentary"}
	titles = []string{
		"The Last Journey", "Midnight Eclipse", "Beyond Horizons", "Silent Echoes", "Digital Dreams",
		"Urban Legends", "Quantum Break", "Shadow Protocol", "Crystal Dawn", "Neon Nights",
	}
)

const sampleVideoURL = "https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/BigBuckBunny.mp4"

// Generate synthesizes a deterministic mock catalog of the given size.
// Calling it twice with the same count yields identical items; a smaller
// count yields a prefix of a larger one.
func Generate(count int) []models.ContentItem {
	rng := rand.New(rand.NewSource(1))
	items := make([]models.ContentItem, 0, count)
	for i := 0; i < count; i++ {
		kind := models.KindMovie
		duration := fmt.Sprintf("%dmin", 90+(i%60))
		if i%3 == 0 {
			kind = models.KindSeries
			duration = fmt.Sprintf("%d Seasons", 1+(i%3))
		}
		primary := genres[i%len(genres)]
		items = append(items, models.ContentItem{
			ID:        fmt.Sprintf("content-%d", i),
			Title:     fmt.Sprintf("%s %d", titles[i%len(titles)], i/len(titles)+1),
			Kind:      kind,
			Genres:    []string{primary, genres[(i+1)%len(genres)]},
			Rating:    float64(30+rng.Intn(21)) / 10,
			Year:      2018 + (i % 7),
			Duration:  duration,
			Thumbnail: fmt.Sprintf("https://picsum.photos/seed/%d/400/225", i),
			Description: fmt.Sprintf(
				"An epic %s experience that will keep you on the edge of your seat. Follow the journey through unexpected twists and compelling characters.",
				strings.ToLower(primary)),
			Trending: i%5 == 0,
			Featured: i%15 == 0,
			VideoURL: sampleVideoURL,
		})
	}
	return items
}
