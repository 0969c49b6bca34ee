package recommend

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"indiehub/internal/auth"
	"indiehub/internal/catalog"
	"indiehub/internal/favorites"
)

type Handler struct {
	Catalog   *catalog.Repo
	Favorites *favorites.Repo
}

func NewHandler(catalogRepo *catalog.Repo, favRepo *favorites.Repo) *Handler {
	return &Handler{Catalog: catalogRepo, Favorites: favRepo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/recommendations", h.recommend)
}

// GET /users/recommendations?limit=10&max_price=15&shuffle=1
//
// max_price overrides the user's stored budget for this request only.
// shuffle opts into randomized tie ordering; the default is
// deterministic.
func (h *Handler) recommend(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	ctx := c.Request.Context()

	limit := 10
	if s := strings.TrimSpace(c.Query("limit")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	var ceiling float64
	if s := strings.TrimSpace(c.Query("max_price")); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid max_price"})
			return
		}
		ceiling = v
	} else {
		v, err := h.Favorites.MaxPriceOf(ctx, claims.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "load budget failed"})
			return
		}
		ceiling = v
	}

	favs, err := h.Favorites.GamesOf(ctx, claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load favorites failed"})
		return
	}
	if len(favs) == 0 {
		// No preference signal: explicit caller-facing state, not a 500.
		c.JSON(http.StatusConflict, gin.H{
			"error": "no favorites yet: add favorites to get recommendations",
		})
		return
	}

	profile := Profile(favs)

	// Price pre-filter happens in SQL; exclusion of the user's own
	// favorites happens in Rank.
	pool, err := h.Catalog.ListAll(ctx, &ceiling)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load catalog failed"})
		return
	}

	exclude := make(map[string]struct{}, len(favs))
	for _, f := range favs {
		exclude[f.ID] = struct{}{}
	}

	ranked := Rank(pool, profile, RankOptions{
		ExcludeIDs: exclude,
		Limit:      limit,
		Shuffle:    isTruthy(c.Query("shuffle")),
	})

	c.JSON(http.StatusOK, gin.H{
		"limit":     limit,
		"max_price": ceiling,
		"items":     ranked,
	})
}

func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
