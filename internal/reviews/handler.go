package reviews

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"indiehub/internal/auth"
)

// Hidden-gem defaults: well rated, still under the radar.
const (
	defaultGemMinRating  = 4.0
	defaultGemMaxReviews = 50
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/games/:id/reviews", h.listByGame)
	rg.GET("/games/hidden-gems", h.hiddenGems)
}

func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.POST("/reviews", h.upsert)
	rg.DELETE("/reviews/:id", h.delete)
}

type upsertReq struct {
	GameID  string `json:"game_id"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h *Handler) upsert(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req upsertReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	gameID := strings.TrimSpace(req.GameID)
	if gameID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "game_id required"})
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be between 1 and 5"})
		return
	}

	g, err := h.Repo.Catalog.GetByID(c.Request.Context(), gameID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if g == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		return
	}

	review, err := h.Repo.Upsert(c.Request.Context(), claims.UserID, gameID, req.Rating, strings.TrimSpace(req.Comment))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	c.JSON(http.StatusCreated, review)
}

func (h *Handler) listByGame(c *gin.Context) {
	gameID := strings.TrimSpace(c.Param("id"))
	if gameID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "game id required"})
		return
	}

	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)

	reviews, err := h.Repo.ListByGame(c.Request.Context(), gameID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"limit":  limit,
		"offset": offset,
		"items":  reviews,
	})
}

func (h *Handler) hiddenGems(c *gin.Context) {
	minRating := defaultGemMinRating
	if s := strings.TrimSpace(c.Query("min_rating")); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 1 || v > 5 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_rating must be between 1 and 5"})
			return
		}
		minRating = v
	}

	maxReviews := defaultGemMaxReviews
	if s := strings.TrimSpace(c.Query("max_reviews")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "max_reviews must be a positive integer"})
			return
		}
		maxReviews = n
	}

	limit := parseInt(c.Query("limit"), 20)

	gems, err := h.Repo.HiddenGems(c.Request.Context(), minRating, maxReviews, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"min_rating":  minRating,
		"max_reviews": maxReviews,
		"items":       gems,
	})
}

func (h *Handler) delete(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id required"})
		return
	}

	ok, err := h.Repo.Delete(c.Request.Context(), id, claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
