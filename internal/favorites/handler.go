// Package favorites manages a user's favorite-game set and their
// spending ceiling; both feed the recommendation endpoint.
package favorites

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"indiehub/internal/auth"
	"indiehub/internal/catalog"
)

type Handler struct {
	Repo    *Repo
	Catalog *catalog.Repo
}

func NewHandler(repo *Repo, catalogRepo *catalog.Repo) *Handler {
	return &Handler{Repo: repo, Catalog: catalogRepo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/favorites", h.list)
	rg.POST("/favorites", h.add)
	rg.DELETE("/favorites/:game_id", h.remove)
	rg.PUT("/max-price", h.setMaxPrice)
}

type addReq struct {
	GameID string `json:"game_id"`
}

func (h *Handler) add(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req addReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	gameID := strings.TrimSpace(req.GameID)
	if gameID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "game_id required"})
		return
	}

	g, err := h.Catalog.GetByID(c.Request.Context(), gameID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if g == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		return
	}

	added, err := h.Repo.Add(c.Request.Context(), claims.UserID, gameID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	c.JSON(status, g)
}

func (h *Handler) list(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	games, err := h.Repo.GamesOf(c.Request.Context(), claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total": len(games),
		"items": games,
	})
}

func (h *Handler) remove(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	gameID := strings.TrimSpace(c.Param("game_id"))
	if gameID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "game_id required"})
		return
	}

	ok, err := h.Repo.Remove(c.Request.Context(), claims.UserID, gameID)
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

type maxPriceReq struct {
	MaxPrice *float64 `json:"max_price"`
}

func (h *Handler) setMaxPrice(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req maxPriceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.MaxPrice == nil || *req.MaxPrice < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max_price must be >= 0"})
		return
	}

	if err := h.Repo.SetMaxPrice(c.Request.Context(), claims.UserID, *req.MaxPrice); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"max_price": *req.MaxPrice})
}
