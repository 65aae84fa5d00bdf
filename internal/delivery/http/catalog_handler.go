package http

import (
	"net/http"
	"strconv"

	"github.com/egannguyen/fontmarket/internal/entity"
	"github.com/egannguyen/fontmarket/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func (h *Handler) handleListFonts(c *gin.Context) {
	in := service.ListFontsInput{
		Search:   c.Query("search"),
		Category: c.Query("category"),
	}
	if v, ok := c.GetQuery("free"); ok && v != "" {
		free, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "free must be true or false"})
			return
		}
		in.Free = &free
	}
	in.Page, _ = strconv.Atoi(c.Query("page"))
	in.Limit, _ = strconv.Atoi(c.Query("limit"))

	page, err := h.svc.Catalog.List(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) handleGetFont(c *gin.Context) {
	font, err := h.svc.Catalog.Get(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, font)
}

func (h *Handler) handleCategoryCounts(c *gin.Context) {
	counts, err := h.svc.Catalog.CategoryCounts(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": counts})
}

type fontRequest struct {
	Name        string            `json:"name" binding:"required"`
	Description string            `json:"description"`
	Category    string            `json:"category" binding:"required"`
	Price       decimal.Decimal   `json:"price"`
	IsFree      bool              `json:"isFree"`
	Promotion   *entity.Promotion `json:"promotion"`
	Tags        []string          `json:"tags"`
	Languages   []string          `json:"languages"`
	Files       []entity.FontFile `json:"files" binding:"required,min=1"`
}

func (r fontRequest) input() service.FontInput {
	return service.FontInput{
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Price:       r.Price,
		IsFree:      r.IsFree,
		Promotion:   r.Promotion,
		Tags:        r.Tags,
		Languages:   r.Languages,
		Files:       r.Files,
	}
}

func (h *Handler) handleCreateFont(c *gin.Context) {
	var req fontRequest
	if !bindJSON(c, &req) {
		return
	}
	font, err := h.svc.Catalog.Create(c.Request.Context(), userID(c), req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Font submitted for review", "font": font})
}

func (h *Handler) handleUpdateFont(c *gin.Context) {
	var req fontRequest
	if !bindJSON(c, &req) {
		return
	}
	font, err := h.svc.Catalog.Update(c.Request.Context(), userID(c), c.Param("id"), req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Font updated and resubmitted for review", "font": font})
}

func (h *Handler) handleListPending(c *gin.Context) {
	fonts, err := h.svc.Catalog.ListPending(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fonts": fonts})
}

type moderateRequest struct {
	Status entity.FontStatus `json:"status" binding:"required,oneof=approved rejected"`
}

func (h *Handler) handleModerate(c *gin.Context) {
	var req moderateRequest
	if !bindJSON(c, &req) {
		return
	}
	font, err := h.svc.Catalog.Moderate(c.Request.Context(), userID(c), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Font " + string(font.Status), "font": font})
}

func (h *Handler) handleSellerStats(c *gin.Context) {
	stats, err := h.svc.Catalog.SellerStats(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) handleSellerFonts(c *gin.Context) {
	fonts, err := h.svc.Catalog.SellerFonts(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fonts": fonts})
}

func (h *Handler) handleListSponsored(c *gin.Context) {
	fonts, err := h.svc.Sponsors.ActiveSponsored(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fonts": fonts})
}

type sponsorRequest struct {
	FontID   string          `json:"fontId" binding:"required"`
	Amount   decimal.Decimal `json:"amount"`
	Duration int             `json:"duration" binding:"required"`
}

func (h *Handler) handleSponsor(c *gin.Context) {
	var req sponsorRequest
	if !bindJSON(c, &req) {
		return
	}
	sp, err := h.svc.Sponsors.Sponsor(c.Request.Context(), userID(c), req.FontID, req.Amount, req.Duration)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Font sponsored", "sponsorship": sp})
}
