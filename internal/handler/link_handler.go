package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/SergeiKhy/link-shortener/internal/apperror"
	"github.com/SergeiKhy/link-shortener/internal/middleware"
	"github.com/SergeiKhy/link-shortener/internal/models"
	"github.com/SergeiKhy/link-shortener/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LinkHandler struct {
	service service.LinkService
	baseURL string
	logger  *zap.Logger
}

func NewLinkHandler(service service.LinkService, baseURL string, logger *zap.Logger) *LinkHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkHandler{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// CreateLinkRequest тело запроса на создание ссылки; alias null или отсутствует - генерируется
type CreateLinkRequest struct {
	OriginalURL string  `json:"original_url" binding:"required,url"`
	ExpiresAt   *string `json:"expires_at"`
	Alias       *string `json:"alias" binding:"omitempty,min=1,max=20,alias,notreserved"`
}

type LinkResponse struct {
	models.Link
	ShortURL string `json:"short_url"`
}

type DeleteLinkResponse struct {
	Message     string      `json:"message"`
	DeletedLink models.Link `json:"deleted_link"`
}

// CreateLink godoc
// @Summary Create a short link
// @Description Create a new shortened URL with a generated or custom alias
// @Tags links
// @Accept json
// @Produce json
// @Param request body CreateLinkRequest true "Link creation request"
// @Success 201 {object} LinkResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/links [post]
func (h *LinkHandler) CreateLink(c *gin.Context) {
	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", zap.Error(err))
		h.writeError(c, bindingError(err))
		return
	}

	input := &models.CreateLinkInput{
		OriginalURL: req.OriginalURL,
		ExpiresAt:   req.ExpiresAt,
		Alias:       req.Alias,
	}

	link, err := h.service.CreateLink(c.Request.Context(), input)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, h.linkResponse(c, link))
}

// Redirect godoc
// @Summary Redirect to original URL
// @Description Redirect to the original URL and record the click
// @Tags links
// @Param alias path string true "Short alias"
// @Success 302
// @Failure 404 {object} ErrorResponse
// @Router /{alias} [get]
func (h *LinkHandler) Redirect(c *gin.Context) {
	alias := c.Param("alias")

	originalURL, err := h.service.Resolve(c.Request.Context(), alias, middleware.GetClientIP(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Redirect(http.StatusFound, originalURL)
}

// GetInfo godoc
// @Summary Get short link info
// @Tags links
// @Produce json
// @Param alias path string true "Short alias"
// @Success 200 {object} LinkResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/links/{alias} [get]
func (h *LinkHandler) GetInfo(c *gin.Context) {
	link, err := h.service.GetInfo(c.Request.Context(), c.Param("alias"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.linkResponse(c, link))
}

// GetAnalytics godoc
// @Summary Get click analytics for a short link
// @Description Link info with every recorded click in chronological order
// @Tags links
// @Produce json
// @Param alias path string true "Short alias"
// @Success 200 {object} models.LinkAnalytics
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/links/{alias}/analytics [get]
func (h *LinkHandler) GetAnalytics(c *gin.Context) {
	analytics, err := h.service.GetAnalytics(c.Request.Context(), c.Param("alias"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, analytics)
}

// DeleteLink godoc
// @Summary Delete a short link
// @Description Delete a shortened URL together with its clicks
// @Tags links
// @Produce json
// @Param alias path string true "Short alias"
// @Success 200 {object} DeleteLinkResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/links/{alias} [delete]
func (h *LinkHandler) DeleteLink(c *gin.Context) {
	link, err := h.service.DeleteLink(c.Request.Context(), c.Param("alias"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, DeleteLinkResponse{
		Message:     fmt.Sprintf("Short URL '%s' and its clicks deleted successfully.", link.ShortAlias),
		DeletedLink: *link,
	})
}

// ListLinks godoc
// @Summary List short links
// @Description Paginated list of links, newest first
// @Tags links
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} models.LinkPage
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/links [get]
func (h *LinkHandler) ListLinks(c *gin.Context) {
	var details []apperror.Detail

	page, err := queryInt(c, "page", service.DefaultPage)
	if err != nil {
		details = append(details, apperror.Detail{Path: "page", Message: "page must be an integer"})
	}
	pageSize, err := queryInt(c, "page_size", service.DefaultPageSize)
	if err != nil {
		details = append(details, apperror.Detail{Path: "page_size", Message: "page_size must be an integer"})
	}
	if len(details) > 0 {
		h.writeError(c, apperror.Validation("Validation failed", details...))
		return
	}

	result, err := h.service.ListLinks(c.Request.Context(), page, pageSize)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// HealthCheck godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/v1/health [get]
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "url-shortener"})
}

func (h *LinkHandler) linkResponse(c *gin.Context, link *models.Link) LinkResponse {
	return LinkResponse{Link: *link, ShortURL: h.shortURL(c, link.ShortAlias)}
}

// shortURL строится от APP_BASE_URL, а без него - от схемы и хоста запроса
func (h *LinkHandler) shortURL(c *gin.Context, shortAlias string) string {
	base := h.baseURL
	if base == "" {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + c.Request.Host
	}
	return base + "/" + shortAlias
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
