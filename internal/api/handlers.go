package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jbcholat-Dev/Estimation-immo/internal/database"
	"github.com/jbcholat-Dev/Estimation-immo/internal/estimation"
	"github.com/jbcholat-Dev/Estimation-immo/internal/finance"
	"github.com/jbcholat-Dev/Estimation-immo/internal/listings"
	"github.com/jbcholat-Dev/Estimation-immo/internal/models"
	"github.com/jbcholat-Dev/Estimation-immo/internal/valuation"
)

// Pinger reports whether the transactions store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	service  *valuation.Service
	store    Pinger
	listings valuation.ListingSearcher
	rates    finance.RateTable
	logger   *logrus.Logger
}

type EstimateRequest struct {
	Target models.TargetProperty  `json:"target"`
	Search database.SearchParams `json:"search"`
}

type RecomputeRequest struct {
	Target      models.TargetProperty     `json:"target"`
	Comparables []models.ScoredComparable `json:"comparables"`
	Filter      estimation.Filter         `json:"filter"`
	Search      database.SearchParams     `json:"search"`
}

type MarketReportRequest struct {
	Target   models.TargetProperty  `json:"target"`
	Search   database.SearchParams `json:"search"`
	Listings listings.Query        `json:"listings"`
}

func NewHandler(service *valuation.Service, store Pinger, listingSearcher valuation.ListingSearcher, rates finance.RateTable, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		service:  service,
		store:    store,
		listings: listingSearcher,
		rates:    rates,
		logger:   logger,
	}
}

// respondError maps validation failures to 400, store failures to 502 and
// anything else to 500.
func (h *Handler) respondError(c *gin.Context, err error, message string) {
	var validationErr *models.ValidationError
	var retrievalErr *database.DataRetrievalError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error(), "field": validationErr.Field})
	case errors.As(err, &retrievalErr):
		h.logger.WithError(err).Error(message)
		c.JSON(http.StatusBadGateway, gin.H{"error": message})
	default:
		h.logger.WithError(err).Error(message)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var validationErr *models.ValidationError
		if errors.As(err, &validationErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error(), "field": validationErr.Field})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return false
	}
	return true
}

func (h *Handler) Health(c *gin.Context) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			h.logger.WithError(err).Error("Health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Geocode(c *gin.Context) {
	address := c.Query("address")
	if address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address is required"})
		return
	}

	candidates, err := h.service.ResolveAddress(c.Request.Context(), address)
	if err != nil {
		h.respondError(c, err, "Failed to geocode address")
		return
	}

	c.JSON(http.StatusOK, gin.H{"candidates": candidates})
}

func (h *Handler) Estimate(c *gin.Context) {
	var req EstimateRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.service.Valuate(c.Request.Context(), req.Target, req.Search)
	if err != nil {
		h.respondError(c, err, "Failed to estimate property")
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) Recompute(c *gin.Context) {
	var req RecomputeRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.service.Recompute(req.Target, req.Comparables, req.Filter, req.Search)
	if err != nil {
		h.respondError(c, err, "Failed to recompute estimation")
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) ComparablesGeoJSON(c *gin.Context) {
	var req EstimateRequest
	if !h.bind(c, &req) {
		return
	}

	fc, err := h.service.ComparablesGeoJSON(c.Request.Context(), req.Target, req.Search)
	if err != nil {
		h.respondError(c, err, "Failed to build comparables map")
		return
	}

	c.JSON(http.StatusOK, fc)
}

func (h *Handler) SearchListings(c *gin.Context) {
	var q listings.Query
	if !h.bind(c, &q) {
		return
	}
	if q.City == "" && q.PostalCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "city or postal_code is required"})
		return
	}

	found := []models.Listing{}
	if h.listings != nil {
		found = h.listings.Search(c.Request.Context(), q)
	}

	c.JSON(http.StatusOK, gin.H{"listings": found, "count": len(found)})
}

func (h *Handler) MarketReport(c *gin.Context) {
	var req MarketReportRequest
	if !h.bind(c, &req) {
		return
	}

	report, err := h.service.MarketReport(c.Request.Context(), req.Target, req.Search, req.Listings)
	if err != nil {
		h.respondError(c, err, "Failed to build market report")
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *Handler) Rates(c *gin.Context) {
	c.JSON(http.StatusOK, h.rates)
}
