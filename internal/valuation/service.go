package valuation

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jbcholat-Dev/Estimation-immo/internal/database"
	"github.com/jbcholat-Dev/Estimation-immo/internal/estimation"
	"github.com/jbcholat-Dev/Estimation-immo/internal/geocoding"
	"github.com/jbcholat-Dev/Estimation-immo/internal/geometry"
	"github.com/jbcholat-Dev/Estimation-immo/internal/listings"
	"github.com/jbcholat-Dev/Estimation-immo/internal/models"
)

type ListingSearcher interface {
	Search(ctx context.Context, q listings.Query) []models.Listing
}

type Geocoder interface {
	Geocode(ctx context.Context, address string) ([]geocoding.Candidate, error)
	First(ctx context.Context, address string) (geocoding.Candidate, error)
}

// MarketReport pairs the comparable-sales estimate with current listings.
type MarketReport struct {
	RequestID               string                  `json:"request_id"`
	Estimation              models.EstimationResult `json:"estimation"`
	Listings                []models.Listing        `json:"listings"`
	ListingMedianPricePerM2 decimal.Decimal         `json:"listing_median_price_per_m2"`
}

// Service runs the retrieval, scoring and aggregation pipeline.
type Service struct {
	finder    database.ComparableFinder
	estimator *estimation.Estimator
	listings  ListingSearcher
	geocoder  Geocoder
	defaults  database.SearchParams
	logger    *logrus.Logger
}

func NewService(
	finder database.ComparableFinder,
	estimator *estimation.Estimator,
	listingSearcher ListingSearcher,
	geocoder Geocoder,
	defaults database.SearchParams,
	logger *logrus.Logger,
) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Service{
		finder:    finder,
		estimator: estimator,
		listings:  listingSearcher,
		geocoder:  geocoder,
		defaults:  defaults,
		logger:    logger,
	}
}

func (s *Service) Estimator() *estimation.Estimator {
	return s.estimator
}

// Defaults returns the search bounds used for unset parameters.
func (s *Service) Defaults() database.SearchParams {
	return s.defaults
}

// resolveTarget geocodes a target submitted with an address but no
// coordinates.
func (s *Service) resolveTarget(ctx context.Context, target models.TargetProperty) (models.TargetProperty, error) {
	if target.Latitude != 0 || target.Longitude != 0 || target.Address == "" || s.geocoder == nil {
		return target, nil
	}
	candidate, err := s.geocoder.First(ctx, target.Address)
	if err != nil {
		return target, fmt.Errorf("failed to locate %q: %w", target.Address, err)
	}
	target.Latitude = candidate.Latitude
	target.Longitude = candidate.Longitude
	return target, nil
}

// Valuate retrieves candidates around the target and estimates its value.
func (s *Service) Valuate(ctx context.Context, target models.TargetProperty, params database.SearchParams) (models.EstimationResult, error) {
	target, err := s.resolveTarget(ctx, target)
	if err != nil {
		return models.EstimationResult{}, err
	}
	if err := target.Validate(); err != nil {
		return models.EstimationResult{}, err
	}

	params = params.WithDefaults(s.defaults)
	query := database.NewCandidateQuery(target, params)
	if err := query.Validate(); err != nil {
		return models.EstimationResult{}, err
	}

	requestID := uuid.NewString()
	log := s.logger.WithFields(logrus.Fields{
		"request_id":    requestID,
		"property_type": target.PropertyType,
		"surface_m2":    target.SurfaceM2,
		"radius_km":     query.RadiusKm,
	})

	candidates, err := s.finder.FindCandidates(ctx, query)
	if err != nil {
		log.WithError(err).Error("Candidate retrieval failed")
		return models.EstimationResult{}, err
	}

	result, err := s.estimator.WithSearch(query.RadiusKm, query.YearsBack).Estimate(target, candidates)
	if err != nil {
		return models.EstimationResult{}, err
	}
	if !result.Success {
		log.Warn("No comparable sales found")
	}
	return result, nil
}

// Recompute re-estimates over a subset of earlier comparables, optionally
// narrowed by filter first.
func (s *Service) Recompute(target models.TargetProperty, subset []models.ScoredComparable, filter estimation.Filter, params database.SearchParams) (models.EstimationResult, error) {
	params = params.WithDefaults(s.defaults)
	e := s.estimator.WithSearch(params.RadiusKm, params.YearsBack)
	if !filter.IsZero() {
		subset = e.FilterComparables(subset, filter)
	}
	return e.Recompute(target, subset)
}

// ComparablesGeoJSON valuates the target and returns the map layers.
func (s *Service) ComparablesGeoJSON(ctx context.Context, target models.TargetProperty, params database.SearchParams) (*geojson.FeatureCollection, error) {
	result, err := s.Valuate(ctx, target, params)
	if err != nil {
		return nil, err
	}
	params = params.WithDefaults(s.defaults)
	return geometry.ComparablesFeatureCollection(result.Target, params.RadiusKm, result.ComparablesWithScores), nil
}

// MarketReport runs the valuation and the listing search concurrently.
// Listing failures only leave the listings empty.
func (s *Service) MarketReport(ctx context.Context, target models.TargetProperty, params database.SearchParams, q listings.Query) (*MarketReport, error) {
	report := &MarketReport{
		RequestID:               uuid.NewString(),
		Listings:                []models.Listing{},
		ListingMedianPricePerM2: decimal.Zero,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result, err := s.Valuate(gctx, target, params)
		if err != nil {
			return err
		}
		report.Estimation = result
		return nil
	})
	if s.listings != nil {
		g.Go(func() error {
			report.Listings = s.listings.Search(gctx, q)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.ListingMedianPricePerM2 = listingMedianPricePerM2(report.Listings)

	s.logger.WithFields(logrus.Fields{
		"request_id":  report.RequestID,
		"comparables": len(report.Estimation.ComparablesWithScores),
		"listings":    len(report.Listings),
	}).Info("Market report generated")

	return report, nil
}

func listingMedianPricePerM2(list []models.Listing) decimal.Decimal {
	values := make([]decimal.Decimal, 0, len(list))
	for _, l := range list {
		if l.Price == nil || l.Surface == nil || *l.Surface <= 0 || *l.Price <= 0 {
			continue
		}
		values = append(values, decimal.NewFromFloat(*l.Price).Div(decimal.NewFromFloat(*l.Surface)))
	}
	return estimation.Median(values)
}

// ResolveAddress returns the geocoding candidates for a free-text address.
func (s *Service) ResolveAddress(ctx context.Context, address string) ([]geocoding.Candidate, error) {
	if s.geocoder == nil {
		return nil, fmt.Errorf("geocoding is not configured")
	}
	return s.geocoder.Geocode(ctx, address)
}
