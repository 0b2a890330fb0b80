package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ariefcatur/go-bike-configurator/internal/apperr"
)

// Invalidator drops cached snapshots after a catalog write.
type Invalidator interface {
	Invalidate(ctx context.Context, productID string)
}

// Service validates catalog writes before they reach the store.
type Service struct {
	store    Store
	cache    Invalidator
	validate *validator.Validate
	log      zerolog.Logger
}

func NewService(store Store, cache Invalidator, log zerolog.Logger) *Service {
	return &Service{store: store, cache: cache, validate: validator.New(), log: log}
}

func (s *Service) CreateProduct(ctx context.Context, p Product) (*Product, error) {
	if err := s.check(p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.Status = ProductActive
	p.PartIDs = nil
	p.CreatedAt, p.UpdatedAt = now, now
	if err := s.store.CreateProduct(ctx, &p); err != nil {
		return nil, apperr.Internal("create product", err)
	}
	s.log.Info().Str("product_id", p.ID).Msg("product created")
	return &p, nil
}

func (s *Service) CreatePart(ctx context.Context, p Part) (*Part, error) {
	if err := s.check(p); err != nil {
		return nil, err
	}
	if _, err := s.product(ctx, p.ProductID); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.VariationIDs = nil
	if err := s.store.CreatePart(ctx, &p); err != nil {
		return nil, apperr.Internal("create part", err)
	}
	s.invalidate(ctx, p.ProductID)
	return &p, nil
}

func (s *Service) CreateVariation(ctx context.Context, v Variation) (*Variation, error) {
	if err := s.check(v); err != nil {
		return nil, err
	}
	if err := ValidatePriceRules(v); err != nil {
		return nil, err
	}
	part, err := s.store.GetPart(ctx, v.PartID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("part", v.PartID).WithPart(v.PartID)
	}
	if err != nil {
		return nil, apperr.Internal("load part", err)
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.ReservedStock = 0
	if err := s.store.CreateVariation(ctx, &v); err != nil {
		return nil, apperr.Internal("create variation", err)
	}
	s.invalidate(ctx, part.ProductID)
	return &v, nil
}

func (s *Service) SetFlow(ctx context.Context, f Flow) (*Flow, error) {
	if err := s.check(f); err != nil {
		return nil, err
	}
	p, err := s.product(ctx, f.ProductID)
	if err != nil {
		return nil, err
	}
	owned := make(map[string]bool, len(p.PartIDs))
	for _, id := range p.PartIDs {
		owned[id] = true
	}
	seen := make(map[string]bool, len(f.PartIDs))
	for _, id := range f.PartIDs {
		if !owned[id] {
			return nil, apperr.BadRequest(fmt.Sprintf("part %s is not a part of product %s", id, p.ID)).
				WithProduct(p.ID).WithPart(id)
		}
		if seen[id] {
			return nil, apperr.BadRequest(fmt.Sprintf("part %s listed twice in flow", id)).WithPart(id)
		}
		seen[id] = true
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if err := s.store.SetFlow(ctx, &f); err != nil {
		return nil, apperr.Internal("set flow", err)
	}
	s.invalidate(ctx, f.ProductID)
	return &f, nil
}

// ArchiveProduct hides a product from listings. Orders keep referencing it.
func (s *Service) ArchiveProduct(ctx context.Context, id string) error {
	err := s.store.ArchiveProduct(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("product", id).WithProduct(id)
	}
	if err != nil {
		return apperr.Internal("archive product", err)
	}
	s.invalidate(ctx, id)
	return nil
}

// ValidatePriceRules enforces a single unconditional rule and non-negative prices.
func ValidatePriceRules(v Variation) error {
	base := 0
	for _, r := range v.PriceRules {
		if r.Price.IsNegative() {
			return apperr.InvalidPriceRules(v.ID, fmt.Sprintf("variation %q has a negative price", v.Name))
		}
		if r.Unconditional() {
			base++
		}
	}
	if base != 1 {
		return apperr.InvalidPriceRules(v.ID,
			fmt.Sprintf("variation %q needs exactly one unconditional price rule, has %d", v.Name, base))
	}
	return nil
}

func (s *Service) product(ctx context.Context, id string) (*Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("product", id).WithProduct(id)
	}
	if err != nil {
		return nil, apperr.Internal("load product", err)
	}
	return p, nil
}

func (s *Service) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
		return apperr.BadRequest("invalid fields: " + strings.Join(fields, ", "))
	}
	return apperr.BadRequest(err.Error())
}

func (s *Service) invalidate(ctx context.Context, productID string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, productID)
	}
}
