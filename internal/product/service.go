package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/Alturino/mallofhookah/internal/constants"
	inErrors "github.com/Alturino/mallofhookah/internal/errors"
	"github.com/Alturino/mallofhookah/internal/otel"
	"github.com/Alturino/mallofhookah/internal/repository"
	"github.com/Alturino/mallofhookah/pkg/response"
)

const (
	baseTTL         = 15 * time.Minute
	minSearchLength = 3
)

type ProductService struct {
	queries *repository.Queries
	cache   *redis.Client
	group   singleflight.Group
}

func NewProductService(queries *repository.Queries, cache *redis.Client) *ProductService {
	return &ProductService{queries: queries, cache: cache}
}

func cacheKey(id uuid.UUID) string {
	return fmt.Sprintf(constants.KEY_CACHE_PRODUCT, id.String())
}

// FindProductById reads through the cache. Concurrent misses for the same id
// share one lookup.
func (svc *ProductService) FindProductById(c context.Context, id uuid.UUID) (repository.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductService FindProductById")
	defer span.End()

	key := cacheKey(id)
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "ProductService FindProductById").
		Str(constants.KEY_PRODUCT_ID, id.String()).
		Str(constants.KEY_CACHE_KEY, key).
		Logger()

	v, err, _ := svc.group.Do(key, func() (interface{}, error) {
		logger = logger.With().Str(constants.KEY_PROCESS, "finding product in cache").Logger()
		logger.Info().Msg("finding product in cache")
		product, err := svc.fromCache(c, key)
		if err == nil {
			logger.Info().Msg("found product in cache")
			return product, nil
		}
		if !errors.Is(err, inErrors.ErrCacheMiss) {
			logger.Error().Err(err).Msg(err.Error())
		}

		logger = logger.With().Str(constants.KEY_PROCESS, "finding product in database").Logger()
		logger.Info().Msg("finding product in database")
		product, err = svc.queries.FindProductById(c, id)
		if err != nil {
			err = fmt.Errorf("failed finding product id=%s with error=%w", id.String(), err)
			return repository.Product{}, err
		}
		logger.Info().Msg("found product in database")

		logger = logger.With().Str(constants.KEY_PROCESS, "caching product").Logger()
		logger.Info().Msg("caching product")
		if err := svc.toCache(c, key, product); err != nil {
			logger.Error().Err(err).Msg(err.Error())
		} else {
			logger.Info().Msg("cached product")
		}
		return product, nil
	})
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return repository.Product{}, err
	}
	return v.(repository.Product), nil
}

// FindProducts lists active products. A search query shorter than
// minSearchLength finds nothing.
func (svc *ProductService) FindProducts(c context.Context, p repository.FindProductsParams) ([]response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductService FindProducts")
	defer span.End()

	p.Query = strings.TrimSpace(p.Query)
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "ProductService FindProducts").
		Str(constants.KEY_PROCESS, "finding products").
		Str("categoryId", p.CategoryID.String()).
		Str(constants.KEY_SEARCH_QUERY, p.Query).
		Logger()

	if p.Query != "" && utf8.RuneCountInString(p.Query) < minSearchLength {
		logger.Info().Msg("search query too short, skipping")
		return []response.Product{}, nil
	}

	logger.Info().Msg("finding products")
	products, err := svc.queries.FindProducts(c, p)
	if err != nil {
		err = fmt.Errorf("failed finding products with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Int(constants.KEY_PRODUCTS, len(products)).Msg("found products")

	result := make([]response.Product, 0, len(products))
	for _, product := range products {
		result = append(result, ToResponse(product))
	}
	return result, nil
}

func (svc *ProductService) InvalidateProduct(c context.Context, id uuid.UUID) error {
	c, span := otel.Tracer.Start(c, "ProductService InvalidateProduct")
	defer span.End()

	key := cacheKey(id)
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "ProductService InvalidateProduct").
		Str(constants.KEY_PROCESS, "deleting product from cache").
		Str(constants.KEY_CACHE_KEY, key).
		Logger()

	logger.Info().Msg("deleting product from cache")
	if err := svc.cache.Del(c, key).Err(); err != nil {
		err = fmt.Errorf("failed deleting product key=%s with error=%w", key, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("deleted product from cache")
	return nil
}

func (svc *ProductService) fromCache(c context.Context, key string) (repository.Product, error) {
	data, err := svc.cache.Get(c, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return repository.Product{}, inErrors.ErrCacheMiss
	}
	if err != nil {
		return repository.Product{}, fmt.Errorf("failed getting key=%s with error=%w", key, err)
	}
	product := repository.Product{}
	if err := json.Unmarshal(data, &product); err != nil {
		return repository.Product{}, fmt.Errorf("failed unmarshaling key=%s with error=%w", key, err)
	}
	return product, nil
}

func (svc *ProductService) toCache(c context.Context, key string, product repository.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed marshaling key=%s with error=%w", key, err)
	}
	jitter := time.Duration(rand.Intn(5)) * time.Minute
	if err := svc.cache.Set(c, key, data, baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("failed setting key=%s with error=%w", key, err)
	}
	return nil
}

func ToResponse(p repository.Product) response.Product {
	return response.Product{
		ID:          p.ID,
		CategoryID:  p.CategoryID,
		Name:        p.Name,
		Description: p.Description,
		Sku:         p.Sku,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
		Stock:       p.Stock,
		CreatedAt:   p.CreatedAt,
	}
}
