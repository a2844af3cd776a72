package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Alturino/marketclub/internal/auth"
	"github.com/Alturino/marketclub/internal/backend"
	"github.com/Alturino/marketclub/internal/constants"
	"github.com/Alturino/marketclub/internal/otel"
	"github.com/Alturino/marketclub/product/pkg/response"
)

const KEY_PRODUCTS = "products:"

type ProductService struct {
	backend backend.Requester
	cache   *redis.Client
	ttl     time.Duration
}

// NewProductService reads products through redis when cache is not nil. A zero ttl disables caching.
func NewProductService(backend backend.Requester, cache *redis.Client, ttl time.Duration) *ProductService {
	return &ProductService{backend: backend, cache: cache, ttl: ttl}
}

func (svc *ProductService) FindProductById(
	c context.Context,
	creds auth.Credentials,
	id string,
) (product response.Product, err error) {
	c, span := otel.Tracer.Start(c, "ProductService FindProductById")
	defer span.End()

	cacheKey := KEY_PRODUCTS + id
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "ProductService FindProductById").
		Str(constants.KEY_PRODUCT_ID, id).
		Str(constants.KEY_CACHE_KEY, cacheKey).
		Logger()

	useCache := svc.cache != nil && svc.ttl > 0
	if useCache {
		logger = logger.With().Str(constants.KEY_PROCESS, "finding product in cache").Logger()
		logger.Trace().Msg("finding product in cache")
		cached, err := svc.cache.Get(c, cacheKey).Result()
		switch {
		case err == nil:
			if err = json.Unmarshal([]byte(cached), &product); err == nil {
				span.AddEvent("found product in cache")
				logger.Debug().Msg("found product in cache")
				return product, nil
			}
			logger.Warn().Err(err).Msg("failed decoding cached product reading backend")
		case errors.Is(err, redis.Nil):
			logger.Trace().Msg("product not in cache")
		default:
			err = fmt.Errorf("failed reading product cache with error=%w", err)
			logger.Warn().Err(err).Msg(err.Error())
		}
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "finding product in backend").Logger()
	logger.Trace().Msg("finding product in backend")
	err = svc.backend.Do(c, http.MethodGet, "/products/"+url.PathEscape(id), creds, nil, &product)
	if err != nil {
		err = fmt.Errorf("failed finding product with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	logger = logger.With().Any(constants.KEY_PRODUCT, product).Logger()
	logger.Debug().Msg("found product in backend")

	if useCache {
		logger = logger.With().Str(constants.KEY_PROCESS, "caching product").Logger()
		encoded, err := json.Marshal(product)
		if err == nil {
			err = svc.cache.Set(c, cacheKey, encoded, svc.ttl).Err()
		}
		if err != nil {
			err = fmt.Errorf("failed caching product with error=%w", err)
			logger.Warn().Err(err).Msg(err.Error())
		} else {
			logger.Trace().Msg("cached product")
		}
	}

	return product, nil
}

// Invalidate drops the cached projection so the next read hits the backend. Stock changes
// after an order make the cached copy stale.
func (svc *ProductService) Invalidate(c context.Context, ids ...string) {
	if svc.cache == nil || len(ids) == 0 {
		return
	}
	c, span := otel.Tracer.Start(c, "ProductService Invalidate")
	defer span.End()

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, KEY_PRODUCTS+id)
	}
	if err := svc.cache.Del(c, keys...).Err(); err != nil {
		err = fmt.Errorf("failed invalidating product cache with error=%w", err)
		otel.RecordError(err, span)
		zerolog.Ctx(c).Warn().Err(err).Str(constants.KEY_TAG, "ProductService Invalidate").Msg(err.Error())
	}
}
