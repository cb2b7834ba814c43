package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/iliyamo/neststay/internal/breaker"
	"github.com/iliyamo/neststay/internal/model"
)

// HTTP reads room types from an external catalog service:
//
//	GET {base}/room-types/{id}
//	GET {base}/locations/{id}/room-types
//
// Bodies are decoded as JSON whatever the response Content-Type says, so
// a 200 carrying anything else is an error rather than an empty result.
// Calls go through a circuit breaker; a 404 does not count as a failure.
type HTTP struct {
	client  *resty.Client
	breaker *breaker.Breaker
}

func NewHTTP(baseURL string, timeout time.Duration, log *zap.Logger) *HTTP {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	return &HTTP{
		client: client,
		breaker: breaker.New("catalog", breaker.Options{
			IsSuccessful: func(err error) bool { return err == nil || errors.Is(err, ErrNotFound) },
		}, log),
	}
}

func (h *HTTP) RoomType(ctx context.Context, id uint64) (*model.RoomType, error) {
	var rt model.RoomType
	if err := h.get(ctx, "/room-types/"+strconv.FormatUint(id, 10), &rt); err != nil {
		return nil, err
	}
	if rt.ID != id {
		return nil, fmt.Errorf("catalog returned room type %d for id %d", rt.ID, id)
	}
	return &rt, nil
}

func (h *HTTP) RoomTypesAtLocation(ctx context.Context, locationID uint64) ([]model.RoomType, error) {
	var list []model.RoomType
	if err := h.get(ctx, "/locations/"+strconv.FormatUint(locationID, 10)+"/room-types", &list); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	out := list[:0]
	for _, rt := range list {
		if rt.IsActive {
			out = append(out, rt)
		}
	}
	return out, nil
}

func (h *HTTP) get(ctx context.Context, path string, result any) error {
	return h.breaker.Do(func() error {
		resp, err := h.client.R().SetContext(ctx).ForceContentType("application/json").SetResult(result).Get(path)
		if err != nil {
			return fmt.Errorf("catalog GET %s: %w", path, err)
		}
		switch {
		case resp.StatusCode() == http.StatusNotFound:
			return ErrNotFound
		case resp.IsError():
			return fmt.Errorf("catalog GET %s: status %d", path, resp.StatusCode())
		}
		return nil
	})
}
