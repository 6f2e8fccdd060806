package places

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/beanscene/api/internal/public/application"
	"github.com/beanscene/api/internal/public/domain"
)

// DefaultRadiusTiers are tried in order while the previous radius found nothing.
var DefaultRadiusTiers = []int{1500, 3000}

// Provider is one place-search backend normalised to domain.PlaceRecord.
type Provider interface {
	Name() string
	SearchNear(ctx context.Context, center domain.Coordinate, radiusMeters int, query string) ([]domain.PlaceRecord, error)
}

// Adapter implements application.PlaceSource on top of a Provider.
type Adapter struct {
	provider Provider
	tiers    []int
	retry    application.RetryPolicy
	logger   *zap.Logger
}

// AdapterConfig tunes an Adapter. Zero values take defaults.
type AdapterConfig struct {
	RadiusTiers []int
	Retry       application.RetryPolicy
	Logger      *zap.Logger
}

// NewAdapter wraps provider.
func NewAdapter(provider Provider, cfg AdapterConfig) *Adapter {
	tiers := cfg.RadiusTiers
	if len(tiers) == 0 {
		tiers = DefaultRadiusTiers
	}
	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = application.DefaultRetryPolicy
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{provider: provider, tiers: append([]int(nil), tiers...), retry: retry, logger: logger}
}

// Search never returns an error past its boundary; failures come back in
// PlaceResult.Err with an empty list.
func (a *Adapter) Search(ctx context.Context, center domain.Coordinate, query string) application.PlaceResult {
	for _, radius := range a.tiers {
		var records []domain.PlaceRecord
		err := a.retry.Do(ctx, func(ctx context.Context) error {
			var err error
			records, err = a.provider.SearchNear(ctx, center, radius, query)
			return classify(a.provider.Name(), err)
		})
		if err != nil {
			a.logger.Warn("place search failed",
				zap.String("provider", a.provider.Name()),
				zap.Int("radius", radius),
				zap.Error(err))
			return application.PlaceResult{Places: []domain.PlaceRecord{}, Err: err, Retryable: application.IsRetryable(err)}
		}
		if len(records) > 0 {
			a.logger.Debug("place search",
				zap.String("provider", a.provider.Name()),
				zap.Int("radius", radius),
				zap.Int("results", len(records)))
			return application.PlaceResult{Places: records}
		}
	}
	return application.PlaceResult{Places: []domain.PlaceRecord{}}
}

// StatusError is a non-success HTTP answer from a provider.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("status %d (%s)", e.Code, e.Status)
	}
	return fmt.Sprintf("status %d", e.Code)
}

// errQuota marks provider-level throttling reported inside a 200 body.
var errQuota = errors.New("provider quota exceeded")

// classify marks transient failures as retryable upstream errors.
func classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	var upstream *application.UpstreamError
	if errors.As(err, &upstream) {
		return err
	}
	return &application.UpstreamError{Source: provider, Retryable: transient(err), Err: err}
}

func transient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, errQuota) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Code == http.StatusTooManyRequests || status.Code >= 500
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
