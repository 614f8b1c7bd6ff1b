package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	domain "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/cache"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/httpx"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/shipping"
)

const (
	defaultShippingDebounceWindow = 500 * time.Millisecond
	defaultShippingFetchTimeout   = 15 * time.Second
	serviceabilityWarning         = "Serviceability could not be confirmed; delivery may take longer than estimated."
)

var (
	// ErrInvalidPincode indicates the destination is not a 6-digit pincode.
	ErrInvalidPincode = errors.New("shipping: invalid pincode")
	// ErrNotServiceable indicates the aggregator does not deliver to the pincode.
	ErrNotServiceable = errors.New("shipping: pincode not serviceable")
	// ErrNoShippingAvailable indicates the rate quote returned no courier options.
	ErrNoShippingAvailable = errors.New("shipping: no shipping options available")
	// ErrShippingUnavailable indicates the rate quote could not be obtained.
	ErrShippingUnavailable = errors.New("shipping: rates unavailable")
	// ErrCourierNotOffered indicates the selected courier is not among the quoted options.
	ErrCourierNotOffered = errors.New("shipping: courier not offered")
)

var pincodePattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)

// ShippingCollaborator is the shipping aggregator as seen by the resolver.
type ShippingCollaborator interface {
	CheckServiceability(ctx context.Context, pincode string) (bool, error)
	GetRates(ctx context.Context, req shipping.RateRequest) ([]domain.ShippingRateOption, error)
}

// ShippingResolverDeps wires the shipping resolver.
type ShippingResolverDeps struct {
	Shipping ShippingCollaborator
	// Cache holds settled quotes for DebounceWindow; nil disables caching.
	Cache          cache.Store
	DebounceWindow time.Duration
	// FetchTimeout bounds one shared upstream lookup independently of any single caller.
	FetchTimeout time.Duration
	Logger       Logger
}

type shippingResolver struct {
	shipping ShippingCollaborator
	cache    cache.Store
	window   time.Duration
	timeout  time.Duration
	group    singleflight.Group
	logger   Logger
}

// NewShippingResolver constructs a ShippingResolver.
func NewShippingResolver(deps ShippingResolverDeps) (ShippingResolver, error) {
	if deps.Shipping == nil {
		return nil, errors.New("shipping resolver: shipping collaborator is required")
	}
	window := deps.DebounceWindow
	if window <= 0 {
		window = defaultShippingDebounceWindow
	}
	timeout := deps.FetchTimeout
	if timeout <= 0 {
		timeout = defaultShippingFetchTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = nopLogger
	}
	return &shippingResolver{
		shipping: deps.Shipping,
		cache:    deps.Cache,
		window:   window,
		timeout:  timeout,
		logger:   logger,
	}, nil
}

// ValidatePincode reports whether pincode is a 6-digit destination code.
func ValidatePincode(pincode string) error {
	if !pincodePattern.MatchString(pincode) {
		return fmt.Errorf("%w: %q", ErrInvalidPincode, pincode)
	}
	return nil
}

// Resolve quotes couriers for pincode. Identical lookups inside the debounce window share one upstream round trip.
func (r *shippingResolver) Resolve(ctx context.Context, pincode string) (ShippingQuote, error) {
	pincode = strings.TrimSpace(pincode)
	if err := ValidatePincode(pincode); err != nil {
		return ShippingQuote{}, err
	}

	key := "shipping:quote:" + pincode
	if r.cache != nil {
		var cached ShippingQuote
		found, err := r.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			r.logger(ctx, "shipping.cache_read_failed", map[string]any{"pincode": pincode, "error": err.Error()})
		} else if found {
			return cached, nil
		}
	}

	// The lookup is shared by every collapsed caller, so it must outlive the caller that started it.
	shared := r.group.DoChan(pincode, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.fetch(fetchCtx, pincode)
	})
	var result singleflight.Result
	select {
	case <-ctx.Done():
		return ShippingQuote{}, fmt.Errorf("%w: %v", ErrShippingUnavailable, ctx.Err())
	case result = <-shared:
	}
	if result.Err != nil {
		return ShippingQuote{}, result.Err
	}
	quote := result.Val.(ShippingQuote)
	quote.Options = append([]ShippingRateOption(nil), quote.Options...)

	if r.cache != nil {
		if err := r.cache.SetJSON(ctx, key, quote, r.window); err != nil {
			r.logger(ctx, "shipping.cache_write_failed", map[string]any{"pincode": pincode, "error": err.Error()})
		}
	}
	return quote, nil
}

func (r *shippingResolver) fetch(ctx context.Context, pincode string) (ShippingQuote, error) {
	var (
		serviceable    bool
		serviceableErr error
		options        []ShippingRateOption
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		// Serviceability errors are classified below rather than cancelling the rate call.
		serviceable, serviceableErr = r.shipping.CheckServiceability(groupCtx, pincode)
		return nil
	})
	group.Go(func() error {
		var err error
		options, err = r.shipping.GetRates(groupCtx, shipping.RateRequest{DestinationPincode: pincode})
		return err
	})
	ratesErr := group.Wait()

	quote := ShippingQuote{Pincode: pincode, Serviceable: true}
	switch {
	case serviceableErr == nil && !serviceable:
		return ShippingQuote{}, fmt.Errorf("%w: %s", ErrNotServiceable, pincode)
	case serviceableErr != nil && httpx.IsTransient(serviceableErr):
		r.logger(ctx, "shipping.serviceability_failed_open", map[string]any{"pincode": pincode, "error": serviceableErr.Error()})
		quote.Warning = serviceabilityWarning
	case serviceableErr != nil:
		return ShippingQuote{}, fmt.Errorf("%w: %v", ErrShippingUnavailable, serviceableErr)
	}

	if ratesErr != nil {
		r.logger(ctx, "shipping.rates_failed", map[string]any{"pincode": pincode, "error": ratesErr.Error()})
		return ShippingQuote{}, fmt.Errorf("%w: %v", ErrShippingUnavailable, ratesErr)
	}
	if len(options) == 0 {
		return ShippingQuote{}, fmt.Errorf("%w: %s", ErrNoShippingAvailable, pincode)
	}
	quote.Options = options
	quote.Selected = options[0]
	return quote, nil
}

// Select returns the option for courierName, or the default selection when courierName is blank.
func (r *shippingResolver) Select(quote ShippingQuote, courierName string) (ShippingRateOption, error) {
	if len(quote.Options) == 0 {
		return ShippingRateOption{}, ErrNoShippingAvailable
	}
	courierName = strings.TrimSpace(courierName)
	if courierName == "" {
		if quote.Selected.CourierName != "" {
			return quote.Selected, nil
		}
		return quote.Options[0], nil
	}
	for _, option := range quote.Options {
		if strings.EqualFold(option.CourierName, courierName) {
			return option, nil
		}
	}
	return ShippingRateOption{}, fmt.Errorf("%w: %q", ErrCourierNotOffered, courierName)
}
