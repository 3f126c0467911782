package geo

import (
	"context"
	"errors"
	"time"
)

// Location is a position fix captured alongside a clock transition.
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	Accuracy  float64 `json:"accuracy,omitempty"`
}

var ErrInvalidLocation = errors.New("invalid_location")

// Locator produces the current position of the device performing a transition.
type Locator interface {
	Locate(ctx context.Context) (*Location, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (*Location, error)

func (f LocatorFunc) Locate(ctx context.Context) (*Location, error) {
	return f(ctx)
}

// Fixed returns a locator for a position already reported by the client.
func Fixed(lat, lng, accuracy float64) Locator {
	return LocatorFunc(func(ctx context.Context) (*Location, error) {
		loc := &Location{Latitude: lat, Longitude: lng, Accuracy: accuracy}
		if err := loc.Validate(); err != nil {
			return nil, err
		}
		return loc, nil
	})
}

func (l Location) Validate() error {
	if l.Latitude < -90 || l.Latitude > 90 || l.Longitude < -180 || l.Longitude > 180 {
		return ErrInvalidLocation
	}
	return nil
}

// Resolve runs the locator bounded by timeout. Any failure, including the
// timeout, is reported as a nil location together with the cause.
func Resolve(ctx context.Context, locator Locator, timeout time.Duration) (*Location, error) {
	if locator == nil {
		return nil, nil
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		loc *Location
		err error
	}
	done := make(chan result, 1)
	go func() {
		loc, err := locator.Locate(ctx)
		done <- result{loc: loc, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		return res.loc, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
