package plant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/config"
)

const (
	defaultHTTPTimeout = 5 * time.Second

	// maxSnapshotBytes bounds the response body read from the reasoning engine.
	maxSnapshotBytes = 8 << 20
)

// HTTPProvider fetches the snapshot from the external reasoning engine
// with GET <url>/plants.
//
// Requests go through a circuit breaker: after MaxFailures consecutive
// failures the breaker opens for OpenTimeout and ListPlants fails fast
// with ErrProviderUnavailable.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  Logger
}

// NewHTTPProvider creates a provider from the state_provider config section.
// A nil logger disables logging.
func NewHTTPProvider(cfg config.StateProviderConfig, logger Logger) *HTTPProvider {
	if logger == nil {
		logger = noopLogger{}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	maxFailures := cfg.Breaker.MaxFailures
	if maxFailures <= 0 {
		maxFailures = 1
	}

	p := &HTTPProvider{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}

	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "state-provider",
		MaxRequests: 1,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(maxFailures) // #nosec G115 -- positive, small
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return p
}

// State returns the current breaker state ("closed", "half-open", "open").
func (p *HTTPProvider) State() string {
	return p.breaker.State().String()
}

// ListPlants fetches the current snapshot.
func (p *HTTPProvider) ListPlants(ctx context.Context) ([]Plant, error) {
	out, err := p.breaker.Execute(func() (interface{}, error) {
		return p.fetch(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit %s: %w", ErrProviderUnavailable, p.State(), err)
		}
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	plants, _ := out.([]Plant) //nolint:errcheck // fetch only returns []Plant
	return plants, nil
}

func (p *HTTPProvider) fetch(ctx context.Context) ([]Plant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/plants", nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxSnapshotBytes)) //nolint:errcheck // draining for reuse
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var plants []Plant
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxSnapshotBytes)).Decode(&plants); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}

	for i := range plants {
		state, err := ParseMoistureState(string(plants[i].MoistureState))
		if err != nil {
			p.logger.Warn("unrecognised moisture state, treating as UNKNOWN",
				"plant_id", plants[i].ID,
				"state", string(plants[i].MoistureState),
			)
			state = StateUnknown
		}
		plants[i].MoistureState = state
	}
	return plants, nil
}
