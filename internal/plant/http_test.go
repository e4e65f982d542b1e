package plant

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/config"
)

const snapshotJSON = `[
	{"id":"p1","idealMoisture":40,"currentMoisture":22,"moistureState":"thirsty",
	 "pot":{"id":"pot-1","pump":{"id":"pump-a","channel":"7","model":"AquaJet"}}},
	{"id":"p2","moistureState":"MOIST","pot":{"id":"pot-1","pump":{"id":"pump-a","channel":"7"}}}
]`

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Error(string, ...any) {}
func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func providerConfig(url string) config.StateProviderConfig {
	return config.StateProviderConfig{
		Type:    config.ProviderHTTP,
		URL:     url,
		Timeout: time.Second,
		Breaker: config.CircuitBreakerConfig{
			MaxFailures: 2,
			OpenTimeout: time.Minute,
		},
	}
}

func TestHTTPProvider_ListPlants(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/plants" || r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(snapshotJSON))
	}))
	defer srv.Close()

	provider := NewHTTPProvider(providerConfig(srv.URL+"/"), nil)
	plants, err := provider.ListPlants(context.Background())
	if err != nil {
		t.Fatalf("ListPlants() error = %v", err)
	}
	if len(plants) != 2 {
		t.Fatalf("ListPlants() returned %d plants, want 2", len(plants))
	}
	if plants[0].MoistureState != StateThirsty {
		t.Errorf("state = %q, want normalised THIRSTY", plants[0].MoistureState)
	}
	if plants[0].PotID() != "pot-1" || plants[0].Pot.Pump.Channel != "7" {
		t.Errorf("pot/pump not decoded: %+v", plants[0].Pot)
	}
}

func TestHTTPProvider_UnrecognisedStateIsUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id":"p1","moistureState":"SOGGY","pot":{"id":"pot-1"}},
			{"id":"p2","moistureState":"","pot":{"id":"pot-1"}},
			{"id":"p3","moistureState":" overwatered ","pot":{"id":"pot-1"}}
		]`))
	}))
	defer srv.Close()

	logger := &recordingLogger{}
	plants, err := NewHTTPProvider(providerConfig(srv.URL), logger).ListPlants(context.Background())
	if err != nil {
		t.Fatalf("ListPlants() error = %v", err)
	}

	want := []MoistureState{StateUnknown, StateUnknown, StateOverwatered}
	for i, p := range plants {
		if p.MoistureState != want[i] {
			t.Errorf("%s state = %q, want %q", p.ID, p.MoistureState, want[i])
		}
	}
	if len(logger.warns) != 2 {
		t.Errorf("warnings = %v, want one per unrecognised state", logger.warns)
	}
}

func TestHTTPProvider_ErrorsWrapUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"malformed body", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"not":"a list"`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewHTTPProvider(providerConfig(srv.URL), nil).ListPlants(context.Background())
			if !errors.Is(err, ErrProviderUnavailable) {
				t.Errorf("ListPlants() error = %v, want ErrProviderUnavailable", err)
			}
		})
	}
}

func TestHTTPProvider_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	logger := &recordingLogger{}
	provider := NewHTTPProvider(providerConfig(srv.URL), logger)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := provider.ListPlants(ctx); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}
	if provider.State() != "open" {
		t.Fatalf("breaker state = %s, want open", provider.State())
	}

	_, err := provider.ListPlants(ctx)
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("ListPlants() with open breaker = %v, want ErrProviderUnavailable", err)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("server hits = %d, want 2 (open breaker must not call upstream)", got)
	}
	if len(logger.warns) == 0 {
		t.Error("breaker state change not logged")
	}
}

func TestHTTPProvider_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := providerConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond

	start := time.Now()
	_, err := NewHTTPProvider(cfg, nil).ListPlants(context.Background())
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("ListPlants() error = %v, want ErrProviderUnavailable", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("request not bounded by timeout")
	}
}
