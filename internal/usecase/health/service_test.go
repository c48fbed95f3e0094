package health

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

// --- Mocks ---

type mockStorePinger struct {
	err error
}

func (m *mockStorePinger) Ping(_ context.Context) error { return m.err }

type mockProviderChecker struct {
	err   error
	delay time.Duration
}

func (m *mockProviderChecker) HealthCheck(ctx context.Context) error {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.err
}

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockStorePinger{}, map[string]ProviderChecker{
		"openai": &mockProviderChecker{},
		"voyage": &mockProviderChecker{},
	}, 0)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	want := []string{"provider:openai", "provider:voyage", StoreCheck}
	if !reflect.DeepEqual(r.Names(), want) {
		t.Errorf("expected checks %v, got %v", want, r.Names())
	}
	for _, n := range want {
		if r.Checks[n] != CheckOK {
			t.Errorf("expected %s %q, got %q", n, CheckOK, r.Checks[n])
		}
	}
}

func TestCheck_StoreError(t *testing.T) {
	svc := New(&mockStorePinger{err: errors.New("conn refused")}, map[string]ProviderChecker{
		"openai": &mockProviderChecker{},
	}, 0)
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks[StoreCheck] != CheckError {
		t.Errorf("expected store %q, got %q", CheckError, r.Checks[StoreCheck])
	}
	if r.Checks["provider:openai"] != CheckOK {
		t.Errorf("expected provider %q, got %q", CheckOK, r.Checks["provider:openai"])
	}
}

func TestCheck_ProviderError(t *testing.T) {
	svc := New(&mockStorePinger{}, map[string]ProviderChecker{
		"openai": &mockProviderChecker{err: errors.New("401")},
		"voyage": &mockProviderChecker{},
	}, 0)
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["provider:openai"] != CheckError {
		t.Error("expected provider error")
	}
}

func TestCheck_StoreErrorWinsOverProvider(t *testing.T) {
	svc := New(&mockStorePinger{err: errors.New("down")}, map[string]ProviderChecker{
		"openai": &mockProviderChecker{err: errors.New("down")},
	}, 0)
	if r := svc.Check(context.Background()); r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
}

func TestCheck_Timeout(t *testing.T) {
	svc := New(&mockStorePinger{}, map[string]ProviderChecker{
		"slow": &mockProviderChecker{delay: time.Second},
	}, 20*time.Millisecond)

	start := time.Now()
	r := svc.Check(context.Background())
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("check did not honor timeout")
	}
	if r.Checks["provider:slow"] != CheckError {
		t.Error("expected slow provider to fail")
	}
}

func TestCheck_NoProviders(t *testing.T) {
	svc := New(&mockStorePinger{}, nil, 0)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if len(r.Checks) != 1 {
		t.Errorf("expected only the store check, got %v", r.Checks)
	}
}
