package otp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gatherly/gatherly/internal/logging"
)

type fakeSender struct {
	mu   sync.Mutex
	sent int
	fail bool
}

func (s *fakeSender) Send(_ context.Context, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("provider unreachable")
	}
	s.sent++
	return nil
}

func newTestIssuer(t *testing.T, cfg Config) (*Issuer, Store, *fakeSender) {
	t.Helper()
	store := NewMemoryStore()
	sender := &fakeSender{}
	return NewIssuer(store, sender, cfg, logging.Discard()), store, sender
}

func activeCode(t *testing.T, store Store, identityID string) Code {
	t.Helper()
	code, err := store.Get(context.Background(), identityID)
	if err != nil {
		t.Fatalf("read active code: %v", err)
	}
	return code
}

func wrongCodeFor(code Code) string {
	if code.Value == "000000" {
		return "111111"
	}
	return "000000"
}

func TestIssueReplacesActiveCode(t *testing.T) {
	issuer, store, sender := newTestIssuer(t, Config{})
	ctx := context.Background()

	if err := issuer.Issue(ctx, "id-1", "+15551234567"); err != nil {
		t.Fatalf("first issue: %v", err)
	}
	first := activeCode(t, store, "id-1")

	if err := issuer.Issue(ctx, "id-1", "+15551234567"); err != nil {
		t.Fatalf("second issue: %v", err)
	}
	second := activeCode(t, store, "id-1")

	if sender.sent != 2 {
		t.Fatalf("expected 2 dispatches, got %d", sender.sent)
	}
	if first.Value == second.Value {
		t.Skip("codes collided, cannot distinguish replacement")
	}
	if err := issuer.Validate(ctx, "id-1", first.Value); err == nil {
		t.Fatal("first code should be dead after reissue")
	}
}

func TestValidateConsumesExactlyOnce(t *testing.T) {
	issuer, store, _ := newTestIssuer(t, Config{})
	ctx := context.Background()

	if err := issuer.Issue(ctx, "id-1", "+15551234567"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	code := activeCode(t, store, "id-1")

	if err := issuer.Validate(ctx, "id-1", code.Value); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := issuer.Validate(ctx, "id-1", code.Value); !errors.Is(err, ErrNoActiveCode) {
		t.Fatalf("expected ErrNoActiveCode on replay, got %v", err)
	}
}

func TestValidateExpiredCode(t *testing.T) {
	issuer, store, _ := newTestIssuer(t, Config{TTL: 10 * time.Minute})
	ctx := context.Background()

	now := time.Now().UTC()
	issuer.WithClock(func() time.Time { return now })

	if err := issuer.Issue(ctx, "id-1", "+15551234567"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	code := activeCode(t, store, "id-1")

	issuer.WithClock(func() time.Time { return now.Add(11 * time.Minute) })
	if err := issuer.Validate(ctx, "id-1", code.Value); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("expected ErrCodeExpired, got %v", err)
	}
}

func TestAttemptBudgetKillsCode(t *testing.T) {
	issuer, store, _ := newTestIssuer(t, Config{MaxAttempts: 3})
	ctx := context.Background()

	if err := issuer.Issue(ctx, "id-1", "+15551234567"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	code := activeCode(t, store, "id-1")
	wrong := wrongCodeFor(code)

	if err := issuer.Validate(ctx, "id-1", wrong); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("attempt 1: expected ErrCodeInvalid, got %v", err)
	}
	if err := issuer.Validate(ctx, "id-1", wrong); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("attempt 2: expected ErrCodeInvalid, got %v", err)
	}
	if err := issuer.Validate(ctx, "id-1", wrong); !errors.Is(err, ErrAttemptsExceeded) {
		t.Fatalf("attempt 3: expected ErrAttemptsExceeded, got %v", err)
	}

	// The correct code is rejected too once the budget is spent.
	if err := issuer.Validate(ctx, "id-1", code.Value); !errors.Is(err, ErrAttemptsExceeded) {
		t.Fatalf("expected ErrAttemptsExceeded for correct code, got %v", err)
	}
}

func TestDeliveryFailureKeepsCode(t *testing.T) {
	store := NewMemoryStore()
	sender := &fakeSender{fail: true}
	issuer := NewIssuer(store, sender, Config{}, logging.Discard())
	ctx := context.Background()

	err := issuer.Issue(ctx, "id-1", "+15551234567")
	if !errors.Is(err, ErrDeliveryFailure) {
		t.Fatalf("expected ErrDeliveryFailure, got %v", err)
	}

	// The code survived the failed dispatch and still validates.
	code := activeCode(t, store, "id-1")
	if err := issuer.Validate(ctx, "id-1", code.Value); err != nil {
		t.Fatalf("validate after delivery failure: %v", err)
	}
}

func TestConcurrentIssueLeavesOneActiveCode(t *testing.T) {
	issuer, store, _ := newTestIssuer(t, Config{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for n := 0; n < 2; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := issuer.Issue(ctx, "id-1", "+15551234567"); err != nil {
				t.Errorf("issue: %v", err)
			}
		}()
	}
	wg.Wait()

	code := activeCode(t, store, "id-1")
	if err := issuer.Validate(ctx, "id-1", code.Value); err != nil {
		t.Fatalf("stored code should validate: %v", err)
	}
	if err := issuer.Validate(ctx, "id-1", code.Value); !errors.Is(err, ErrNoActiveCode) {
		t.Fatalf("expected single consumable code, got %v", err)
	}
}
