package goGate

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedKey(env *testEnv, userID, key string, disabled bool) APIKeyRecord {
	record := APIKeyRecord{
		ID:        "key-" + key,
		UserID:    userID,
		Key:       key,
		Disabled:  disabled,
		CreatedAt: time.Now().UTC(),
	}
	env.keys.keys[key] = record
	return record
}

func TestCreateKeyFormat(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.seedUser(t, "alice", "alice@example.com", "correct-horse")

	record, err := env.engine.CreateKey(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("create key: %v", err)
	}
	if len(record.Key) != 32 {
		t.Fatalf("key length = %d, want 32", len(record.Key))
	}
	for _, r := range record.Key {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			t.Fatalf("key %q contains non-hex rune %q", record.Key, r)
		}
	}
	if record.UserID != user.ID {
		t.Fatalf("key owner = %q, want %q", record.UserID, user.ID)
	}

	// The stored record is immediately verifiable.
	verified, err := env.engine.VerifyKey(context.Background(), record.Key)
	if err != nil || verified.ID != record.ID {
		t.Fatalf("verify created key: %+v, %v", verified, err)
	}
}

func TestCreateKeyUnknownUser(t *testing.T) {
	env := newTestEnv(t, nil)

	if _, err := env.engine.CreateKey(context.Background(), "missing-user"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound, got %v", err)
	}
}

func TestUserKeysListsOwnKeysOnly(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.seedUser(t, "alice", "alice@example.com", "correct-horse")
	bob := env.seedUser(t, "bob", "bob@example.com", "correct-horse")

	if _, err := env.engine.CreateKey(context.Background(), alice.ID); err != nil {
		t.Fatalf("alice key: %v", err)
	}
	if _, err := env.engine.CreateKey(context.Background(), alice.ID); err != nil {
		t.Fatalf("alice key: %v", err)
	}
	if _, err := env.engine.CreateKey(context.Background(), bob.ID); err != nil {
		t.Fatalf("bob key: %v", err)
	}

	records, err := env.engine.UserKeys(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("alice keys = %d, want 2", len(records))
	}
	for _, record := range records {
		if record.UserID != alice.ID {
			t.Fatalf("foreign key in listing: %+v", record)
		}
	}
}

func TestVerifyKeyRejections(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.seedUser(t, "alice", "alice@example.com", "correct-horse")
	seedKey(env, user.ID, "deadbeefdeadbeefdeadbeefdeadbeef", true)

	if _, err := env.engine.VerifyKey(context.Background(), ""); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("empty key: %v", err)
	}
	if _, err := env.engine.VerifyKey(context.Background(), "nosuchkey"); !errors.Is(err, ErrKeyInvalid) {
		t.Fatalf("unknown key: %v", err)
	}
	if _, err := env.engine.VerifyKey(context.Background(), "deadbeefdeadbeefdeadbeefdeadbeef"); !errors.Is(err, ErrKeyDisabled) {
		t.Fatalf("disabled key: %v", err)
	}
}

func TestVerifyKeyRateLimit(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) {
		cfg.RateLimit.Limit = 2
		cfg.RateLimit.Window = 60 * time.Second
	})
	user := env.seedUser(t, "alice", "alice@example.com", "correct-horse")
	record := seedKey(env, user.ID, "cafebabecafebabecafebabecafebabe", false)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := env.engine.VerifyKey(ctx, record.Key); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}

	_, err := env.engine.VerifyKey(ctx, record.Key)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("want ErrRateLimited, got %v", err)
	}
	if retry := RetryAfter(err); retry <= 0 || retry > 60*time.Second {
		t.Fatalf("RetryAfter = %v, want within the window", retry)
	}

	// A fresh window restores the allowance.
	env.mr.FastForward(61 * time.Second)
	if _, err := env.engine.VerifyKey(ctx, record.Key); err != nil {
		t.Fatalf("after window reset: %v", err)
	}
}

func TestVerifyKeyLimitsAreKeyScoped(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) {
		cfg.RateLimit.Limit = 1
		cfg.RateLimit.Window = 60 * time.Second
	})
	user := env.seedUser(t, "alice", "alice@example.com", "correct-horse")
	first := seedKey(env, user.ID, "11111111111111111111111111111111", false)
	second := seedKey(env, user.ID, "22222222222222222222222222222222", false)

	ctx := context.Background()
	if _, err := env.engine.VerifyKey(ctx, first.Key); err != nil {
		t.Fatalf("first key: %v", err)
	}
	if _, err := env.engine.VerifyKey(ctx, first.Key); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("first key second hit: %v", err)
	}
	if _, err := env.engine.VerifyKey(ctx, second.Key); err != nil {
		t.Fatalf("second key blocked by first key's quota: %v", err)
	}
}

func TestPredictIncrementsUsage(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.seedUser(t, "alice", "alice@example.com", "correct-horse")
	record := seedKey(env, user.ID, "cafebabecafebabecafebabecafebabe", false)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := env.engine.Predict(ctx, record.Key, "some text", "en"); err != nil {
			t.Fatalf("predict %d: %v", i+1, err)
		}
	}
	if got := env.keys.usage(record.Key); got != 3 {
		t.Fatalf("usage = %d, want 3", got)
	}
}

func TestRejectedRequestDoesNotCountUsage(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.seedUser(t, "alice", "alice@example.com", "correct-horse")
	record := seedKey(env, user.ID, "cafebabecafebabecafebabecafebabe", false)

	if _, err := env.engine.Predict(context.Background(), record.Key, "text", "xx"); !errors.Is(err, ErrLanguageUnsupported) {
		t.Fatalf("unsupported language: %v", err)
	}
	if got := env.keys.usage(record.Key); got != 0 {
		t.Fatalf("usage after rejection = %d, want 0", got)
	}
}
