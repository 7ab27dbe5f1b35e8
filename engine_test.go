package goGate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/InsightGuard/goGate/inference"
)

/*
====================================
TEST FIXTURES
====================================
*/

type fakeDirectory struct {
	mu    sync.RWMutex
	users map[string]UserRecord
	fail  bool
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{users: make(map[string]UserRecord)}
}

func (d *fakeDirectory) put(user UserRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[user.ID] = user
}

func (d *fakeDirectory) remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.users, id)
}

func (d *fakeDirectory) find(match func(UserRecord) bool) (UserRecord, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.fail {
		return UserRecord{}, false, errors.New("directory down")
	}
	for _, user := range d.users {
		if match(user) {
			return user, true, nil
		}
	}
	return UserRecord{}, false, nil
}

func (d *fakeDirectory) FindByUsername(_ context.Context, username string) (UserRecord, bool, error) {
	return d.find(func(u UserRecord) bool { return u.Username == username })
}

func (d *fakeDirectory) FindByEmail(_ context.Context, email string) (UserRecord, bool, error) {
	return d.find(func(u UserRecord) bool { return u.Email == email })
}

func (d *fakeDirectory) FindByID(_ context.Context, id string) (UserRecord, bool, error) {
	return d.find(func(u UserRecord) bool { return u.ID == id })
}

func (d *fakeDirectory) CreateUser(_ context.Context, input CreateUserInput) (UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return UserRecord{}, errors.New("directory down")
	}
	user := UserRecord{
		ID:             "id-" + input.Username,
		Username:       input.Username,
		Email:          input.Email,
		HashedPassword: input.HashedPassword,
		FullName:       input.FullName,
		Company:        input.Company,
		CreatedAt:      time.Now().UTC(),
	}
	d.users[user.ID] = user
	return user, nil
}

func (d *fakeDirectory) UpdateUser(_ context.Context, id string, input UpdateUserInput) (UserRecord, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return UserRecord{}, false, errors.New("directory down")
	}
	user, ok := d.users[id]
	if !ok {
		return UserRecord{}, false, nil
	}
	if input.FullName != nil {
		user.FullName = *input.FullName
	}
	if input.Company != nil {
		user.Company = *input.Company
	}
	if input.HashedPassword != nil {
		user.HashedPassword = *input.HashedPassword
	}
	d.users[id] = user
	return user, true, nil
}

type fakeKeyStore struct {
	mu   sync.RWMutex
	keys map[string]APIKeyRecord
}

func newFakeKeyStore() *fakeKeyStore {
	return &fakeKeyStore{keys: make(map[string]APIKeyRecord)}
}

func (s *fakeKeyStore) GetByKey(_ context.Context, key string) (APIKeyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.keys[key]
	return record, ok, nil
}

func (s *fakeKeyStore) Create(_ context.Context, record APIKeyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[record.Key] = record
	return nil
}

func (s *fakeKeyStore) ListByUser(_ context.Context, userID string) ([]APIKeyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []APIKeyRecord
	for _, record := range s.keys {
		if record.UserID == userID {
			out = append(out, record)
		}
	}
	return out, nil
}

func (s *fakeKeyStore) IncrementUsage(_ context.Context, keyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, record := range s.keys {
		if record.ID == keyID {
			record.Usage++
			s.keys[key] = record
		}
	}
	return nil
}

func (s *fakeKeyStore) usage(key string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys[key].Usage
}

type constModel struct{ score float64 }

func (m constModel) Predict(context.Context, string) (float64, error) { return m.score, nil }
func (m constModel) Close() error                                     { return nil }

type testEnv struct {
	engine    *Engine
	mr        *miniredis.Miniredis
	directory *fakeDirectory
	keys      *fakeKeyStore
}

func testEngineConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessSecret = []byte("test-access-secret-material-32b!!")
	cfg.JWT.RefreshSecret = []byte("test-refresh-secret-material-32b!")

	// Floor-cost hashing keeps the suite fast.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.SaltLength = 16
	cfg.Password.KeyLength = 16
	return cfg
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := testEngineConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	directory := newFakeDirectory()
	keys := newFakeKeyStore()

	registry, err := inference.NewRegistry(nil, func(context.Context, string) (inference.Predictor, error) {
		return constModel{score: 0.42}, nil
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserDirectory(directory).
		WithKeyStore(keys).
		WithInferenceRegistry(registry).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("engine build: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, mr: mr, directory: directory, keys: keys}
}

func (env *testEnv) seedUser(t *testing.T, username, email, plaintext string) UserRecord {
	t.Helper()

	hash, err := env.engine.hasher.Hash(plaintext)
	if err != nil {
		t.Fatalf("seed hash: %v", err)
	}
	user := UserRecord{
		ID:             "id-" + username,
		Username:       username,
		Email:          email,
		HashedPassword: hash,
		CreatedAt:      time.Now().UTC(),
	}
	env.directory.put(user)
	return user
}

func ctxWithAddr(addr string) context.Context {
	return WithClientAddr(context.Background(), addr)
}

/*
====================================
AUTHORIZE
====================================
*/

func TestAuthorizeIssuesVerifiableTokens(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.seedUser(t, "alice", "alice@example.com", "correct-horse")

	tokens, err := env.engine.Authorize(ctxWithAddr("10.0.0.1"), "alice", "correct-horse")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}

	subject, err := env.engine.VerifyAccess(tokens.AccessToken)
	if err != nil || subject != user.ID {
		t.Fatalf("access token subject = %q, %v", subject, err)
	}

	// The refresh token must not validate as an access token.
	if _, err := env.engine.VerifyAccess(tokens.RefreshToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("refresh token accepted as access: %v", err)
	}
}

func TestAuthorizeByEmail(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedUser(t, "alice", "alice@example.com", "correct-horse")

	if _, err := env.engine.Authorize(ctxWithAddr("10.0.0.1"), "alice@example.com", "correct-horse"); err != nil {
		t.Fatalf("authorize by email: %v", err)
	}
}

func TestAuthorizeWrongPassword(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedUser(t, "alice", "alice@example.com", "correct-horse")

	_, err := env.engine.Authorize(ctxWithAddr("10.0.0.1"), "alice", "wrong")
	if !errors.Is(err, ErrIncorrectPassword) {
		t.Fatalf("want ErrIncorrectPassword, got %v", err)
	}
}

func TestAuthorizeUnknownUser(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.engine.Authorize(ctxWithAddr("10.0.0.1"), "nobody", "whatever1")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound, got %v", err)
	}
}

func TestAuthorizeMissingCredential(t *testing.T) {
	env := newTestEnv(t, nil)

	if _, err := env.engine.Authorize(ctxWithAddr("10.0.0.1"), "", "x"); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("empty identifier: %v", err)
	}
	if _, err := env.engine.Authorize(ctxWithAddr("10.0.0.1"), "alice", ""); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("empty password: %v", err)
	}
}

func TestAuthorizeJailsAfterThreshold(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedUser(t, "alice", "alice@example.com", "correct-horse")
	ctx := ctxWithAddr("10.0.0.1")

	for i := 0; i < 4; i++ {
		if _, err := env.engine.Authorize(ctx, "alice", "wrong"); !errors.Is(err, ErrIncorrectPassword) {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}

	// Fifth failure trips the jail.
	_, err := env.engine.Authorize(ctx, "alice", "wrong")
	if !errors.Is(err, ErrJailed) {
		t.Fatalf("fifth failure: want ErrJailed, got %v", err)
	}
	if retry := RetryAfter(err); retry != 300*time.Second {
		t.Fatalf("RetryAfter = %v, want 300s", retry)
	}

	// The correct password no longer helps while jailed.
	if _, err := env.engine.Authorize(ctx, "alice", "correct-horse"); !errors.Is(err, ErrJailed) {
		t.Fatalf("jailed correct login: %v", err)
	}

	// Other addresses are unaffected.
	if _, err := env.engine.Authorize(ctxWithAddr("10.0.0.2"), "alice", "correct-horse"); err != nil {
		t.Fatalf("unjailed address: %v", err)
	}
}

func TestAuthorizeJailExpires(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedUser(t, "alice", "alice@example.com", "correct-horse")
	ctx := ctxWithAddr("10.0.0.1")

	for i := 0; i < 5; i++ {
		env.engine.Authorize(ctx, "alice", "wrong")
	}
	if _, err := env.engine.Authorize(ctx, "alice", "correct-horse"); !errors.Is(err, ErrJailed) {
		t.Fatalf("want jailed, got %v", err)
	}

	env.mr.FastForward(301 * time.Second)

	if _, err := env.engine.Authorize(ctx, "alice", "correct-horse"); err != nil {
		t.Fatalf("after jail expiry: %v", err)
	}
}

func TestAuthorizeSuccessResetsCounter(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedUser(t, "alice", "alice@example.com", "correct-horse")
	ctx := ctxWithAddr("10.0.0.1")

	for i := 0; i < 4; i++ {
		env.engine.Authorize(ctx, "alice", "wrong")
	}
	if _, err := env.engine.Authorize(ctx, "alice", "correct-horse"); err != nil {
		t.Fatalf("login at 4 failures: %v", err)
	}

	// The streak restarted; four more failures still do not jail.
	for i := 0; i < 4; i++ {
		if _, err := env.engine.Authorize(ctx, "alice", "wrong"); !errors.Is(err, ErrIncorrectPassword) {
			t.Fatalf("post-reset attempt %d: %v", i+1, err)
		}
	}
}

func TestAuthorizeUnknownUserDoesNotAdvanceJail(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedUser(t, "alice", "alice@example.com", "correct-horse")
	ctx := ctxWithAddr("10.0.0.1")

	for i := 0; i < 10; i++ {
		env.engine.Authorize(ctx, "nobody", "whatever1")
	}

	// The address is clean; real failures still get the full allowance.
	for i := 0; i < 4; i++ {
		if _, err := env.engine.Authorize(ctx, "alice", "wrong"); !errors.Is(err, ErrIncorrectPassword) {
			t.Fatalf("attempt %d after probing: %v", i+1, err)
		}
	}
}

func TestAuthorizeDirectoryFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.directory.fail = true

	_, err := env.engine.Authorize(ctxWithAddr("10.0.0.1"), "alice", "whatever1")
	if !errors.Is(err, ErrDirectoryUnavailable) {
		t.Fatalf("want ErrDirectoryUnavailable, got %v", err)
	}
}

/*
====================================
REFRESH + VERIFY + FETCH
====================================
*/

func TestRefreshKeepsRefreshToken(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.seedUser(t, "alice", "alice@example.com", "correct-horse")

	tokens, err := env.engine.Authorize(ctxWithAddr("10.0.0.1"), "alice", "correct-horse")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}

	refreshed, err := env.engine.Refresh(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken != tokens.RefreshToken {
		t.Fatal("refresh token rotated, must be returned unchanged")
	}
	if subject, err := env.engine.VerifyAccess(refreshed.AccessToken); err != nil || subject != user.ID {
		t.Fatalf("refreshed access subject = %q, %v", subject, err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedUser(t, "alice", "alice@example.com", "correct-horse")

	tokens, _ := env.engine.Authorize(ctxWithAddr("10.0.0.1"), "alice", "correct-horse")

	if _, err := env.engine.Refresh(context.Background(), tokens.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("access token accepted for refresh: %v", err)
	}
}

func TestRefreshRejectsDeletedUser(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.seedUser(t, "alice", "alice@example.com", "correct-horse")

	tokens, _ := env.engine.Authorize(ctxWithAddr("10.0.0.1"), "alice", "correct-horse")
	env.directory.remove(user.ID)

	if _, err := env.engine.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("deleted user refresh: %v", err)
	}
}

func TestFetchUserClassification(t *testing.T) {
	env := newTestEnv(t, nil)
	user := UserRecord{
		ID:             "7e576b5f-8f2c-4d20-9714-42c6bd6c0f11",
		Username:       "alice",
		Email:          "alice@example.com",
		HashedPassword: "irrelevant",
	}
	env.directory.put(user)

	for _, identifier := range []string{"alice", "alice@example.com", user.ID} {
		got, err := env.engine.FetchUser(context.Background(), identifier)
		if err != nil {
			t.Fatalf("fetch %q: %v", identifier, err)
		}
		if got.ID != user.ID {
			t.Fatalf("fetch %q resolved %q", identifier, got.ID)
		}
	}

	if _, err := env.engine.FetchUser(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("missing identifier: %v", err)
	}
}

func TestMetricsTrackLoginOutcomes(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedUser(t, "alice", "alice@example.com", "correct-horse")
	ctx := ctxWithAddr("10.0.0.1")

	env.engine.Authorize(ctx, "alice", "wrong")
	env.engine.Authorize(ctx, "alice", "correct-horse")

	snapshot := env.engine.MetricsSnapshot()
	if snapshot.Counters[MetricLoginFailure] != 1 {
		t.Fatalf("login failures = %d, want 1", snapshot.Counters[MetricLoginFailure])
	}
	if snapshot.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("login successes = %d, want 1", snapshot.Counters[MetricLoginSuccess])
	}
	if snapshot.Counters[MetricTokensIssued] != 1 {
		t.Fatalf("tokens issued = %d, want 1", snapshot.Counters[MetricTokensIssued])
	}
}

func TestAuthorizeWithoutClientAddrBypassesJail(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedUser(t, "alice", "alice@example.com", "correct-horse")
	env.seedUser(t, "bob", "bob@example.com", "correct-horse")

	// No WithClientAddr: failures are unattributable and must not share a
	// jail bucket.
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := env.engine.Authorize(ctx, "alice", "wrong"); !errors.Is(err, ErrIncorrectPassword) {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}

	if _, err := env.engine.Authorize(ctx, "bob", "correct-horse"); err != nil {
		t.Fatalf("unrelated login after address-less failures: %v", err)
	}
	if _, err := env.engine.Authorize(ctx, "alice", "correct-horse"); err != nil {
		t.Fatalf("same-user login after address-less failures: %v", err)
	}

	if env.mr.Exists("login_attempts:") || env.mr.Exists("jailed_users:") {
		t.Fatal("empty-address jail keys must not be written")
	}
}
