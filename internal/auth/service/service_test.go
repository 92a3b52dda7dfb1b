package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/revocation"
	"github.com/aussiebroadwan/authcore/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/authcore/pkg/cryptox"
	"github.com/aussiebroadwan/authcore/pkg/jwtx"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret-0123456789-abcdefghijklmnop")

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type harness struct {
	store    *sqlite.Store
	clock    *testClock
	codec    *jwtx.HS256Codec
	issuer   *TokenIssuer
	denylist *revocation.Memory
	auth     *AuthService
	gate     *Gate
	users    *UserService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithDSN(t, sqlite.MemoryDSN)
}

func newHarnessWithDSN(t *testing.T, dsn string) *harness {
	t.Helper()

	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	clock := newTestClock()
	codec, err := jwtx.NewHS256(testSecret, jwtx.WithClock(clock.Now))
	require.NoError(t, err)

	issuer := &TokenIssuer{
		Signer: codec,
		Policy: DefaultPolicy("app", "app-users"),
		Now:    clock.Now,
	}
	denylist := revocation.NewMemoryWithClock(clock.Now)

	return &harness{
		store:    st,
		clock:    clock,
		codec:    codec,
		issuer:   issuer,
		denylist: denylist,
		auth: &AuthService{
			Store:    st,
			Issuer:   issuer,
			Verifier: codec,
			Hasher:   cryptox.NewPasswordHasher("test-pepper"),
			Denylist: denylist,
			Now:      clock.Now,
		},
		gate: &Gate{
			Verifier: codec,
			Policy:   issuer.Policy,
			Store:    st,
			Denylist: denylist,
		},
		users: &UserService{Store: st},
	}
}

const testPassword = "correct horse battery"

func (h *harness) register(t *testing.T, email string) uuid.UUID {
	t.Helper()
	id, err := h.auth.Register(context.Background(), "alice", email, testPassword)
	require.NoError(t, err)
	return id
}

func discardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }
