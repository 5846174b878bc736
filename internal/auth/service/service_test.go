package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	activityrepo "github.com/framecraft/studio/internal/activity/repository"
	activityservice "github.com/framecraft/studio/internal/activity/service"
	"github.com/framecraft/studio/internal/auth/domain"
	"github.com/framecraft/studio/internal/auth/password"
	authrepo "github.com/framecraft/studio/internal/auth/repository"
	"github.com/framecraft/studio/internal/clock"
	"github.com/framecraft/studio/internal/config"
	"github.com/framecraft/studio/internal/migration"
	"github.com/framecraft/studio/internal/securityevent/anomaly"
	eventdomain "github.com/framecraft/studio/internal/securityevent/domain"
	eventrepo "github.com/framecraft/studio/internal/securityevent/repository"
	eventservice "github.com/framecraft/studio/internal/securityevent/service"
	"github.com/framecraft/studio/internal/turnstile"
	"github.com/framecraft/studio/pkg/db"
)

// captureRecorder forwards to the real event service and keeps a copy of
// every entry so tests can assert what was recorded.
type captureRecorder struct {
	mu      sync.Mutex
	inner   eventdomain.Recorder
	entries []eventdomain.Entry
}

func (c *captureRecorder) Record(ctx context.Context, entry eventdomain.Entry) error {
	c.mu.Lock()
	c.entries = append(c.entries, entry)
	c.mu.Unlock()
	return c.inner.Record(ctx, entry)
}

func (c *captureRecorder) byType(eventType eventdomain.EventType) []eventdomain.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []eventdomain.Entry
	for _, entry := range c.entries {
		if entry.EventType == eventType {
			out = append(out, entry)
		}
	}
	return out
}

func (c *captureRecorder) reset() {
	c.mu.Lock()
	c.entries = nil
	c.mu.Unlock()
}

type fakeVerifier struct {
	result turnstile.Result
}

func (f *fakeVerifier) Verify(ctx context.Context, token, remoteIP string) turnstile.Result {
	_ = ctx
	_ = token
	_ = remoteIP
	return f.result
}

type harness struct {
	svc         *Service
	db          *gorm.DB
	clock       *clock.FakeClock
	events      *captureRecorder
	verifier    *fakeVerifier
	node        *snowflake.Node
	repo        domain.Repository
	sessionRepo domain.SessionRepository
}

var testMeta = domain.RequestMeta{IPAddress: "203.0.113.10", UserAgent: "go-test"}

func newHarness(t *testing.T) *harness {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(conn))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fc := clock.NewFakeClock(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	activitySvc := activityservice.NewService(activityservice.Params{
		Log:   log,
		GenID: node,
		Clock: fc,
		Repo:  activityrepo.Provide(conn),
	})
	evRepo := eventrepo.Provide(conn)
	eventSvc := eventservice.NewService(eventservice.Params{
		Log:      log,
		GenID:    node,
		Clock:    fc,
		Repo:     evRepo,
		Activity: activitySvc,
	})
	capture := &captureRecorder{inner: eventSvc}

	detector := anomaly.NewDetector(anomaly.Params{
		Log:      log,
		Clock:    fc,
		Repo:     evRepo,
		Recorder: capture,
	})

	verifier := &fakeVerifier{result: turnstile.Result{Success: true}}
	userRepo, sessionRepo := authrepo.New(conn)

	svc := &Service{
		log:         log,
		repo:        userRepo,
		sessionRepo: sessionRepo,
		events:      capture,
		detector:    detector,
		verifier:    verifier,
		admin: config.AdminCredentials{
			Email:    "owner@studio.test",
			Password: "correct horse battery staple",
		},
		clock: fc,
		genID: node,
	}

	return &harness{
		svc:         svc,
		db:          conn,
		clock:       fc,
		events:      capture,
		verifier:    verifier,
		node:        node,
		repo:        userRepo,
		sessionRepo: sessionRepo,
	}
}

func (h *harness) createUser(t *testing.T, email, plain string, role domain.Role) *domain.User {
	t.Helper()
	now := h.clock.Now()
	user := &domain.User{
		ID:          h.node.Generate(),
		ExternalID:  email,
		Email:       email,
		DisplayName: "Test User",
		Role:        role,
		Provider:    domain.ProviderCredentials,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if plain != "" {
		hashed, err := password.Hash(plain)
		require.NoError(t, err)
		user.PasswordHash = &hashed
	}
	require.NoError(t, h.db.Create(user).Error)
	return user
}

func (h *harness) loadSession(t *testing.T, sessionID string) *domain.Session {
	t.Helper()
	var sess domain.Session
	require.NoError(t, h.db.Where("session_id = ?", sessionID).First(&sess).Error)
	return &sess
}
