// Package anomaly flags identities whose recent event history looks like an
// account takeover in progress: clustered login failures, or successful
// logins fanning out across source IPs.
package anomaly

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/framecraft/studio/internal/clock"
	"github.com/framecraft/studio/internal/securityevent/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// Window is the trailing interval both heuristics evaluate over.
	Window = time.Hour

	// FailureThreshold is the login_failure count at which an identity is
	// flagged.
	FailureThreshold = 5

	// DistinctIPThreshold is the distinct-source-IP count on login_success
	// at which an identity is flagged.
	DistinctIPThreshold = 3
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	Repo     domain.Repository
	Recorder domain.Recorder
}

// Detector evaluates both heuristics against the event log. It is a gate on
// session validation for non-admin sessions, not merely advisory.
type Detector struct {
	log      *zap.Logger
	clock    clock.Clock
	repo     domain.Repository
	recorder domain.Recorder
}

func NewDetector(p Params) *Detector {
	return &Detector{
		log:      p.Log.Named("anomaly.detector"),
		clock:    p.Clock,
		repo:     p.Repo,
		recorder: p.Recorder,
	}
}

// IsSuspicious reports whether the identity trips either heuristic over the
// trailing window. A positive result also records a suspicious_activity
// event. Store failures degrade to "not suspicious": the detector must not
// take logins down with it.
func (d *Detector) IsSuspicious(ctx context.Context, userID snowflake.ID, ipAddress string) bool {
	if userID == 0 {
		return false
	}
	since := d.clock.Now().Add(-Window)

	failures, err := d.repo.CountByUserAndType(ctx, userID, domain.EventLoginFailure, since)
	if err != nil {
		d.log.Warn("failed to count login failures", zap.Error(err))
		return false
	}
	if failures >= FailureThreshold {
		d.flag(ctx, userID, ipAddress, domain.SeverityHigh, "Multiple failed login attempts", map[string]any{
			"login_failures": failures,
			"window_minutes": int(Window.Minutes()),
		})
		return true
	}

	ips, err := d.repo.DistinctIPs(ctx, userID, domain.EventLoginSuccess, since)
	if err != nil {
		d.log.Warn("failed to count distinct login ips", zap.Error(err))
		return false
	}
	if ips >= DistinctIPThreshold {
		d.flag(ctx, userID, ipAddress, domain.SeverityMedium, "Multiple IP addresses", map[string]any{
			"distinct_ips":   ips,
			"window_minutes": int(Window.Minutes()),
		})
		return true
	}

	return false
}

func (d *Detector) flag(ctx context.Context, userID snowflake.ID, ipAddress string, severity domain.Severity, reason string, details map[string]any) {
	details["reason"] = reason
	_ = d.recorder.Record(ctx, domain.Entry{
		EventType: domain.EventSuspiciousActivity,
		Severity:  severity,
		UserID:    userID.String(),
		IPAddress: ipAddress,
		Details:   details,
	})
}
