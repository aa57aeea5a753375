package payouts

import (
	"context"
	"fmt"
	"strings"

	"github.com/tourlink/marketplace/internal/app/domain/audit"
	"github.com/tourlink/marketplace/internal/app/domain/month"
	"github.com/tourlink/marketplace/internal/app/metrics"
	"github.com/tourlink/marketplace/internal/errors"
)

// AdminRole is the role required for administrative unlock.
const AdminRole = "admin"

// MonthStatus is the lock controller's view of one month.
type MonthStatus struct {
	Month      string        `json:"month"`
	Locked     bool          `json:"locked"`
	Calculated bool          `json:"calculated"`
	LastAction *audit.Entry  `json:"last_action,omitempty"`
	AuditTrail []audit.Entry `json:"audit_trail"`
}

// Status reports whether a month is administratively locked, whether it has
// score rows, and the full audit trail behind the lock state.
func (s *Service) Status(ctx context.Context, monthStr string) (MonthStatus, error) {
	if !month.Valid(monthStr) {
		return MonthStatus{}, errors.Validation("invalid month %q: expected YYYY-MM", monthStr)
	}

	trail, err := s.deps.Audit.ListAuditByMonth(ctx, monthStr)
	if err != nil {
		return MonthStatus{}, fmt.Errorf("list audit trail: %w", err)
	}

	status := MonthStatus{Month: monthStr, AuditTrail: trail}
	if len(trail) > 0 {
		last := trail[len(trail)-1]
		status.LastAction = &last
		status.Locked = last.Action == audit.ActionLock
	}

	rows, err := s.deps.Scores.ListScores(ctx, monthStr)
	if err != nil {
		return MonthStatus{}, fmt.Errorf("list scores: %w", err)
	}
	status.Calculated = len(rows) > 0

	return status, nil
}

// Lock freezes a month against recalculation. A reason is recorded when
// given but is not required. Locking an already-locked month is refused.
func (s *Service) Lock(ctx context.Context, monthStr, user, role, reason string) (audit.Entry, error) {
	if !month.Valid(monthStr) {
		return audit.Entry{}, errors.Validation("invalid month %q: expected YYYY-MM", monthStr)
	}
	if strings.TrimSpace(user) == "" {
		return audit.Entry{}, errors.Validation("user is required")
	}

	locked, err := s.adminLocked(ctx, monthStr)
	if err != nil {
		return audit.Entry{}, err
	}
	if locked {
		return audit.Entry{}, errors.Conflict("month %s is already locked", monthStr)
	}

	entry, err := s.deps.Audit.AppendAudit(ctx, audit.Entry{
		Month:  monthStr,
		Action: audit.ActionLock,
		User:   strings.TrimSpace(user),
		Role:   strings.TrimSpace(role),
		Reason: strings.TrimSpace(reason),
	})
	if err != nil {
		return audit.Entry{}, fmt.Errorf("append audit entry: %w", err)
	}

	metrics.RecordLockEvent(string(audit.ActionLock))
	s.log.WithField("month", monthStr).WithField("user", entry.User).Info("month locked")
	return entry, nil
}

// Unlock lifts a month's administrative lock. It demands a non-blank reason
// and the admin role; both end up in the audit trail.
func (s *Service) Unlock(ctx context.Context, monthStr, user, role, reason string) (audit.Entry, error) {
	if !month.Valid(monthStr) {
		return audit.Entry{}, errors.Validation("invalid month %q: expected YYYY-MM", monthStr)
	}
	if strings.TrimSpace(user) == "" {
		return audit.Entry{}, errors.Validation("user is required")
	}
	if strings.TrimSpace(reason) == "" {
		return audit.Entry{}, errors.Conflict("unlocking a month requires a reason")
	}
	if strings.TrimSpace(role) != AdminRole {
		return audit.Entry{}, errors.Forbidden("only the %s role may unlock a month", AdminRole)
	}

	locked, err := s.adminLocked(ctx, monthStr)
	if err != nil {
		return audit.Entry{}, err
	}
	if !locked {
		return audit.Entry{}, errors.Conflict("month %s is not locked", monthStr)
	}

	entry, err := s.deps.Audit.AppendAudit(ctx, audit.Entry{
		Month:  monthStr,
		Action: audit.ActionUnlock,
		User:   strings.TrimSpace(user),
		Role:   AdminRole,
		Reason: strings.TrimSpace(reason),
	})
	if err != nil {
		return audit.Entry{}, fmt.Errorf("append audit entry: %w", err)
	}

	metrics.RecordLockEvent(string(audit.ActionUnlock))
	s.log.WithField("month", monthStr).WithField("user", entry.User).Info("month unlocked")
	return entry, nil
}

// adminLocked derives the administrative lock state from the audit trail:
// the latest lock/unlock entry for the month wins. This is distinct from the
// locked flag on score rows, which every successful run sets.
func (s *Service) adminLocked(ctx context.Context, monthStr string) (bool, error) {
	trail, err := s.deps.Audit.ListAuditByMonth(ctx, monthStr)
	if err != nil {
		return false, fmt.Errorf("list audit trail: %w", err)
	}
	if len(trail) == 0 {
		return false, nil
	}
	return trail[len(trail)-1].Action == audit.ActionLock, nil
}
