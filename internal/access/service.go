package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/buildmart/buildmart/internal/audit"
)

// ErrResourceNotFound is returned for unknown resources. Callers must not
// distinguish it from an unknown resource type.
var ErrResourceNotFound = errors.New("access: resource not found")

// DefaultBatchConcurrency bounds DecideAndProjectMany when none is configured.
const DefaultBatchConcurrency = 8

// Store loads resources by type and id.
type Store interface {
	Load(ctx context.Context, rt ResourceType, id string) (Resource, error)
}

// AuditRecorder persists audit events durably.
type AuditRecorder interface {
	Record(ctx context.Context, e audit.Event) error
}

// MetricsRecorder receives decision outcomes.
type MetricsRecorder interface {
	Decision(resource, reason string)
	AuditFailure(resource string)
	RelationshipFailure(resource string)
}

// ServiceDeps groups the collaborators of a Service.
type ServiceDeps struct {
	Store            Store
	Resolver         *Resolver
	Engine           *Engine
	Projector        *Projector
	Audit            AuditRecorder
	Metrics          MetricsRecorder
	Logger           *slog.Logger
	BatchConcurrency int
}

// Service composes resolution, decision, projection and audit into the single
// path every record takes before leaving the process.
type Service struct {
	store       Store
	resolver    *Resolver
	engine      *Engine
	projector   *Projector
	audit       AuditRecorder
	metrics     MetricsRecorder
	logger      *slog.Logger
	concurrency int
}

// NewService constructs a Service.
func NewService(deps ServiceDeps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := deps.BatchConcurrency
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}
	return &Service{
		store:       deps.Store,
		resolver:    deps.Resolver,
		engine:      deps.Engine,
		projector:   deps.Projector,
		audit:       deps.Audit,
		metrics:     deps.Metrics,
		logger:      logger,
		concurrency: concurrency,
	}
}

// DecideAndProject loads one resource and returns the view principal may
// see. When the decision must be audited, the event is persisted before the
// record is returned; if that write fails the caller receives the public-only
// projection instead.
func (s *Service) DecideAndProject(ctx context.Context, principal Principal, rt ResourceType, id string) (SafeRecord, error) {
	if !rt.IsValid() || id == "" {
		return SafeRecord{}, ErrResourceNotFound
	}
	res, err := s.store.Load(ctx, rt, id)
	if err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			return SafeRecord{}, ErrResourceNotFound
		}
		return SafeRecord{}, fmt.Errorf("access: load %s: %w", rt, err)
	}
	if res == nil || res.Type() != rt {
		return SafeRecord{}, ErrResourceNotFound
	}

	decision, err := s.decide(ctx, principal, rt, res)
	if err != nil {
		return SafeRecord{}, err
	}
	safe, err := s.project(rt, res, decision)
	if err != nil {
		return SafeRecord{}, err
	}

	if decision.ShouldLog() {
		event := audit.Event{
			ActorProfileID: principal.ProfileID,
			ResourceType:   string(rt),
			ResourceID:     res.ResourceID(),
			Action:         audit.Action(decision.Action()),
			FieldsAccessed: safe.Disclosed,
			Justification:  decision.Reason(),
		}
		if err := s.record(ctx, event); err != nil {
			s.logger.Error("audit write failed, withholding disclosure",
				slog.String("resource_type", string(rt)),
				slog.String("resource_id", res.ResourceID()),
				slog.Any("error", err))
			if s.metrics != nil {
				s.metrics.AuditFailure(string(rt))
			}
			safe, err = s.project(rt, res, PublicOnly(ReasonAuditUnavailable, false, ActionView))
			if err != nil {
				return SafeRecord{}, err
			}
		}
	}

	if s.metrics != nil {
		s.metrics.Decision(string(rt), safe.Reason)
	}
	return safe, nil
}

// DecideAndProjectMany projects several resources of one type concurrently.
// Unknown ids are skipped; results keep the order of ids.
func (s *Service) DecideAndProjectMany(ctx context.Context, principal Principal, rt ResourceType, ids []string) ([]SafeRecord, error) {
	results := make([]*SafeRecord, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			safe, err := s.DecideAndProject(gctx, principal, rt, id)
			if err != nil {
				if errors.Is(err, ErrResourceNotFound) {
					return nil
				}
				return err
			}
			results[i] = &safe
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([]SafeRecord, 0, len(ids))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

// decide fails closed on relationship errors unless the caller's own context
// ended, which is returned as an error.
func (s *Service) decide(ctx context.Context, principal Principal, rt ResourceType, res Resource) (Decision, error) {
	facts, err := s.resolver.Resolve(ctx, principal, res)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Decision{}, fmt.Errorf("access: resolve %s: %w", rt, ctxErr)
		}
		s.logger.Warn("relationship lookup failed",
			slog.String("resource_type", string(rt)),
			slog.String("resource_id", res.ResourceID()),
			slog.Any("error", err))
		if s.metrics != nil {
			s.metrics.RelationshipFailure(string(rt))
		}
		return PublicOnly(ReasonRelationshipUnavailable, principal.Authenticated(), ActionDeny), nil
	}
	return s.engine.Decide(principal, rt, res, facts), nil
}

func (s *Service) project(rt ResourceType, res Resource, d Decision) (SafeRecord, error) {
	safe, err := s.projector.Project(rt, res.Record(), d)
	if err != nil {
		return SafeRecord{}, err
	}
	safe.ResourceID = res.ResourceID()
	return safe, nil
}

func (s *Service) record(ctx context.Context, e audit.Event) error {
	if s.audit == nil {
		return audit.ErrWriteFailed
	}
	return s.audit.Record(ctx, e)
}
