package audit

import (
	"context"
	"time"

	"github.com/gdrocha-io/togglr-backend/internal/metrics"
	"github.com/gdrocha-io/togglr-backend/internal/model"
	"github.com/gdrocha-io/togglr-backend/internal/repository"
	"github.com/gdrocha-io/togglr-backend/internal/service"
	"github.com/gdrocha-io/togglr-backend/pkg/logger"

	"go.uber.org/zap"
)

const appendTimeout = 5 * time.Second

// Log is the append-only audit trail. Write failures are logged and counted,
// never returned.
type Log struct {
	repo     repository.AuditInterface
	observer metrics.AuditObserver
}

func NewLog(repo repository.AuditInterface, observer metrics.AuditObserver) *Log {
	if observer == nil {
		observer = metrics.Nop{}
	}
	return &Log{repo: repo, observer: observer}
}

// Append stamps the entry with the actor, IP and trace id on ctx and persists
// it. The write outlives a cancelled request.
func (l *Log) Append(ctx context.Context, entry *model.AuditLog) {
	actor := service.CurrentActor(ctx)
	if entry.Actor == "" {
		entry.Actor = actor.Name
		entry.ActorKind = actor.Kind
	}
	if entry.IPAddress == "" {
		entry.IPAddress = service.CurrentIP(ctx)
	}
	if entry.TraceID == "" {
		entry.TraceID = service.CurrentTraceID(ctx)
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), appendTimeout)
	defer cancel()

	if err := l.repo.Create(writeCtx, entry); err != nil {
		l.observer.RecordFailure(string(entry.Action))
		logger.Error("failed to write audit entry",
			zap.String("action", string(entry.Action)),
			zap.String("entity_kind", string(entry.EntityKind)),
			zap.Uint64("entity_id", entry.EntityID),
			zap.String("actor", entry.Actor),
			zap.String("trace_id", entry.TraceID),
			zap.Error(err))
		return
	}
	l.observer.RecordAppend(string(entry.Action))
}

func (l *Log) Query(ctx context.Context, filter repository.AuditFilter, page repository.PageRequest) ([]model.AuditLog, int64, error) {
	return l.repo.Query(ctx, filter, page)
}

func (l *Log) ListAll(ctx context.Context, page repository.PageRequest) ([]model.AuditLog, int64, error) {
	return l.repo.Query(ctx, repository.AuditFilter{}, page)
}

func (l *Log) LogAccess(ctx context.Context, kind model.EntityKind, id uint64, name string, source model.DataSource) {
	l.Append(ctx, &model.AuditLog{
		Action:     model.ActionAccess,
		EntityKind: kind,
		EntityID:   id,
		EntityName: name,
		DataSource: &source,
	})
}

func (l *Log) LogCreate(ctx context.Context, kind model.EntityKind, id uint64, name string, created any) {
	l.Append(ctx, &model.AuditLog{
		Action:     model.ActionCreate,
		EntityKind: kind,
		EntityID:   id,
		EntityName: name,
		NewValues:  encode(created),
	})
}

// LogUpdate records the fields that changed between before and after. A
// no-op update writes nothing. If the diff cannot be computed both full
// representations are kept instead.
func (l *Log) LogUpdate(ctx context.Context, kind model.EntityKind, id uint64, name string, before, after any) {
	entry := &model.AuditLog{
		Action:     model.ActionUpdate,
		EntityKind: kind,
		EntityID:   id,
		EntityName: name,
	}

	changes, err := Diff(before, after)
	if err != nil {
		logger.Warn("audit diff failed, recording full values",
			zap.String("entity_kind", string(kind)), zap.Uint64("entity_id", id), zap.Error(err))
		entry.OldValues = encode(before)
		entry.NewValues = encode(after)
		l.Append(ctx, entry)
		return
	}
	if changes.Empty() {
		return
	}
	entry.OldValues = encodeMap(changes.Old)
	entry.NewValues = encodeMap(changes.New)
	l.Append(ctx, entry)
}

func (l *Log) LogDelete(ctx context.Context, kind model.EntityKind, id uint64, name string, deleted any) {
	l.Append(ctx, &model.AuditLog{
		Action:     model.ActionDelete,
		EntityKind: kind,
		EntityID:   id,
		EntityName: name,
		OldValues:  encode(deleted),
	})
}
