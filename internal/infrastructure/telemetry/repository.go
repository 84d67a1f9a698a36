package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/garyjia/expense-requirement/internal/application/port"
	"github.com/garyjia/expense-requirement/internal/domain/entity"
)

// instruments shared by the repository decorators
type instruments struct {
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

func newInstruments(p *Provider) *instruments {
	m := p.Meter()
	ops, _ := m.Int64Counter("requirement.storage.operations",
		metric.WithDescription("Total storage operations executed"),
	)
	dur, _ := m.Float64Histogram("requirement.storage.operation.duration",
		metric.WithDescription("Storage operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("requirement.storage.errors",
		metric.WithDescription("Total storage operation errors"),
	)
	return &instruments{tracer: p.Tracer(), ops: ops, dur: dur, errs: errs}
}

func (in *instruments) op(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	all := append([]attribute.KeyValue{attribute.String("db.operation", name)}, attrs...)
	ctx, span := in.tracer.Start(ctx, "storage."+name,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	in.ops.Add(ctx, 1, metric.WithAttributes(all...))
	return ctx, span, time.Now()
}

func (in *instruments) done(ctx context.Context, span trace.Span, start time.Time, err error, name string) {
	attrs := metric.WithAttributes(attribute.String("db.operation", name))
	in.dur.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		in.errs.Add(ctx, 1, attrs)
	}
	span.End()
}

// InstrumentedRequirements wraps a RequirementRepository with spans and metrics
type InstrumentedRequirements struct {
	inner port.RequirementRepository
	in    *instruments
}

// WrapRequirements returns repo unchanged when p is disabled
func WrapRequirements(repo port.RequirementRepository, p *Provider) port.RequirementRepository {
	if !p.Enabled() {
		return repo
	}
	return &InstrumentedRequirements{inner: repo, in: newInstruments(p)}
}

func (r *InstrumentedRequirements) Create(ctx context.Context, req *entity.Requirement) error {
	ctx, span, t := r.in.op(ctx, "Create", attribute.String("requirement.kind", string(req.Kind)))
	err := r.inner.Create(ctx, req)
	r.in.done(ctx, span, t, err, "Create")
	return err
}

func (r *InstrumentedRequirements) GetByID(ctx context.Context, id string) (*entity.Requirement, error) {
	ctx, span, t := r.in.op(ctx, "GetByID")
	v, err := r.inner.GetByID(ctx, id)
	r.in.done(ctx, span, t, err, "GetByID")
	return v, err
}

func (r *InstrumentedRequirements) Update(ctx context.Context, req *entity.Requirement) error {
	ctx, span, t := r.in.op(ctx, "Update", attribute.String("requirement.state", string(req.State)))
	err := r.inner.Update(ctx, req)
	r.in.done(ctx, span, t, err, "Update")
	return err
}

func (r *InstrumentedRequirements) CountSubmitted(ctx context.Context, departmentID int, day string) (int, error) {
	ctx, span, t := r.in.op(ctx, "CountSubmitted", attribute.Int("requirement.department", departmentID))
	v, err := r.inner.CountSubmitted(ctx, departmentID, day)
	r.in.done(ctx, span, t, err, "CountSubmitted")
	return v, err
}

func (r *InstrumentedRequirements) List(ctx context.Context, filter port.RequirementFilter) ([]*entity.Requirement, error) {
	ctx, span, t := r.in.op(ctx, "List")
	v, err := r.inner.List(ctx, filter)
	r.in.done(ctx, span, t, err, "List")
	return v, err
}

// InstrumentedHistory wraps a HistoryRepository with spans and metrics
type InstrumentedHistory struct {
	inner port.HistoryRepository
	in    *instruments
}

// WrapHistory returns repo unchanged when p is disabled
func WrapHistory(repo port.HistoryRepository, p *Provider) port.HistoryRepository {
	if !p.Enabled() {
		return repo
	}
	return &InstrumentedHistory{inner: repo, in: newInstruments(p)}
}

func (h *InstrumentedHistory) Create(ctx context.Context, record *entity.History) error {
	ctx, span, t := h.in.op(ctx, "HistoryCreate", attribute.String("history.action", string(record.Action)))
	err := h.inner.Create(ctx, record)
	h.in.done(ctx, span, t, err, "HistoryCreate")
	return err
}

func (h *InstrumentedHistory) GetByRequirementID(ctx context.Context, requirementID string) ([]*entity.History, error) {
	ctx, span, t := h.in.op(ctx, "HistoryList")
	v, err := h.inner.GetByRequirementID(ctx, requirementID)
	h.in.done(ctx, span, t, err, "HistoryList")
	return v, err
}

var (
	_ port.RequirementRepository = (*InstrumentedRequirements)(nil)
	_ port.HistoryRepository     = (*InstrumentedHistory)(nil)
)
