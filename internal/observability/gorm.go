package observability

import (
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/jkaninda/bureau/internal/tenancy"
)

const (
	gormStartKey = "bureau:obs_start"
	gormSpanKey  = "bureau:obs_span"
)

// GormPlugin times every GORM statement and, when tracing is enabled, wraps
// it in a client span that is a child of the request span.
type GormPlugin struct {
	metrics *MetricsCollector
	tracer  trace.Tracer
}

// NewGormPlugin creates a GormPlugin. Either argument may be nil.
func NewGormPlugin(metrics *MetricsCollector, ts *TracerSetup) *GormPlugin {
	p := &GormPlugin{metrics: metrics}
	if ts != nil {
		p.tracer = ts.Tracer()
	}
	return p
}

// Name implements gorm.Plugin.
func (p *GormPlugin) Name() string { return "bureau:observability" }

// Initialize implements gorm.Plugin.
func (p *GormPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("bureau:before_create", p.before("create")),
		cb.Create().After("gorm:create").Register("bureau:after_create", p.after("create")),
		cb.Query().Before("gorm:query").Register("bureau:before_query", p.before("query")),
		cb.Query().After("gorm:query").Register("bureau:after_query", p.after("query")),
		cb.Update().Before("gorm:update").Register("bureau:before_update", p.before("update")),
		cb.Update().After("gorm:update").Register("bureau:after_update", p.after("update")),
		cb.Delete().Before("gorm:delete").Register("bureau:before_delete", p.before("delete")),
		cb.Delete().After("gorm:delete").Register("bureau:after_delete", p.after("delete")),
		cb.Row().Before("gorm:row").Register("bureau:before_row", p.before("row")),
		cb.Row().After("gorm:row").Register("bureau:after_row", p.after("row")),
		cb.Raw().Before("gorm:raw").Register("bureau:before_raw", p.before("raw")),
		cb.Raw().After("gorm:raw").Register("bureau:after_raw", p.after("raw")),
	)
}

func (p *GormPlugin) before(op string) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		tx.InstanceSet(gormStartKey, time.Now())
		if p.tracer == nil || tx.Statement.Context == nil {
			return
		}
		ctx, span := p.tracer.Start(tx.Statement.Context, "db."+op, trace.WithSpanKind(trace.SpanKindClient))
		if scope, ok := tenancy.FromContext(ctx); ok {
			span.SetAttributes(TenantAttributes(scope)...)
		}
		tx.Statement.Context = ctx
		tx.InstanceSet(gormSpanKey, span)
	}
}

func (p *GormPlugin) after(op string) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		table := tx.Statement.Table
		failed := tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound)

		if p.metrics != nil {
			if v, ok := tx.InstanceGet(gormStartKey); ok {
				if start, ok := v.(time.Time); ok {
					p.metrics.DBQueryDuration.WithLabelValues(op, table).Observe(time.Since(start).Seconds())
				}
			}
			if failed {
				p.metrics.DBErrorsTotal.WithLabelValues(op, table).Inc()
			}
		}

		v, ok := tx.InstanceGet(gormSpanKey)
		if !ok {
			return
		}
		span, ok := v.(trace.Span)
		if !ok {
			return
		}
		span.SetAttributes(
			attribute.String("db.operation", op),
			attribute.String("db.sql.table", table),
			attribute.Int64("db.rows_affected", tx.RowsAffected),
		)
		if failed {
			span.RecordError(tx.Error)
			span.SetStatus(codes.Error, tx.Error.Error())
		}
		span.End()
	}
}
