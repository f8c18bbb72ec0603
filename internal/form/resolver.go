package form

import (
	"context"
	"encoding/json"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"idintake/internal/form/metrics"
	"idintake/internal/schema"
)

// Origin says where the active schema came from.
type Origin string

const (
	OriginProvider Origin = "provider"
	OriginFallback Origin = "fallback"
)

// Fallback reasons, used as metric labels.
const (
	reasonNone        = "none"
	reasonFetchFailed = "fetch_failed"
	reasonInvalid     = "invalid_schema"
	reasonDegraded    = "degraded"
)

// SchemaSource returns the provider parameter document.
type SchemaSource interface {
	Fetch(ctx context.Context) (json.RawMessage, error)
}

// Resolution is the schema the form renders.
type Resolution struct {
	Schema *schema.Map
	Origin Origin
}

// Resolver picks the provider schema when usable and the fallback otherwise.
// Concurrent calls share one upstream fetch; nothing is cached between calls.
type Resolver struct {
	source  SchemaSource
	group   singleflight.Group
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewResolver(source SchemaSource, logger *slog.Logger, m *metrics.Metrics) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{source: source, logger: logger, metrics: m}
}

// Resolve never fails: any problem yields the fallback schema. The shared
// fetch is detached from the caller's cancellation so one client hanging up
// does not fail the others; the provider timeout still bounds it.
func (r *Resolver) Resolve(ctx context.Context) Resolution {
	v, _, _ := r.group.Do("parameters", func() (any, error) {
		return r.resolve(context.WithoutCancel(ctx)), nil
	})
	return v.(Resolution)
}

// ForOrigin resolves again unless the page was rendered from the fallback, in
// which case the fallback is reused without a provider call.
func (r *Resolver) ForOrigin(ctx context.Context, origin Origin) Resolution {
	if origin == OriginFallback {
		return Resolution{Schema: schema.Fallback(), Origin: OriginFallback}
	}
	return r.Resolve(ctx)
}

func (r *Resolver) resolve(ctx context.Context) Resolution {
	body, err := r.source.Fetch(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "parameter fetch failed, using fallback fields", "error", err)
		return r.fallback(reasonFetchFailed)
	}

	m, skipped, err := schema.Parse(body)
	if err != nil {
		r.logger.WarnContext(ctx, "parameter schema unreadable, using fallback fields", "error", err)
		return r.fallback(reasonInvalid)
	}
	if len(skipped) > 0 {
		r.logger.DebugContext(ctx, "ignored non-object schema entries", "fields", skipped)
	}
	if m.Degraded() {
		r.logger.InfoContext(ctx, "using fallback fields due to insufficient parameter data",
			"field_count", m.Len(),
		)
		return r.fallback(reasonDegraded)
	}

	r.metrics.IncResolution(string(OriginProvider), reasonNone)
	return Resolution{Schema: m, Origin: OriginProvider}
}

func (r *Resolver) fallback(reason string) Resolution {
	r.metrics.IncResolution(string(OriginFallback), reason)
	return Resolution{Schema: schema.Fallback(), Origin: OriginFallback}
}
