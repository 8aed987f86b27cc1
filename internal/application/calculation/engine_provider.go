package calculation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jhoicas/oraculo-icms/internal/domain"
	"github.com/jhoicas/oraculo-icms/internal/domain/entity"
	"github.com/jhoicas/oraculo-icms/internal/domain/icmsst"
	"github.com/jhoicas/oraculo-icms/pkg/logger"
)

type snapshot struct {
	engine   *icmsst.Engine
	loadedAt time.Time
}

// EngineProvider mantiene el Engine vigente. Una recarga construye un Engine nuevo
// y lo publica de forma atómica; los cálculos en curso siguen con el anterior.
type EngineProvider struct {
	source     RuleSource // nil = sin matrices
	sourceName string
	defaults   icmsst.Defaults
	log        *logger.Logger
	now        func() time.Time

	mu      sync.Mutex // serializa recargas
	current atomic.Pointer[snapshot]
}

// NewEngineProvider arranca con un Engine sin matrices hasta la primera recarga.
func NewEngineProvider(source RuleSource, sourceName string, defaults icmsst.Defaults, log *logger.Logger) *EngineProvider {
	if log == nil {
		log = logger.Nop()
	}
	p := &EngineProvider{
		source:     source,
		sourceName: sourceName,
		defaults:   defaults,
		log:        log.Component("engine_provider"),
		now:        time.Now,
	}
	p.current.Store(&snapshot{engine: icmsst.NewEngine(entity.Matrices{}, defaults), loadedAt: p.now()})
	return p
}

// Current Engine vigente; nunca es nil.
func (p *EngineProvider) Current() *icmsst.Engine {
	return p.current.Load().engine
}

// LoadedAt momento en que se publicó el Engine vigente.
func (p *EngineProvider) LoadedAt() time.Time {
	return p.current.Load().loadedAt
}

// SourceName nombre de la fuente de matrices configurada.
func (p *EngineProvider) SourceName() string {
	return p.sourceName
}

// Reload lee las matrices de la fuente y publica un Engine nuevo. Si la fuente falla
// se conserva el Engine anterior y se devuelve ErrRulesUnavailable.
func (p *EngineProvider) Reload(ctx context.Context) (icmsst.Stats, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := p.now()
	var m entity.Matrices
	if p.source != nil {
		loaded, err := p.source.LoadMatrices(ctx)
		if err != nil {
			p.log.Error().Err(err).Str("source", p.sourceName).Msg("no se pudieron cargar las matrices; se mantiene el snapshot anterior")
			return p.Current().Stats(), fmt.Errorf("%w: %v", domain.ErrRulesUnavailable, err)
		}
		m = loaded
	}
	if m.Version == "" {
		m.Version = start.UTC().Format("20060102T150405Z")
	}
	if m.LoadedAt.IsZero() {
		m.LoadedAt = start
	}

	engine := icmsst.NewEngine(m, p.defaults)
	p.current.Store(&snapshot{engine: engine, loadedAt: m.LoadedAt})

	stats := engine.Stats()
	p.log.Info().
		Str("source", p.sourceName).
		Int("tables", stats.Tables).
		Int("rows", stats.Rows).
		Int("usable_rows", stats.Usable).
		Str("version", stats.Version).
		Dur("took", p.now().Sub(start)).
		Msg("matrices de ST recargadas")
	return stats, nil
}

// Watch recarga periódicamente hasta que ctx se cancele. Los errores solo se registran.
func (p *EngineProvider) Watch(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = p.Reload(ctx)
		}
	}
}
