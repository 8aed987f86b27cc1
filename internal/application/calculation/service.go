package calculation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/oraculo-icms/internal/application/dto"
	"github.com/jhoicas/oraculo-icms/internal/domain"
	"github.com/jhoicas/oraculo-icms/internal/domain/entity"
	"github.com/jhoicas/oraculo-icms/internal/domain/icmsst"
	"github.com/jhoicas/oraculo-icms/internal/domain/nfe"
	"github.com/jhoicas/oraculo-icms/internal/domain/repository"
	"github.com/jhoicas/oraculo-icms/pkg/fiscal"
	"github.com/jhoicas/oraculo-icms/pkg/logger"
)

// Config opciones del servicio de cálculo.
type Config struct {
	UseMultiplier bool // valor cuando la petición no lo informa
	PersistRuns   bool
}

// Service casos de uso de cálculo del ICMS-ST: lote de líneas, NF-e en XML y consulta de corridas.
type Service struct {
	engines *EngineProvider
	parser  InvoiceParser
	runs    repository.CalculationRunRepository // nil = corridas no se guardan
	pdf     MemoriaPDFGenerator
	cfg     Config
	log     *logger.Logger
	now     func() time.Time
}

// NewService construye el servicio inyectando sus dependencias.
func NewService(
	engines *EngineProvider,
	parser InvoiceParser,
	runs repository.CalculationRunRepository,
	pdf MemoriaPDFGenerator,
	cfg Config,
	log *logger.Logger,
) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		engines: engines,
		parser:  parser,
		runs:    runs,
		pdf:     pdf,
		cfg:     cfg,
		log:     log.Component("calculation"),
		now:     time.Now,
	}
}

// Calculate calcula un lote de líneas enviadas directamente por el cliente.
func (s *Service) Calculate(ctx context.Context, companyID, userID string, in dto.CalculateRequest) (*dto.CalculationResponse, error) {
	if err := validateOperation(in.OriginUF, in.DestinationUF, len(in.Items)); err != nil {
		return nil, err
	}
	items := make([]entity.TaxItem, len(in.Items))
	for i, r := range in.Items {
		items[i] = r.ToEntity(i)
	}
	useMult := s.cfg.UseMultiplier
	if in.UseMultiplier != nil {
		useMult = *in.UseMultiplier
	}
	return s.execute(ctx, batch{
		companyID:     companyID,
		userID:        userID,
		originUF:      fiscal.NormalizeUF(in.OriginUF),
		destinationUF: fiscal.NormalizeUF(in.DestinationUF),
		useMultiplier: useMult,
		items:         items,
	})
}

// CalculateNFe interpreta el XML de una NF-e y calcula todas sus líneas.
// Las UFs de la operación salen del emitente y del destinatario salvo que opts las informe.
func (s *Service) CalculateNFe(ctx context.Context, companyID, userID string, xml []byte, opts dto.NFeOptions) (*dto.CalculationResponse, error) {
	if s.parser == nil {
		return nil, fmt.Errorf("calculation: parser de NF-e no configurado")
	}
	doc, err := s.parser.Parse(xml)
	if err != nil {
		return nil, err
	}
	if err := nfe.ValidateDocument(doc); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidDocument, err)
	}

	origin := firstNonEmpty(opts.OriginUF, doc.Header.EmitterUF)
	dest := firstNonEmpty(opts.DestinationUF, doc.Header.RecipientUF)
	if err := validateOperation(origin, dest, len(doc.Items)); err != nil {
		return nil, err
	}

	items := make([]entity.TaxItem, len(doc.Items))
	copy(items, doc.Items)
	for i := range items {
		if opts.IncludeFreightInExemption != nil {
			items[i].ExcludeFreightFromExemption = !*opts.IncludeFreightInExemption
		}
		if opts.IncludeOtherInExemption != nil {
			items[i].ExcludeOtherFromExemption = !*opts.IncludeOtherInExemption
		}
	}
	useMult := s.cfg.UseMultiplier
	if opts.UseMultiplier != nil {
		useMult = *opts.UseMultiplier
	}

	header := doc.Header
	return s.execute(ctx, batch{
		companyID:     companyID,
		userID:        userID,
		originUF:      fiscal.NormalizeUF(origin),
		destinationUF: fiscal.NormalizeUF(dest),
		useMultiplier: useMult,
		items:         items,
		document:      &header,
		warnings:      nfe.Inconsistencies(doc),
	})
}

type batch struct {
	companyID     string
	userID        string
	originUF      string
	destinationUF string
	useMultiplier bool
	items         []entity.TaxItem
	document      *entity.NFeHeader
	warnings      []string
}

func (s *Service) execute(ctx context.Context, b batch) (*dto.CalculationResponse, error) {
	warnings := append(catalogWarnings(b.originUF, b.destinationUF), b.warnings...)
	for _, w := range warnings {
		s.log.Warn().Str("company_id", b.companyID).Msg(w)
	}

	engine := s.engines.Current()
	start := s.now()
	results, total := engine.CalculateBatch(b.items, b.originUF, b.destinationUF, b.useMultiplier)

	run := &icmsst.Run{
		CompanyID:     b.companyID,
		UserID:        b.userID,
		OriginUF:      b.originUF,
		DestinationUF: b.destinationUF,
		UseMultiplier: b.useMultiplier,
		RulesVersion:  engine.Stats().Version,
		Document:      b.document,
		Results:       results,
		ItemCount:     len(results),
		Total:         total,
		CreatedAt:     start.UTC(),
	}

	withoutRule := 0
	for _, r := range results {
		if r.Memoria.Parameters.RuleSource == "" {
			withoutRule++
		}
	}
	s.log.Info().
		Str("company_id", b.companyID).
		Str("origin_uf", b.originUF).
		Str("destination_uf", b.destinationUF).
		Int("items", len(results)).
		Int("items_without_rule", withoutRule).
		Str("total", total.StringFixed(2)).
		Str("rules_version", run.RulesVersion).
		Dur("took", s.now().Sub(start)).
		Msg("lote de ICMS-ST calculado")

	if s.cfg.PersistRuns && s.runs != nil {
		if err := s.runs.Create(ctx, run); err != nil {
			// El cálculo es válido aunque no se haya guardado.
			s.log.Error().Err(err).Str("company_id", b.companyID).Msg("no se pudo guardar la corrida")
			run.ID = ""
			warnings = append(warnings, "cálculo não foi armazenado; o PDF da memória não estará disponível")
		}
	}

	resp := toResponse(run)
	resp.Warnings = warnings
	return resp, nil
}

// GetRun devuelve una corrida guardada de la empresa.
func (s *Service) GetRun(ctx context.Context, companyID, runID string) (*dto.CalculationResponse, error) {
	run, err := s.loadRun(ctx, companyID, runID)
	if err != nil {
		return nil, err
	}
	return toResponse(run), nil
}

// ListRuns lista las corridas de la empresa, más recientes primero.
func (s *Service) ListRuns(ctx context.Context, companyID string, page dto.PageRequest) (*dto.RunListResponse, error) {
	page.Normalize()
	resp := &dto.RunListResponse{Runs: []dto.RunSummary{}, Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset}}
	if s.runs == nil {
		return resp, nil
	}
	runs, total, err := s.runs.ListByCompany(ctx, companyID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("calculation: listar corridas: %w", err)
	}
	for _, r := range runs {
		sum := dto.RunSummary{
			ID:            r.ID,
			OriginUF:      r.OriginUF,
			DestinationUF: r.DestinationUF,
			Items:         r.ItemCount,
			Total:         r.Total,
			CreatedAt:     r.CreatedAt,
		}
		if r.Document != nil {
			sum.AccessKey = r.Document.AccessKey
		}
		resp.Runs = append(resp.Runs, sum)
	}
	resp.Page.Total = total
	return resp, nil
}

// ResolveRule muestra qué regla usaría el motor vigente para una consulta.
func (s *Service) ResolveRule(q dto.ResolveRuleRequest) (*dto.ResolveRuleResponse, error) {
	var errs []error
	if fiscal.OnlyDigits(q.NCM) == "" {
		errs = append(errs, errors.New("ncm es obligatorio"))
	}
	if !fiscal.WellFormedUF(q.DestinationUF) {
		errs = append(errs, fmt.Errorf("uf inválida: %q", q.DestinationUF))
	}
	if len(errs) > 0 {
		return nil, errors.Join(append([]error{domain.ErrInvalidInput}, errs...)...)
	}

	rule, ok := s.engines.Current().Resolver().ResolveQuery(icmsst.RuleQuery{
		NCM:           q.NCM,
		CEST:          q.CEST,
		CFOP:          q.CFOP,
		CST:           q.CST,
		DestinationUF: q.DestinationUF,
	})
	if !ok {
		return &dto.ResolveRuleResponse{Found: false}, nil
	}
	return &dto.ResolveRuleResponse{
		Found:        true,
		Source:       rule.Source,
		MatchedCode:  rule.MatchedCode,
		MatchedCEST:  rule.MatchedCEST,
		AppliesST:    rule.Applies,
		OriginRate:   rule.OriginRate,
		MVA:          rule.MVA,
		InternalRate: rule.InternalRate,
		Multiplier:   rule.Multiplier,
		CreditRate:   rule.CreditRate,
		CreditType:   string(rule.CreditType),
	}, nil
}

func (s *Service) loadRun(ctx context.Context, companyID, runID string) (*icmsst.Run, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("%w: id de corrida inválido", domain.ErrInvalidInput)
	}
	if s.runs == nil {
		return nil, domain.ErrNotFound
	}
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("calculation: obtener corrida: %w", err)
	}
	if run == nil {
		return nil, domain.ErrNotFound
	}
	if run.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return run, nil
}

func toResponse(run *icmsst.Run) *dto.CalculationResponse {
	resp := &dto.CalculationResponse{
		ID:            run.ID,
		OriginUF:      run.OriginUF,
		DestinationUF: run.DestinationUF,
		UseMultiplier: run.UseMultiplier,
		RulesVersion:  run.RulesVersion,
		Document:      run.Document,
		Items:         make([]dto.ItemResultResponse, 0, len(run.Results)),
		Total:         run.Total,
		CreatedAt:     run.CreatedAt,
	}
	for _, r := range run.Results {
		resp.Items = append(resp.Items, dto.ItemResultResponse{
			BaseCalculoST: r.BaseCalculoST,
			ICMSSTDevido:  r.ICMSSTDevido,
			Memoria:       r.Memoria,
			Display:       MemoriaFields(r.Memoria),
		})
	}
	return resp
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
