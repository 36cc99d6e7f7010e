package status

import (
	"context"

	"record-sync/core/reconcile"
	"record-sync/feature/status/models"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// ErrUnknownMapping is returned for names the registry does not hold.
var ErrUnknownMapping = errors.New("unknown mapping")

// Service exposes the runner and its tracker to the HTTP handler.
type Service struct {
	runner *reconcile.Runner
	logger *zap.Logger
}

// NewService creates a new status service.
func NewService(runner *reconcile.Runner, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		runner: runner,
		logger: logger,
	}
}

// List returns a summary of every registered mapping, in registration order.
func (s *Service) List(ctx context.Context) ([]models.MappingSummary, error) {
	mappings := s.runner.Registry().Mappings()
	out := make([]models.MappingSummary, 0, len(mappings))
	for _, m := range mappings {
		summary, err := s.summarize(ctx, m)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, nil
}

// Get returns the detail view of one mapping.
func (s *Service) Get(ctx context.Context, name string) (*models.MappingDetail, error) {
	m, err := s.mapping(name)
	if err != nil {
		return nil, err
	}
	summary, err := s.summarize(ctx, m)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]string)
	for _, canonical := range m.Attributes.Fields() {
		if remote, ok := m.Attributes.RemoteField(canonical); ok {
			fields[canonical] = remote
		}
	}
	assocs := make([]models.AssociationSummary, 0, len(m.Associations))
	for _, a := range m.Associations {
		assocs = append(assocs, models.AssociationSummary{
			Name:         a.Name,
			Target:       a.Target,
			Kind:         a.Kind.String(),
			LookupFields: a.LookupFields,
			ForeignKey:   a.ForeignKey,
		})
	}

	return &models.MappingDetail{
		MappingSummary: summary,
		LookupColumn:   m.LookupColumn,
		Fields:         fields,
		Associations:   assocs,
		LastReport:     s.runner.LastReport(name),
	}, nil
}

// Sync runs one cycle of the named mapping now. A scheduled cycle already
// in flight for the mapping is joined rather than duplicated.
func (s *Service) Sync(ctx context.Context, name string) (*reconcile.CycleReport, error) {
	if _, err := s.mapping(name); err != nil {
		return nil, err
	}
	return s.runner.RunMapping(ctx, name)
}

// ResetWindow forgets the stored window of the named mapping so the next
// cycle scans from the beginning.
func (s *Service) ResetWindow(ctx context.Context, name string) error {
	if _, err := s.mapping(name); err != nil {
		return err
	}
	return s.runner.Tracker().Reset(ctx, name)
}

func (s *Service) mapping(name string) (*reconcile.Mapping, error) {
	m, ok := s.runner.Registry().Get(name)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownMapping, "%q", name)
	}
	return m, nil
}

func (s *Service) summarize(ctx context.Context, m *reconcile.Mapping) (models.MappingSummary, error) {
	last, err := s.runner.Tracker().Last(ctx, m.Name)
	if err != nil {
		return models.MappingSummary{}, err
	}
	summary := models.MappingSummary{
		Name:       m.Name,
		LocalType:  m.Local.Name(),
		RemoteType: m.Remote.Name(),
		Strategy:   m.Strategy.Name(),
	}
	if !last.IsZero() {
		end := last.UTC()
		summary.WindowEnd = &end
	}
	return summary, nil
}
