package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/minefleet-dispatch/internal/backend"
	"github.com/nurpe/minefleet-dispatch/internal/model"
)

type ReportFormat string

const (
	ReportXLSX ReportFormat = "xlsx"
	ReportPDF  ReportFormat = "pdf"
)

type ReportGenerator interface {
	Generate(report model.SubmissionReport) ([]byte, error)
}

type CatalogSource interface {
	LoadCatalog(ctx context.Context) (*model.Catalog, error)
}

type ReportFile struct {
	FileName    string
	ContentType string
	Content     []byte
}

type ReportService struct {
	submissions SubmissionStore
	catalog     CatalogSource
	excel       ReportGenerator
	pdf         ReportGenerator
	log         zerolog.Logger
}

func NewReportService(submissions SubmissionStore, catalog CatalogSource, excel, pdf ReportGenerator, log zerolog.Logger) *ReportService {
	return &ReportService{
		submissions: submissions,
		catalog:     catalog,
		excel:       excel,
		pdf:         pdf,
		log:         log,
	}
}

func (s *ReportService) SubmissionReport(ctx context.Context, principal model.Principal, id uuid.UUID, format ReportFormat) (*ReportFile, error) {
	if !principal.CanDispatch() {
		return nil, ErrPermissionDenied
	}

	var (
		generator   ReportGenerator
		contentType string
	)
	switch format {
	case ReportXLSX:
		generator, contentType = s.excel, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ReportPDF:
		generator, contentType = s.pdf, "application/pdf"
	default:
		return nil, fmt.Errorf("%w: unknown report format %q", ErrInvalidInput, format)
	}

	sub, err := s.submissions.Get(ctx, id)
	if err != nil {
		return nil, translateStoreErr(err, id)
	}

	report := model.SubmissionReport{Submission: *sub}
	catalog, err := s.catalog.LoadCatalog(backend.WithToken(ctx, principal.Token))
	if err != nil {
		s.log.Warn().Err(err).Str("submission_id", id.String()).Msg("catalog unavailable, report uses raw ids")
	} else {
		report = labelled(report, *catalog)
	}

	content, err := generator.Generate(report)
	if err != nil {
		return nil, err
	}
	return &ReportFile{
		FileName:    fmt.Sprintf("submission_%s_%s.%s", sub.RecordDate.Format("20060102"), sub.Shift, format),
		ContentType: contentType,
		Content:     content,
	}, nil
}

func labelled(report model.SubmissionReport, catalog model.Catalog) model.SubmissionReport {
	if site, ok := catalog.MiningSite(report.Submission.MiningSiteID); ok {
		report.SiteName = site.Name
	}
	report.Trucks = make(map[string]string)
	report.Operators = make(map[string]string)
	for _, item := range report.Submission.Items {
		if truck, ok := catalog.Truck(item.TruckID); ok {
			report.Trucks[item.TruckID] = truck.Code
		}
		if op, ok := catalog.Operator(item.OperatorID); ok {
			report.Operators[item.OperatorID] = op.DisplayName()
		}
	}
	return report
}
