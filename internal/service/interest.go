package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"debtster-collection/internal/clock"
	"debtster-collection/internal/domain"
	"debtster-collection/internal/interest"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type InterestRepository interface {
	ListRates(ctx context.Context, interestTypeID string) ([]domain.InterestRate, error)
	SaveVerdictInterest(ctx context.Context, vi *domain.VerdictInterest) error
}

type CaseStore interface {
	GetCase(ctx context.Context, id string) (*domain.CollectionCase, error)
	SaveCaseTotals(ctx context.Context, c *domain.CollectionCase) error
}

// StatementStorage stores a generated file and returns a URL to fetch it.
type StatementStorage interface {
	Put(ctx context.Context, fileName string, data []byte) (string, error)
}

var ErrInvalidRange = errors.New("calculation end is before the case due date")

type CaseInterest struct {
	Case     *domain.CollectionCase  `json:"-"`
	Interest *domain.VerdictInterest `json:"-"`
}

type InterestService struct {
	rates   InterestRepository
	cases   CaseStore
	storage StatementStorage
	clock   clock.Clock
}

func NewInterestService(rates InterestRepository, cases CaseStore, storage StatementStorage, clk clock.Clock) *InterestService {
	return &InterestService{rates: rates, cases: cases, storage: storage, clock: clk}
}

// Calculate runs the calculator on an ad-hoc schedule without persisting anything.
func (s *InterestService) Calculate(base decimal.Decimal, schedule []domain.InterestRate, start, end clock.Date) (domain.VerdictInterest, error) {
	return interest.Calculate(base, schedule, start, end)
}

func (s *InterestService) compute(ctx context.Context, caseID, interestTypeID string, end clock.Date) (*domain.CollectionCase, *domain.VerdictInterest, error) {
	c, err := s.cases.GetCase(ctx, caseID)
	if err != nil {
		return nil, nil, fmt.Errorf("load case %s: %w", caseID, err)
	}
	if end.IsZero() {
		end = s.clock.Today()
	}
	start := c.DueDate.AddDays(1)
	if start.After(end) {
		return nil, nil, ErrInvalidRange
	}

	schedule, err := s.rates.ListRates(ctx, interestTypeID)
	if err != nil {
		return nil, nil, fmt.Errorf("load rates %s: %w", interestTypeID, err)
	}

	vi, err := interest.Calculate(c.AmountOriginal, schedule, start, end)
	if err != nil {
		return nil, nil, err
	}
	vi.ID = uuid.NewString()
	vi.InterestTypeID = interestTypeID
	vi.CollectionCaseID = &c.ID
	vi.CreatedAt = s.clock.Now()

	return c, &vi, nil
}

// ComputeForCase calculates interest on the case's original amount from the
// day after its due date up to end, stores it and refreshes the case totals.
func (s *InterestService) ComputeForCase(ctx context.Context, caseID, interestTypeID string, end clock.Date) (*CaseInterest, error) {
	c, vi, err := s.compute(ctx, caseID, interestTypeID, end)
	if err != nil {
		return nil, err
	}

	if err := s.rates.SaveVerdictInterest(ctx, vi); err != nil {
		return nil, fmt.Errorf("save verdict interest: %w", err)
	}

	c.Recalculate(vi.TotalInterest)
	if err := s.cases.SaveCaseTotals(ctx, c); err != nil {
		return nil, fmt.Errorf("save case totals: %w", err)
	}

	return &CaseInterest{Case: c, Interest: vi}, nil
}

// ExportStatement renders the interest calculation of a case as an XLSX
// statement and returns its URL and file name.
func (s *InterestService) ExportStatement(ctx context.Context, caseID, interestTypeID string, end clock.Date) (string, string, error) {
	if s.storage == nil {
		return "", "", errors.New("statement storage not configured")
	}

	c, vi, err := s.compute(ctx, caseID, interestTypeID, end)
	if err != nil {
		return "", "", err
	}

	data, err := RenderStatement(c, vi)
	if err != nil {
		return "", "", fmt.Errorf("render statement: %w", err)
	}

	fileName := fmt.Sprintf("rente_%s_%s.xlsx", c.ID, s.clock.Now().Format("20060102_150405"))
	url, err := s.storage.Put(ctx, fileName, data)
	if err != nil {
		log.Printf("[INTEREST] store statement for case %s: %v", c.ID, err)
		return "", "", fmt.Errorf("store statement: %w", err)
	}
	return url, fileName, nil
}

type statementColumn struct {
	Header string
	Value  func(d domain.VerdictInterestDetail) any
}

var statementColumns = []statementColumn{
	{Header: "Periode", Value: func(d domain.VerdictInterestDetail) any { return d.Period }},
	{Header: "Van", Value: func(d domain.VerdictInterestDetail) any { return d.PeriodStart.String() }},
	{Header: "Tot en met", Value: func(d domain.VerdictInterestDetail) any { return d.PeriodEnd.String() }},
	{Header: "Dagen", Value: func(d domain.VerdictInterestDetail) any { return d.Days }},
	{Header: "Rente per jaar (%)", Value: func(d domain.VerdictInterestDetail) any { return d.AnnualRate.InexactFloat64() }},
	{Header: "Rente periode (%)", Value: func(d domain.VerdictInterestDetail) any { return d.ProportionalRate.InexactFloat64() }},
	{Header: "Hoofdsom", Value: func(d domain.VerdictInterestDetail) any { return d.BaseAmount.InexactFloat64() }},
	{Header: "Rente", Value: func(d domain.VerdictInterestDetail) any { return d.Interest.InexactFloat64() }},
	{Header: "Totaal", Value: func(d domain.VerdictInterestDetail) any { return d.Total.InexactFloat64() }},
}

// RenderStatement builds the XLSX workbook for a verdict interest calculation.
func RenderStatement(c *domain.CollectionCase, vi *domain.VerdictInterest) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := "Rente"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, err
	}
	_ = f.SetDocProps(&excelize.DocProperties{Creator: "debtster-collection", Title: "Renteberekening " + c.ID})

	_ = f.SetCellValue(sheet, "A1", "Dossier")
	_ = f.SetCellValue(sheet, "B1", c.ID)
	_ = f.SetCellValue(sheet, "A2", "Debiteur")
	_ = f.SetCellValue(sheet, "B2", c.Debtor.Name)
	_ = f.SetCellValue(sheet, "A3", "Berekening")
	_ = f.SetCellValue(sheet, "B3", vi.CalculationStart.String()+" t/m "+vi.CalculationEnd.String())

	headerRow := 5
	for i, col := range statementColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		_ = f.SetCellValue(sheet, cell, col.Header)
	}

	row := headerRow + 1
	for _, d := range vi.Details {
		for i, col := range statementColumns {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			_ = f.SetCellValue(sheet, cell, col.Value(d))
		}
		row++
	}

	labelCell, _ := excelize.CoordinatesToCellName(1, row)
	totalCell, _ := excelize.CoordinatesToCellName(8, row)
	_ = f.SetCellValue(sheet, labelCell, "Totaal rente")
	_ = f.SetCellValue(sheet, totalCell, vi.TotalInterest.InexactFloat64())

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
