package analysis_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/taxres/internal/analysis"
	"github.com/MrJamesThe3rd/taxres/internal/csed"
	"github.com/MrJamesThe3rd/taxres/internal/resolution"
	"github.com/MrJamesThe3rd/taxres/internal/rules"
	"github.com/MrJamesThe3rd/taxres/internal/tax"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

type fixture struct {
	c        *tax.Case
	filed    tax.TaxYear
	unfiled  tax.TaxYear
	asOf     time.Time
	ruleSet  *rules.Set
	finances *resolution.Financials
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	set, err := rules.Defaults()
	require.NoError(t, err)

	caseID := uuid.New()
	filedOn := date(2024, 4, 15)

	return fixture{
		c: &tax.Case{ID: caseID, CaseNumber: "1295022", PrimaryID: "tp", Location: tax.Location{State: "TX", County: "Harris"}},
		filed: tax.TaxYear{
			ID: uuid.New(), CaseID: caseID, Year: 2023, FilingStatus: tax.FilingSingle,
			ReturnFiled: true, ReturnFiledDate: &filedOn,
		},
		unfiled: tax.TaxYear{ID: uuid.New(), CaseID: caseID, Year: 2024, FilingStatus: tax.FilingSingle},
		asOf:    date(2025, 1, 15),
		ruleSet: set,
		finances: &resolution.Financials{
			MonthlyIncome: dec("5000"),
			HouseholdSize: 1,
			Expenses:      []resolution.Expense{{Category: "rent", Actual: dec("3000"), NoStandard: true}},
		},
	}
}

func (f fixture) expectYears(m *analysis.MockRepository) {
	m.EXPECT().GetCase(gomock.Any(), f.c.ID).Return(f.c, nil)
	m.EXPECT().ListTaxYears(gomock.Any(), f.c.ID).Return([]tax.TaxYear{f.filed, f.unfiled}, nil)

	m.EXPECT().ListTransactions(gomock.Any(), f.filed.ID).Return([]tax.AccountTransaction{
		{Code: "150", Date: date(2024, 5, 20), Amount: dec("5000"), Explanation: "Tax return filed"},
		{Code: "670", Date: date(2024, 8, 1), Amount: dec("-1000"), Explanation: "Payment"},
	}, nil)
	m.EXPECT().ListTollingEvents(gomock.Any(), f.filed.ID).Return(nil, nil)
	m.EXPECT().ListIncomeDocuments(gomock.Any(), f.filed.ID).Return(nil, nil)
}

func (f fixture) expectUnfiled(m *analysis.MockRepository) {
	m.EXPECT().ListTransactions(gomock.Any(), f.unfiled.ID).Return(nil, nil)
	m.EXPECT().ListTollingEvents(gomock.Any(), f.unfiled.ID).Return(nil, nil)
	m.EXPECT().ListIncomeDocuments(gomock.Any(), f.unfiled.ID).Return([]tax.IncomeDocument{
		{FormType: "W-2", Gross: dec("60000"), Withheld: dec("2000"), RecipientID: "tp"},
	}, nil)
}

func TestService_Analyze(t *testing.T) {
	f := newFixture(t)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := analysis.NewMockRepository(ctrl)
	f.expectYears(repo)
	f.expectUnfiled(repo)
	repo.EXPECT().GetFinancials(gomock.Any(), f.c.ID).Return(f.finances, nil)

	svc := analysis.NewService(repo, f.ruleSet, 2)

	got, err := svc.Analyze(context.Background(), f.c.ID, f.asOf)
	require.NoError(t, err)
	require.Len(t, got.Years, 2)
	assert.Empty(t, got.Failed())

	filed := got.Years[0]
	assertDec(t, "4000", filed.Balance)
	assertDec(t, "4000", filed.Debt)
	assert.Nil(t, filed.Projection)

	unfiled := got.Years[1]
	require.NotNil(t, unfiled.Projection)
	// 1160 + (45400 − 11600) × 0.12 − 2000
	assertDec(t, "3216", unfiled.Projection.Balance)
	assertDec(t, "3216", unfiled.Debt)
	assert.Equal(t, csed.StateUndefined, unfiled.CSED.Final.State())

	assertDec(t, "7216", got.TotalDebt)
	assert.Equal(t, "2034-04-15", got.BindingCSED.String())

	require.NotNil(t, got.Resolution)
	ia := got.Resolution.InstallmentAgreement
	require.NotNil(t, ia.PayoffMonths)
	assert.Equal(t, 4, *ia.PayoffMonths)
	assert.True(t, ia.Eligible)
	assertDec(t, "7216", got.Resolution.TotalDebt)
}

func TestService_Analyze_YearFailureIsScoped(t *testing.T) {
	f := newFixture(t)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := analysis.NewMockRepository(ctrl)
	f.expectYears(repo)
	repo.EXPECT().ListTransactions(gomock.Any(), f.unfiled.ID).Return(nil, nil)
	repo.EXPECT().ListTollingEvents(gomock.Any(), f.unfiled.ID).Return(nil, nil)
	repo.EXPECT().ListIncomeDocuments(gomock.Any(), f.unfiled.ID).Return([]tax.IncomeDocument{
		{FormType: "W-2", Gross: dec("60000"), RecipientID: "stranger"},
	}, nil)
	repo.EXPECT().GetFinancials(gomock.Any(), f.c.ID).Return(f.finances, nil)

	svc := analysis.NewService(repo, f.ruleSet, 0)

	got, err := svc.Analyze(context.Background(), f.c.ID, f.asOf)
	require.NoError(t, err)

	failed := got.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, 2024, failed[0].TaxYear.Year)
	assert.ErrorIs(t, failed[0].Err, tax.ErrInvalidInput)
	assert.NotEmpty(t, failed[0].Error)

	assertDec(t, "4000", got.TotalDebt)
	assert.Nil(t, got.Resolution)
	assert.Contains(t, got.ResolutionError, "2024")
}

func TestService_Analyze_OpenStatute(t *testing.T) {
	f := newFixture(t)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := analysis.NewMockRepository(ctrl)
	repo.EXPECT().GetCase(gomock.Any(), f.c.ID).Return(f.c, nil)
	repo.EXPECT().ListTaxYears(gomock.Any(), f.c.ID).Return([]tax.TaxYear{f.filed}, nil)
	repo.EXPECT().ListTransactions(gomock.Any(), f.filed.ID).Return([]tax.AccountTransaction{
		{Code: "150", Date: date(2024, 5, 20), Amount: dec("5000")},
		{Code: "520", Date: date(2024, 9, 1)},
	}, nil)
	repo.EXPECT().ListTollingEvents(gomock.Any(), f.filed.ID).Return(nil, nil)
	repo.EXPECT().ListIncomeDocuments(gomock.Any(), f.filed.ID).Return(nil, nil)
	repo.EXPECT().GetFinancials(gomock.Any(), f.c.ID).Return(f.finances, nil)

	got, err := analysis.NewService(repo, f.ruleSet, 1).Analyze(context.Background(), f.c.ID, f.asOf)
	require.NoError(t, err)

	assert.Equal(t, csed.StateOpen, got.BindingCSED.State())
	require.NotNil(t, got.Resolution)
	assert.Nil(t, got.Resolution.InstallmentAgreement.MonthsUntilCSED)
}

func TestService_Analyze_RepoErrors(t *testing.T) {
	type testCase struct {
		name      string
		setupMock func(m *analysis.MockRepository, f fixture)
		wantErr   error
	}

	dbErr := errors.New("db error")

	tests := []testCase{
		{
			name: "CaseNotFound",
			setupMock: func(m *analysis.MockRepository, f fixture) {
				m.EXPECT().GetCase(gomock.Any(), f.c.ID).Return(nil, tax.ErrNotFound)
			},
			wantErr: tax.ErrNotFound,
		},
		{
			name: "ListTaxYears",
			setupMock: func(m *analysis.MockRepository, f fixture) {
				m.EXPECT().GetCase(gomock.Any(), f.c.ID).Return(f.c, nil)
				m.EXPECT().ListTaxYears(gomock.Any(), f.c.ID).Return(nil, dbErr)
			},
			wantErr: dbErr,
		},
		{
			name: "GetFinancials",
			setupMock: func(m *analysis.MockRepository, f fixture) {
				m.EXPECT().GetCase(gomock.Any(), f.c.ID).Return(f.c, nil)
				m.EXPECT().ListTaxYears(gomock.Any(), f.c.ID).Return(nil, nil)
				m.EXPECT().GetFinancials(gomock.Any(), f.c.ID).Return(nil, dbErr)
			},
			wantErr: dbErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := analysis.NewMockRepository(ctrl)
			tt.setupMock(repo, f)

			_, err := analysis.NewService(repo, f.ruleSet, 1).Analyze(context.Background(), f.c.ID, f.asOf)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_AnalyzeBatch(t *testing.T) {
	f := newFixture(t)
	missing := uuid.New()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := analysis.NewMockRepository(ctrl)
	f.expectYears(repo)
	f.expectUnfiled(repo)
	repo.EXPECT().GetFinancials(gomock.Any(), f.c.ID).Return(nil, tax.ErrNotFound)
	repo.EXPECT().GetCase(gomock.Any(), missing).Return(nil, tax.ErrNotFound)

	results := analysis.NewService(repo, f.ruleSet, 2).AnalyzeBatch(context.Background(), []uuid.UUID{missing, f.c.ID}, f.asOf)
	require.Len(t, results, 2)

	assert.Equal(t, missing, results[0].CaseID)
	assert.ErrorIs(t, results[0].Err, tax.ErrNotFound)
	assert.Nil(t, results[0].Analysis)

	assert.Equal(t, f.c.ID, results[1].CaseID)
	require.NoError(t, results[1].Err)
	assertDec(t, "7216", results[1].Analysis.TotalDebt)
}

func TestService_Recompute(t *testing.T) {
	type testCase struct {
		name    string
		saveErr error
		wantErr bool
	}

	tests := []testCase{
		{name: "Success"},
		{name: "SaveError", saveErr: errors.New("db error"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := analysis.NewMockRepository(ctrl)
			f.expectYears(repo)
			f.expectUnfiled(repo)
			repo.EXPECT().GetFinancials(gomock.Any(), f.c.ID).Return(f.finances, nil)
			repo.EXPECT().
				SaveAnalysis(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, a *analysis.CaseAnalysis) error {
					assert.Len(t, a.Years, 2)
					assert.NotNil(t, a.Resolution)
					return tt.saveErr
				})

			got, err := analysis.NewService(repo, f.ruleSet, 2).Recompute(context.Background(), f.c.ID, f.asOf)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assertDec(t, "7216", got.TotalDebt)
		})
	}
}
