package sheets

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/musiqhub/internal/common"
	"github.com/Veraticus/musiqhub/internal/model"
	"github.com/Veraticus/musiqhub/internal/report"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/sheets/v4"
)

type fakeAPI struct {
	spreadsheet  *sheets.Spreadsheet
	values       map[string][][]any
	cleared      []string
	updates      []string
	batches      []*sheets.BatchUpdateSpreadsheetRequest
	created      *sheets.Spreadsheet
	failUpdates  int
	getValuesErr error
}

func newFakeAPI(tabs ...string) *fakeAPI {
	f := &fakeAPI{
		spreadsheet: &sheets.Spreadsheet{SpreadsheetId: "sheet-1"},
		values:      map[string][][]any{},
	}
	for i, tab := range tabs {
		f.addTab(tab, int64(i))
	}
	return f
}

func (f *fakeAPI) addTab(title string, id int64) {
	f.spreadsheet.Sheets = append(f.spreadsheet.Sheets, &sheets.Sheet{
		Properties: &sheets.SheetProperties{Title: title, SheetId: id},
	})
}

func (f *fakeAPI) Get(_ context.Context, _ string) (*sheets.Spreadsheet, error) {
	return f.spreadsheet, nil
}

func (f *fakeAPI) Create(_ context.Context, s *sheets.Spreadsheet) (*sheets.Spreadsheet, error) {
	f.created = s
	s.SpreadsheetId = "new-sheet"
	for i, sh := range s.Sheets {
		sh.Properties.SheetId = int64(100 + i)
	}
	return s, nil
}

func (f *fakeAPI) BatchUpdate(_ context.Context, _ string, req *sheets.BatchUpdateSpreadsheetRequest) error {
	f.batches = append(f.batches, req)
	for _, r := range req.Requests {
		if r.AddSheet != nil {
			f.addTab(r.AddSheet.Properties.Title, int64(len(f.spreadsheet.Sheets)))
		}
	}
	return nil
}

func (f *fakeAPI) ClearValues(_ context.Context, _, rng string) error {
	f.cleared = append(f.cleared, rng)
	return nil
}

func (f *fakeAPI) UpdateValues(_ context.Context, _, rng string, values [][]any) error {
	if f.failUpdates > 0 {
		f.failUpdates--
		return &common.RetryableError{Err: errors.New("backend error"), Retryable: true}
	}
	f.updates = append(f.updates, rng)
	f.values[rng] = values
	return nil
}

func (f *fakeAPI) GetValues(_ context.Context, _, rng string) ([][]any, error) {
	if f.getValuesErr != nil {
		return nil, f.getValuesErr
	}
	return f.values[rng], nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SpreadsheetID = "sheet-1"
	cfg.RetryDelay = time.Millisecond
	return cfg
}

func testTables() []report.Table {
	return []report.Table{
		{
			Title:   "Profit By School",
			Columns: []string{"School", "Lessons", "Total Profit"},
			Kinds:   []report.Kind{report.KindText, report.KindCount, report.KindMoney},
			Rows: [][]string{
				{"St Mark's", "2", "27.83"},
				{"Total", "2", "27.83"},
			},
		},
	}
}

func testRun() *model.ReportRun {
	return &model.ReportRun{
		ID:              "run-1",
		CreatedAt:       time.Date(2024, 3, 31, 9, 0, 0, 0, time.UTC),
		Sources:         []string{"march.xlsx"},
		ZeroRateSchools: []string{"Nowhere Academy"},
		Lessons:         2,
		TotalBilled:     decimal.RequireFromString("55"),
		TotalProfit:     decimal.RequireFromString("27.83"),
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		modify  func(*Config)
		name    string
		wantErr bool
	}{
		{name: "no auth", modify: func(*Config) {}, wantErr: true},
		{name: "service account", modify: func(c *Config) { c.ServiceAccountPath = "/tmp/key.json" }},
		{name: "oauth", modify: func(c *Config) {
			c.ClientID, c.ClientSecret, c.RefreshToken = "id", "secret", "refresh"
		}},
		{name: "both", modify: func(c *Config) {
			c.ClientID, c.ClientSecret, c.RefreshToken = "id", "secret", "refresh"
			c.ServiceAccountPath = "/tmp/key.json"
		}, wantErr: true},
		{name: "zero batch", modify: func(c *Config) {
			c.ServiceAccountPath = "/tmp/key.json"
			c.BatchSize = 0
		}, wantErr: true},
		{name: "negative retry delay", modify: func(c *Config) {
			c.ServiceAccountPath = "/tmp/key.json"
			c.RetryDelay = -time.Second
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.True(t, cfg.HasAuth())
		})
	}
}

func TestWriter_WritesEveryTab(t *testing.T) {
	api := newFakeAPI(SummaryTab)
	w := NewWriterWithAPI(api, testConfig(), nil)

	require.NoError(t, w.Write(context.Background(), testTables(), testRun()))

	// The missing report tab is added before writing.
	require.NotEmpty(t, api.batches)
	require.NotNil(t, api.batches[0].Requests[0].AddSheet)
	assert.Equal(t, "Profit By School", api.batches[0].Requests[0].AddSheet.Properties.Title)

	assert.Equal(t, []string{"'Run Summary'!A:Z", "'Profit By School'!A:Z"}, api.cleared)

	got := api.values["'Profit By School'!A1"]
	require.Len(t, got, 3)
	assert.Equal(t, []any{"School", "Lessons", "Total Profit"}, got[0])
	assert.Equal(t, []any{"Total", "2", "27.83"}, got[2])

	summary := api.values["'Run Summary'!A1"]
	assert.Contains(t, summary, []any{"Run", "run-1"})
	assert.Contains(t, summary, []any{"Schools without a room rate", "Nowhere Academy"})
}

func TestWriter_FormatsMoneyAndTotals(t *testing.T) {
	api := newFakeAPI(SummaryTab, "Profit By School")
	w := NewWriterWithAPI(api, testConfig(), nil)

	require.NoError(t, w.Write(context.Background(), testTables(), testRun()))
	require.Len(t, api.batches, 1, "no tabs to add, only formatting")

	var boldRanges [][2]int64
	var moneyCols []int64
	frozen := false
	for _, r := range api.batches[0].Requests {
		switch {
		case r.RepeatCell != nil && r.RepeatCell.Cell.UserEnteredFormat.TextFormat != nil:
			boldRanges = append(boldRanges, [2]int64{r.RepeatCell.Range.StartRowIndex, r.RepeatCell.Range.EndRowIndex})
		case r.RepeatCell != nil && r.RepeatCell.Cell.UserEnteredFormat.NumberFormat != nil:
			moneyCols = append(moneyCols, r.RepeatCell.Range.StartColumnIndex)
		case r.UpdateSheetProperties != nil:
			frozen = r.UpdateSheetProperties.Properties.GridProperties.FrozenRowCount == 1
		}
	}

	assert.Equal(t, [][2]int64{{0, 1}, {2, 3}}, boldRanges)
	assert.Equal(t, []int64{2}, moneyCols)
	assert.True(t, frozen)
}

func TestWriter_CreatesSpreadsheet(t *testing.T) {
	api := newFakeAPI()
	cfg := testConfig()
	cfg.SpreadsheetID = ""
	cfg.EnableFormatting = false
	w := NewWriterWithAPI(api, cfg, nil)

	require.NoError(t, w.Write(context.Background(), testTables(), nil))

	require.NotNil(t, api.created)
	assert.Equal(t, DefaultSpreadsheetName, api.created.Properties.Title)
	assert.Equal(t, "Pacific/Auckland", api.created.Properties.TimeZone)
	require.Len(t, api.created.Sheets, 2)
	assert.Empty(t, api.batches)
	assert.Equal(t, [][]any{{"No run information"}}, api.values["'Run Summary'!A1"])
}

func TestWriter_BatchesAndRetries(t *testing.T) {
	api := newFakeAPI(SummaryTab, "Profit By School")
	api.failUpdates = 1
	cfg := testConfig()
	cfg.BatchSize = 2
	cfg.EnableFormatting = false
	w := NewWriterWithAPI(api, cfg, nil)

	require.NoError(t, w.Write(context.Background(), testTables(), testRun()))

	assert.Contains(t, api.updates, "'Profit By School'!A1")
	assert.Contains(t, api.updates, "'Profit By School'!A3")
}

func TestReader_Fetch(t *testing.T) {
	api := newFakeAPI("Lessons March")
	api.values["'Lessons March'"] = [][]any{
		{"Event Date", "Teacher"},
		{"2024-03-04", "Jordan Morrison"},
	}
	api.values["Sheet2!A:J"] = [][]any{{"x", 12.5}}

	r := NewReaderWithAPI(api, testConfig(), nil)
	ctx := context.Background()

	grid, err := r.Fetch(ctx, "sheet-1", "")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Event Date", "Teacher"}, {"2024-03-04", "Jordan Morrison"}}, grid)

	grid, err = r.Fetch(ctx, "sheet-1", "Sheet2!A:J")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"x", "12.5"}}, grid)

	_, err = r.Fetch(ctx, "", "")
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestReader_PermanentErrorStopsRetrying(t *testing.T) {
	api := newFakeAPI("Tab")
	api.getValuesErr = classify(&googleapi.Error{Code: http.StatusForbidden})
	r := NewReaderWithAPI(api, testConfig(), nil)

	_, err := r.Fetch(context.Background(), "sheet-1", "Tab!A:J")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrMaxRetries)
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))
	assert.ErrorIs(t, classify(&googleapi.Error{Code: http.StatusTooManyRequests}), common.ErrRateLimit)
	assert.True(t, common.IsRetryable(classify(&googleapi.Error{Code: http.StatusBadGateway})))
	assert.False(t, common.IsRetryable(classify(&googleapi.Error{Code: http.StatusNotFound})))

	plain := errors.New("dial tcp: timeout")
	assert.Equal(t, plain, classify(plain))
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "'Profit By School'", quote("Profit By School"))
	assert.Equal(t, "'Tutor''s Fees'", quote("Tutor's Fees"))
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer",
		Expiry: time.Now().Add(time.Hour).Truncate(time.Second)}

	require.NoError(t, saveToken(path, token))

	got, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "refresh", got.RefreshToken)
	assert.True(t, got.Valid())

	// A valid saved token is reused without any network flow.
	reused, err := GetOrCreateToken(context.Background(), OAuthOptions{TokenFile: path})
	require.NoError(t, err)
	assert.Equal(t, "access", reused.AccessToken)
}
