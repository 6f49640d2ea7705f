package cybersource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/cybersource-plugin/internal/domain"
	"github.com/kevin07696/cybersource-plugin/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestReportAdapter(t *testing.T, url string, retries int) *reportAdapter {
	t.Helper()
	api, err := NewReportAdapter(ReportConfig{
		MerchantID:         "merchant_1",
		Username:           "report_user",
		Password:           "report_pass",
		TestURL:            url,
		Test:               true,
		MaxRetries:         retries,
		CheckForDuplicates: true,
	}, &http.Client{Timeout: time.Second}, zap.NewNop())
	require.NoError(t, err)

	a := api.(*reportAdapter)
	a.backoff = &resilience.FixedBackoff{Delay: time.Millisecond}
	return a
}

func TestNewReportAdapter_RequiresAccount(t *testing.T) {
	_, err := NewReportAdapter(ReportConfig{Username: "u"}, nil, zap.NewNop())
	assert.ErrorIs(t, err, domain.ErrGatewayNotConfigured)
}

func TestReportAdapter_FetchReport_Found(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "report_user", user)
		assert.Equal(t, "report_pass", pass)

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "merchant_1", r.PostForm.Get("merchantID"))
		assert.Equal(t, "33038191", r.PostForm.Get("merchantReferenceNumber"))
		assert.Equal(t, "20260102", r.PostForm.Get("targetDate"))
		assert.Equal(t, "transaction", r.PostForm.Get("type"))
		assert.Equal(t, "transactionDetail", r.PostForm.Get("subtype"))
		assert.Equal(t, "1.7", r.PostForm.Get("versionNumber"))

		_, _ = w.Write([]byte(singleReplyReport))
	}))
	defer server.Close()

	a := newTestReportAdapter(t, server.URL, 0)

	// 2026-01-02 03:00 in UTC, still the 1st in New York
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	date := time.Date(2026, 1, 1, 22, 0, 0, 0, loc)

	outcome := a.FetchReport(context.Background(), "33038191", date)
	require.Equal(t, domain.ReportFound, outcome.Kind)
	assert.True(t, outcome.Report.Success)
	assert.True(t, a.CheckForDuplicates())
}

func TestReportAdapter_FetchReport_Outcomes(t *testing.T) {
	tests := []struct {
		name      string
		retries   int
		responses []func(w http.ResponseWriter)
		wantKind  domain.ReportOutcomeKind
		wantCalls int32
	}{
		{
			name:    "empty report",
			retries: 2,
			responses: []func(w http.ResponseWriter){
				func(w http.ResponseWriter) {
					_, _ = w.Write([]byte(`<Report xmlns="https://ebc.cybersource.com/ebc/reports/dtd/tdr_1_7.dtd"><Requests></Requests></Report>`))
				},
			},
			wantKind:  domain.ReportEmpty,
			wantCalls: 1,
		},
		{
			name:    "5xx then success is retried",
			retries: 2,
			responses: []func(w http.ResponseWriter){
				func(w http.ResponseWriter) { w.WriteHeader(http.StatusServiceUnavailable) },
				func(w http.ResponseWriter) { _, _ = w.Write([]byte(singleReplyReport)) },
			},
			wantKind:  domain.ReportFound,
			wantCalls: 2,
		},
		{
			name:    "5xx exhausts retries",
			retries: 1,
			responses: []func(w http.ResponseWriter){
				func(w http.ResponseWriter) { w.WriteHeader(http.StatusBadGateway) },
			},
			wantKind:  domain.ReportUnavailable,
			wantCalls: 2,
		},
		{
			name:    "4xx is not retried",
			retries: 2,
			responses: []func(w http.ResponseWriter){
				func(w http.ResponseWriter) { w.WriteHeader(http.StatusUnauthorized) },
			},
			wantKind:  domain.ReportUnavailable,
			wantCalls: 1,
		},
		{
			name:    "unparseable body",
			retries: 2,
			responses: []func(w http.ResponseWriter){
				func(w http.ResponseWriter) { _, _ = w.Write([]byte("<html>maintenance</html>")) },
			},
			wantKind:  domain.ReportUnavailable,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := int(atomic.AddInt32(&calls, 1)) - 1
				if n >= len(tt.responses) {
					n = len(tt.responses) - 1
				}
				tt.responses[n](w)
			}))
			defer server.Close()

			a := newTestReportAdapter(t, server.URL, tt.retries)
			outcome := a.FetchReport(context.Background(), "order-1", time.Now())

			assert.Equal(t, tt.wantKind, outcome.Kind)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
			if tt.wantKind == domain.ReportUnavailable {
				assert.Error(t, outcome.Err)
			}
		})
	}
}

func TestReportAdapter_FetchReport_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	a := newTestReportAdapter(t, url, 1)
	outcome := a.FetchReport(context.Background(), "order-1", time.Now())

	assert.Equal(t, domain.ReportUnavailable, outcome.Kind)
	assert.ErrorIs(t, outcome.Err, domain.ErrReportUnavailable)
}

func TestReportConfig_ProxyURL(t *testing.T) {
	u, err := ReportConfig{}.proxyURL()
	require.NoError(t, err)
	assert.Nil(t, u)

	u, err = ReportConfig{ProxyAddress: "proxy.internal", ProxyPort: 3128, ProxyUser: "p", ProxyPassword: "s"}.proxyURL()
	require.NoError(t, err)
	assert.Equal(t, "http://p:s@proxy.internal:3128", u.String())
}

type stubReportSource struct {
	config *ReportConfig
	err    error
	calls  int
}

func (s *stubReportSource) ReportConfig(ctx context.Context, tenantID uuid.UUID) (*ReportConfig, error) {
	s.calls++
	return s.config, s.err
}

func TestReportProvider_ForTenant(t *testing.T) {
	tenantID := uuid.New()
	config := &ReportConfig{MerchantID: "m", Username: "u", Password: "p", CheckForDuplicates: true}

	t.Run("skip gateway disables lookups", func(t *testing.T) {
		source := &stubReportSource{config: config}
		provider := NewReportProvider(source, zap.NewNop())

		api, err := provider.ForTenant(context.Background(), tenantID, domain.Options{SkipGateway: true})
		require.NoError(t, err)
		assert.Nil(t, api)
		assert.Zero(t, source.calls)
	})

	t.Run("unconfigured tenant", func(t *testing.T) {
		provider := NewReportProvider(&stubReportSource{}, zap.NewNop())

		api, err := provider.ForTenant(context.Background(), tenantID, domain.Options{})
		require.NoError(t, err)
		assert.Nil(t, api)
	})

	t.Run("misconfigured tenant", func(t *testing.T) {
		provider := NewReportProvider(&stubReportSource{config: &ReportConfig{Username: "u"}}, zap.NewNop())

		api, err := provider.ForTenant(context.Background(), tenantID, domain.Options{})
		require.NoError(t, err)
		assert.Nil(t, api)
	})

	t.Run("source error", func(t *testing.T) {
		provider := NewReportProvider(&stubReportSource{err: assert.AnError}, zap.NewNop())

		_, err := provider.ForTenant(context.Background(), tenantID, domain.Options{})
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("client reused until config changes", func(t *testing.T) {
		source := &stubReportSource{config: config}
		provider := NewReportProvider(source, zap.NewNop())

		first, err := provider.ForTenant(context.Background(), tenantID, domain.Options{})
		require.NoError(t, err)
		require.NotNil(t, first)
		assert.True(t, first.CheckForDuplicates())

		second, err := provider.ForTenant(context.Background(), tenantID, domain.Options{})
		require.NoError(t, err)
		assert.Same(t, first, second)

		changed := *config
		changed.CheckForDuplicates = false
		source.config = &changed

		third, err := provider.ForTenant(context.Background(), tenantID, domain.Options{})
		require.NoError(t, err)
		assert.NotSame(t, first, third)
		assert.False(t, third.CheckForDuplicates())
	})
}
