package cybersource

import "time"

const (
	soapTestURL = "https://ics2wstest.ic3.com/commerce/1.x/transactionProcessor"
	soapLiveURL = "https://ics2ws.ic3.com/commerce/1.x/transactionProcessor"

	reportTestURL = "https://ebctest.cybersource.com/ebctest/Query"
	reportLiveURL = "https://ebc.cybersource.com/ebc/Query"

	// Reports served from the test host carry this namespace prefix.
	reportTestNamespace = "https://ebctest.cybersource.com"

	xmlSchemaVersion = "1.121"
	userAgent        = "cybersource-plugin/1.0"
)

// SOAPConfig configures the SOAP transaction processor adapter
type SOAPConfig struct {
	// Endpoints; overridable for tests and regional hosts
	TestURL string
	LiveURL string

	// HTTP client timeout per attempt
	Timeout time.Duration

	// MaxRetries applies only to failures where the request never left this
	// process (dial errors). A request that reached the host is never resent.
	MaxRetries int

	UserAgent string
}

// DefaultSOAPConfig returns default configuration for the SOAP adapter
func DefaultSOAPConfig() *SOAPConfig {
	return &SOAPConfig{
		TestURL:    soapTestURL,
		LiveURL:    soapLiveURL,
		Timeout:    30 * time.Second,
		MaxRetries: 2,
		UserAgent:  userAgent,
	}
}

func (c *SOAPConfig) endpoint(test bool) string {
	if test {
		return c.TestURL
	}
	return c.LiveURL
}

// ReportConfig is the On-Demand reporting account of a tenant
type ReportConfig struct {
	MerchantID         string
	Username           string
	Password           string
	TestURL            string
	LiveURL            string
	ProxyAddress       string
	ProxyPort          int
	ProxyUser          string
	ProxyPassword      string
	OpenTimeout        time.Duration
	ReadTimeout        time.Duration
	MaxRetries         int
	Test               bool
	CheckForDuplicates bool
}

// withDefaults fills endpoints and timeouts left empty in tenant config
func (c ReportConfig) withDefaults() ReportConfig {
	if c.TestURL == "" {
		c.TestURL = reportTestURL
	}
	if c.LiveURL == "" {
		c.LiveURL = reportLiveURL
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 60 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}

func (c ReportConfig) endpoint() string {
	if c.Test {
		return c.TestURL
	}
	return c.LiveURL
}
