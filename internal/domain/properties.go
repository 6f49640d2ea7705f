package domain

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Recognized plugin property keys.
const (
	PropSkipGateway           = "skip_gw"
	PropBypassDuplicateCheck  = "bypass_duplicate_check"
	PropDisableAutoCredit     = "disable_auto_credit"
	PropAutoCreditThreshold   = "auto_credit_threshold"
	PropForceValidation       = "force_validation"
	PropForceValidationAmount = "force_validation_amount"
	PropOrderID               = "order_id"
	PropCancelThreshold       = "cancel_threshold"
	PropIgnoreAVS             = "ignore_avs"
	PropIgnoreCVV             = "ignore_cvv"
	PropEmail                 = "email"
	PropPaymentProcessorID    = "payment_processor_account_id"
	PropCommerceIndicator     = "commerce_indicator"
	PropToken                 = "token"
)

// PluginProperty is one key/value pair supplied by the billing platform.
type PluginProperty struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Properties is the ordered property bag. Later entries win.
type Properties []PluginProperty

// Get returns the last non-blank value for key.
func (p Properties) Get(key string) (string, bool) {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i].Key == key && strings.TrimSpace(p[i].Value) != "" {
			return strings.TrimSpace(p[i].Value), true
		}
	}
	return "", false
}

// With returns a copy of p with key set to value.
func (p Properties) With(key, value string) Properties {
	out := make(Properties, 0, len(p)+1)
	for _, prop := range p {
		if prop.Key != key {
			out = append(out, prop)
		}
	}
	return append(out, PluginProperty{Key: key, Value: value})
}

// Options is the typed view of the property bag, parsed once per call.
type Options struct {
	AutoCreditThreshold       *time.Duration
	CancelThreshold           *time.Duration
	ForceValidationAmount     decimal.Decimal
	OrderID                   string
	Email                     string
	PaymentProcessorAccountID string
	CommerceIndicator         string
	Token                     string
	SkipGateway               bool
	BypassDuplicateCheck      bool
	DisableAutoCredit         bool
	ForceValidation           bool
	IgnoreAVS                 bool
	IgnoreCVV                 bool
}

// DefaultPaymentProcessorAccountID is used when no account is named.
const DefaultPaymentProcessorAccountID = "default"

// ParseOptions validates the recognized keys of props. Unknown keys are ignored.
func ParseOptions(props Properties) (Options, error) {
	opts := Options{
		ForceValidationAmount:     decimal.NewFromInt(1),
		PaymentProcessorAccountID: DefaultPaymentProcessorAccountID,
	}

	var err error
	bools := []struct {
		key string
		dst *bool
	}{
		{PropSkipGateway, &opts.SkipGateway},
		{PropBypassDuplicateCheck, &opts.BypassDuplicateCheck},
		{PropDisableAutoCredit, &opts.DisableAutoCredit},
		{PropForceValidation, &opts.ForceValidation},
		{PropIgnoreAVS, &opts.IgnoreAVS},
		{PropIgnoreCVV, &opts.IgnoreCVV},
	}
	for _, b := range bools {
		if *b.dst, err = parseBool(props, b.key); err != nil {
			return Options{}, err
		}
	}

	if opts.AutoCreditThreshold, err = parseSeconds(props, PropAutoCreditThreshold); err != nil {
		return Options{}, err
	}
	if opts.CancelThreshold, err = parseSeconds(props, PropCancelThreshold); err != nil {
		return Options{}, err
	}

	if v, ok := props.Get(PropForceValidationAmount); ok {
		amount, err := decimal.NewFromString(v)
		if err != nil || amount.IsNegative() {
			return Options{}, ErrInvalidProperty.WithDetail("key", PropForceValidationAmount).WithDetail("value", v)
		}
		opts.ForceValidationAmount = amount
	}

	opts.OrderID, _ = props.Get(PropOrderID)
	opts.Email, _ = props.Get(PropEmail)
	opts.CommerceIndicator, _ = props.Get(PropCommerceIndicator)
	opts.Token, _ = props.Get(PropToken)
	if v, ok := props.Get(PropPaymentProcessorID); ok {
		opts.PaymentProcessorAccountID = v
	}

	return opts, nil
}

func parseBool(props Properties, key string) (bool, error) {
	v, ok := props.Get(key)
	if !ok {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, ErrInvalidProperty.WithDetail("key", key).WithDetail("value", v)
	}
	return b, nil
}

// maxThresholdSeconds is the largest second count a time.Duration can hold
const maxThresholdSeconds = math.MaxInt64 / int64(time.Second)

func parseSeconds(props Properties, key string) (*time.Duration, error) {
	v, ok := props.Get(key)
	if !ok {
		return nil, nil
	}
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil || secs < 0 || secs > maxThresholdSeconds {
		return nil, ErrInvalidProperty.WithDetail("key", key).WithDetail("value", v)
	}
	d := time.Duration(secs) * time.Second
	return &d, nil
}
