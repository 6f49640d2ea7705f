package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTimeoutConfig(t *testing.T) {
	tc := DefaultTimeoutConfig()

	assert.Equal(t, 120*time.Second, tc.Operation)
	assert.Equal(t, 15*time.Second, tc.Lookup)
	assert.Less(t, tc.Lookup, tc.Operation)
}

func TestTimeoutConfig_WithDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   TimeoutConfig
		want TimeoutConfig
	}{
		{"zero", TimeoutConfig{}, DefaultTimeoutConfig()},
		{"negative", TimeoutConfig{Operation: -1, Lookup: -1}, DefaultTimeoutConfig()},
		{"operation set", TimeoutConfig{Operation: time.Second}, TimeoutConfig{Operation: time.Second, Lookup: 15 * time.Second}},
		{"both set", TimeoutConfig{Operation: time.Second, Lookup: time.Millisecond}, TimeoutConfig{Operation: time.Second, Lookup: time.Millisecond}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.WithDefaults())
		})
	}
}

func TestContextCreators(t *testing.T) {
	tc := TimeoutConfig{Operation: 4 * time.Second, Lookup: time.Second}

	tests := []struct {
		name    string
		create  func(context.Context) (context.Context, context.CancelFunc)
		timeout time.Duration
	}{
		{"operation", tc.OperationContext, tc.Operation},
		{"lookup", tc.LookupContext, tc.Lookup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			ctx, cancel := tt.create(context.Background())
			defer cancel()

			deadline, ok := ctx.Deadline()
			require.True(t, ok)
			assert.WithinDuration(t, start.Add(tt.timeout), deadline, 100*time.Millisecond)
		})
	}
}

func TestContextCreators_ParentDeadlineWins(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	ctx, cancelOp := DefaultTimeoutConfig().OperationContext(parent)
	defer cancelOp()

	parentDeadline, _ := parent.Deadline()
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.Equal(t, parentDeadline, deadline)
}
