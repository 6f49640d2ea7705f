// Package fixtures provides ledger row builders and pointer helpers for tests.
package fixtures

// StringPtr returns a pointer to s, blank or not.
func StringPtr(s string) *string {
	return &s
}

// IntPtr returns a pointer to the given int.
func IntPtr(i int) *int {
	return &i
}

// Int64Ptr returns a pointer to the given int64.
func Int64Ptr(i int64) *int64 {
	return &i
}
