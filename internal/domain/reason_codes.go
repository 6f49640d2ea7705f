package domain

import "strings"

// ReasonBucket groups gateway reason codes by the status a failure maps to.
type ReasonBucket string

const (
	BucketSuccess   ReasonBucket = "success"
	BucketError     ReasonBucket = "error"
	BucketCanceled  ReasonBucket = "canceled"
	BucketUndefined ReasonBucket = "undefined"
)

// ReasonCode describes one gateway reason code
type ReasonCode struct {
	Code    string
	Message string
	Bucket  ReasonBucket
}

// ReasonCodeTable is an immutable code -> (message, bucket) lookup.
// Build it once with NewReasonCodeTable and share it.
type ReasonCodeTable struct {
	codes map[string]ReasonCode
}

// NewReasonCodeTable copies codes into a new table
func NewReasonCodeTable(codes []ReasonCode) *ReasonCodeTable {
	t := &ReasonCodeTable{codes: make(map[string]ReasonCode, len(codes))}
	for _, c := range codes {
		t.codes[c.Code] = c
	}
	return t
}

// Lookup returns the entry for code
func (t *ReasonCodeTable) Lookup(code string) (ReasonCode, bool) {
	if t == nil {
		return ReasonCode{}, false
	}
	c, ok := t.codes[strings.TrimSpace(code)]
	return c, ok
}

// Message returns the human message for code, if the table has one
func (t *ReasonCodeTable) Message(code string) (string, bool) {
	c, ok := t.Lookup(code)
	if !ok || c.Message == "" {
		return "", false
	}
	return c.Message, true
}

// Bucket returns the bucket for a non-success code. Unknown non-blank codes are errors.
func (t *ReasonCodeTable) Bucket(code string) ReasonBucket {
	if c, ok := t.Lookup(code); ok && c.Bucket != "" {
		return c.Bucket
	}
	return BucketError
}

// Codes returns a copy of every entry in the table
func (t *ReasonCodeTable) Codes() []ReasonCode {
	out := make([]ReasonCode, 0, len(t.codes))
	for _, c := range t.codes {
		out = append(out, c)
	}
	return out
}
