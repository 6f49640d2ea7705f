// Package encoding renders XML and JSON through pooled buffers.
package encoding

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"sync"
)

// maxPooledBuffer keeps outlier-sized buffers out of the pool
const maxPooledBuffer = 64 * 1024

var bufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// GetBuffer retrieves an empty buffer from the pool
func GetBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns a buffer to the pool
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() > maxPooledBuffer {
		return
	}
	buf.Reset()
	bufferPool.Put(buf)
}

// EncodeJSON encodes v as JSON followed by a newline
func EncodeJSON(v interface{}) ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if err := json.NewEncoder(buf).Encode(v); err != nil {
		return nil, err
	}
	return detach(buf), nil
}

// EncodeXML encodes v as an XML document, prefixed with the standard
// declaration when withHeader is set
func EncodeXML(v interface{}, withHeader bool) ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if withHeader {
		buf.WriteString(xml.Header)
	}
	if err := xml.NewEncoder(buf).Encode(v); err != nil {
		return nil, err
	}
	return detach(buf), nil
}

// detach copies the contents out before the buffer goes back to the pool
func detach(buf *bytes.Buffer) []byte {
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}
