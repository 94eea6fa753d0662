package application

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrResponseCommitted is returned when a second response write is attempted
var ErrResponseCommitted = errors.New("response already committed")

// ResponseState wraps an http.ResponseWriter and remembers whether the
// status line has been sent. Handlers check Committed before writing errors.
type ResponseState struct {
	w         http.ResponseWriter
	committed bool
	status    int
}

var _ http.ResponseWriter = (*ResponseState)(nil)

// NewResponseState wraps w
func NewResponseState(w http.ResponseWriter) *ResponseState {
	return &ResponseState{w: w}
}

func (rs *ResponseState) Header() http.Header {
	return rs.w.Header()
}

func (rs *ResponseState) WriteHeader(status int) {
	if rs.committed {
		return
	}
	rs.committed = true
	rs.status = status
	rs.w.WriteHeader(status)
}

func (rs *ResponseState) Write(b []byte) (int, error) {
	if !rs.committed {
		rs.WriteHeader(http.StatusOK)
	}
	return rs.w.Write(b)
}

// Committed reports whether a status has been written
func (rs *ResponseState) Committed() bool {
	return rs.committed
}

// Status returns the written status, or 0 when nothing was written
func (rs *ResponseState) Status() int {
	return rs.status
}

// Redirect sends a 302 to location
func (rs *ResponseState) Redirect(r *http.Request, location string) error {
	if rs.committed {
		return ErrResponseCommitted
	}
	http.Redirect(rs, r, location, http.StatusFound)
	return nil
}

// JSON writes v with the given status
func (rs *ResponseState) JSON(status int, v interface{}) error {
	if rs.committed {
		return ErrResponseCommitted
	}
	rs.Header().Set("Content-Type", "application/json")
	rs.WriteHeader(status)
	return json.NewEncoder(rs).Encode(v)
}
