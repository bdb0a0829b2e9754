package server

import (
	"bytes"
	"net/http"
)

// responseRecorder passes writes through to the client while keeping the
// status code and a copy of the body for the audit trail.
type responseRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func recordResponse(w http.ResponseWriter) *responseRecorder {
	return &responseRecorder{
		ResponseWriter: w,
		status:         http.StatusOK,
	}
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) Status() int {
	return r.status
}

func (r *responseRecorder) Body() []byte {
	return r.body.Bytes()
}
