// Package logger wraps http.ResponseWriter to record what a handler sent.
package logger

import "net/http"

type ResponseLogger struct {
	w       http.ResponseWriter
	status  int
	written int
	wrote   bool
}

func New(w http.ResponseWriter) *ResponseLogger {
	return &ResponseLogger{w: w, status: http.StatusOK}
}

// WriteHeader records the first status code; later calls are passed through
// so net/http can report them as superfluous.
func (l *ResponseLogger) WriteHeader(code int) {
	if !l.wrote {
		l.status = code
		l.wrote = true
	}
	l.w.WriteHeader(code)
}

func (l *ResponseLogger) Write(b []byte) (int, error) {
	l.wrote = true
	n, err := l.w.Write(b)
	l.written += n
	return n, err
}

func (l *ResponseLogger) Header() http.Header {
	return l.w.Header()
}

func (l *ResponseLogger) Status() int {
	return l.status
}

// Size returns the number of body bytes written.
func (l *ResponseLogger) Size() int {
	return l.written
}
