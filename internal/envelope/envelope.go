// Package envelope defines the JSON response body shared by every API
// endpoint and the closed set of status codes each endpoint may return.
package envelope

import "strconv"

type Envelope struct {
	Message    string `json:"message"`
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
}

// Status is implemented only by the endpoint status types in this package.
type Status interface {
	Code() int
	Message() string
	Success() bool
	Flow() string
	sealed()
}

func New(status Status, data any) *Envelope {
	if data == nil {
		data = map[string]any{}
	}
	return &Envelope{
		Message:    status.Message(),
		Success:    status.Success(),
		StatusCode: status.Code(),
		Data:       data,
	}
}

// Label is the metrics label for a status.
func Label(status Status) string {
	return strconv.Itoa(status.Code())
}

type messages []string

func (m messages) at(code int) (int, string) {
	if code <= 0 || code >= len(m) {
		return 0, m[0]
	}
	return code, m[code]
}
