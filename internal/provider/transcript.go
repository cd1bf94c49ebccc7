package provider

import (
	"encoding/json"
	"time"
)

type transcriptEntry struct {
	Time      string      `json:"time"`
	Operation string      `json:"op"`
	Request   interface{} `json:"request,omitempty"`
	Response  interface{} `json:"response,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// Transcript renders one request/response exchange as a single JSON line for
// the operation log. Values that cannot be marshalled are rendered as an
// error entry rather than dropped; the log must always receive evidence.
func Transcript(op string, req, resp interface{}, err error) string {
	e := transcriptEntry{
		Time:      time.Now().UTC().Format(time.RFC3339),
		Operation: op,
		Request:   req,
		Response:  resp,
	}
	if err != nil {
		e.Error = err.Error()
	}
	b, merr := json.Marshal(e)
	if merr != nil {
		b, _ = json.Marshal(transcriptEntry{
			Time:      e.Time,
			Operation: op,
			Error:     "transcript marshal: " + merr.Error(),
		})
	}
	return string(b)
}
