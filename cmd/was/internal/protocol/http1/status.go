package http1

import "strconv"

// Status is an HTTP response status code understood by the server.
type Status int

const (
	StatusOK                  Status = 200
	StatusForbidden           Status = 403
	StatusNotFound            Status = 404
	StatusPreconditionFailed  Status = 412
	StatusInternalServerError Status = 500
)

var reasons = map[Status]string{
	StatusOK:                  "OK",
	StatusForbidden:           "Forbidden",
	StatusNotFound:            "Not Found",
	StatusPreconditionFailed:  "Precondition Failed",
	StatusInternalServerError: "Internal Server Error",
}

// Code returns the numeric status code.
func (s Status) Code() int {
	return int(s)
}

// Reason returns the reason phrase, or "Unknown" for codes outside the supported set.
func (s Status) Reason() string {
	if r, ok := reasons[s]; ok {
		return r
	}
	return "Unknown"
}

// String renders "CODE REASON", the form used in the status line.
func (s Status) String() string {
	return strconv.Itoa(int(s)) + " " + s.Reason()
}
