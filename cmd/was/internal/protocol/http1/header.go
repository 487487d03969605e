package http1

import "strings"

// HeaderType is one of the closed set of header names the server understands.
// Unrecognized request headers are dropped by the parser.
type HeaderType int

const (
	HeaderHost HeaderType = iota
	HeaderAccept
	HeaderAcceptLanguage
	HeaderAcceptEncoding
	HeaderIfModifiedSince
	HeaderIfNoneMatch
	HeaderUserAgent
	HeaderConnection
	HeaderContentType
	HeaderContentLength
	HeaderServer
	HeaderDate
	numHeaderTypes
)

var headerNames = [numHeaderTypes]string{
	HeaderHost:            "Host",
	HeaderAccept:          "Accept",
	HeaderAcceptLanguage:  "Accept-Language",
	HeaderAcceptEncoding:  "Accept-Encoding",
	HeaderIfModifiedSince: "If-Modified-Since",
	HeaderIfNoneMatch:     "If-None-Match",
	HeaderUserAgent:       "User-Agent",
	HeaderConnection:      "Connection",
	HeaderContentType:     "Content-Type",
	HeaderContentLength:   "Content-Length",
	HeaderServer:          "Server",
	HeaderDate:            "Date",
}

// responseHeaderOrder fixes the order headers are written in.
var responseHeaderOrder = []HeaderType{
	HeaderServer,
	HeaderDate,
	HeaderConnection,
	HeaderContentType,
	HeaderContentLength,
	HeaderHost,
	HeaderAccept,
	HeaderAcceptLanguage,
	HeaderAcceptEncoding,
	HeaderIfModifiedSince,
	HeaderIfNoneMatch,
	HeaderUserAgent,
}

// String returns the canonical header name.
func (h HeaderType) String() string {
	if h < 0 || h >= numHeaderTypes {
		return "Unknown"
	}
	return headerNames[h]
}

// ParseHeaderType matches name case-insensitively against the known headers.
func ParseHeaderType(name string) (HeaderType, bool) {
	for i, n := range headerNames {
		if strings.EqualFold(n, name) {
			return HeaderType(i), true
		}
	}
	return 0, false
}
