package models

import (
	"encoding/json"
	"time"
)

// ScanResult is one probe of a resource. Rows are written by the scanner, never by the API.
type ScanResult struct {
	ID               int64     `json:"-"`
	Created          time.Time `json:"created"`
	Updated          time.Time `json:"updated"`
	ResourceID       int64     `json:"-"`
	URL              string    `json:"-"`
	StatusCode       *int      `json:"statusCode"`
	SSLErrorCode     *string   `json:"sslErrorCode"`
	SSLErrorMessage  *string   `json:"sslErrorMessage"`
	ConnectingIP     *string   `json:"connectingIp"`
	ExceptionMessage *string   `json:"exceptionMessage"`
}

// GraphData holds the rendered graph points for a resource as a JSON array.
type GraphData struct {
	ID         int64
	ResourceID int64
	Points     []json.RawMessage
}
