package models

import "time"

type Issue struct {
	ID         int64      `json:"id"`
	Created    time.Time  `json:"created"`
	Updated    time.Time  `json:"updated"`
	Resolved   *time.Time `json:"resolved"`
	ResourceID int64      `json:"resourceId"`
	URL        string     `json:"url"`
	IssueType  string     `json:"issueType"`
	Message    string     `json:"message"`
}

type Alert struct {
	ID           int64     `json:"-"`
	Created      time.Time `json:"created"`
	Updated      time.Time `json:"updated"`
	ResourceID   int64     `json:"-"`
	ScanResultID *int64    `json:"-"`
	Type         string    `json:"type"`
	URL          string    `json:"url"`
	Message      string    `json:"message"`
}
