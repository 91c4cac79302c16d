package model

import "time"

type Endpoint struct {
	Method string `json:"method" yaml:"method"`
	URL    string `json:"url" yaml:"url"`
}

func (e Endpoint) String() string {
	if e.Method == "" || e.Method == "GET" {
		return e.URL
	}
	return e.Method + " " + e.URL
}

// Request is one queue item: produced once, consumed by exactly one worker.
type Request struct {
	ID         string    `json:"id"`
	Endpoint   Endpoint  `json:"endpoint"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

type Result struct {
	RequestID   string        `json:"request_id"`
	WorkerID    int           `json:"worker_id"`
	Method      string        `json:"method"`
	URL         string        `json:"url"`
	StatusCode  int           `json:"status_code"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration_ns"`
	Traced      bool          `json:"traced"`
	TraceParent string        `json:"traceparent,omitempty"`
	FinishedAt  time.Time     `json:"finished_at"`
}
