package web

import "github.com/pdiddy/heic-converter/pkg/types"

type convertResponse struct {
	Success        bool                  `json:"success"`
	SessionID      string                `json:"session_id"`
	Converted      []types.ConvertedFile `json:"converted"`
	Failed         []types.FailedFile    `json:"failed"`
	TotalConverted int                   `json:"total_converted"`
	TotalFailed    int                   `json:"total_failed"`
}

type cleanupResponse struct {
	Success bool `json:"success"`
}

type errorResponse struct {
	Error  string             `json:"error"`
	Failed []types.FailedFile `json:"failed,omitempty"`
}
