package models

import "time"

// AnalysisRequest is one user request, start and end are inclusive calendar dates
type AnalysisRequest struct {
	Symbols      []string  `json:"symbols"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	RiskFreeRate float64   `json:"riskFreeRate"`
}
