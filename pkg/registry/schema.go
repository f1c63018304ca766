package registry

// OperationRegistry describes every operation the gateway exposes.
type OperationRegistry struct {
	Version     string      `json:"version"`
	LastUpdated string      `json:"lastUpdated"`
	Operations  []Operation `json:"operations"`
}

// Operation is one HTTP route plus the contract it enforces at the boundary.
type Operation struct {
	ID           string                 `json:"id"`
	DisplayName  string                 `json:"displayName"`
	Description  string                 `json:"description"`
	Method       string                 `json:"method"`
	Path         string                 `json:"path"`
	ContentType  string                 `json:"contentType,omitempty"`
	InputSchema  map[string]interface{} `json:"inputSchema,omitempty"`
	OutputSchema map[string]interface{} `json:"outputSchema,omitempty"`
	ErrorCodes   []string               `json:"errorCodes"`
	Timeout      string                 `json:"timeout,omitempty"`
	Tags         []string               `json:"tags"`
}
