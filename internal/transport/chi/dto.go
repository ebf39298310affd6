package chi

import "encoding/json"

// ErrorCode is a machine-readable error identifier.
type ErrorCode string

// Error codes returned in ErrorResponse.
const (
	CodeBadRequest         ErrorCode = "bad_request"
	CodeUnauthorized       ErrorCode = "unauthorized"
	CodeForbidden          ErrorCode = "forbidden"
	CodeNotFound           ErrorCode = "not_found"
	CodeNotAcceptable      ErrorCode = "not_acceptable"
	CodeInternalError      ErrorCode = "internal_error"
	CodeStoreUnavailable   ErrorCode = "store_unavailable"
	CodeTimeout            ErrorCode = "timeout"
	CodeRequestEntityLarge ErrorCode = "request_entity_too_large"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ObjectIDResponse answers create and update.
type ObjectIDResponse struct {
	ObjectID string `json:"objectId"`
}

// ListResponse answers get-by-id, get-many and listing.
type ListResponse struct {
	StartIndex       int               `json:"startIndex"`
	TotalHits        int               `json:"totalHits"`
	TotalHitRelation string            `json:"totalHitRelation"`
	Objects          []json.RawMessage `json:"observabilityObjectList"`
}

// DeleteResponse reports the outcome of every requested id.
type DeleteResponse struct {
	DeleteResponseList map[string]string `json:"deleteResponseList"`
}

// HealthResponse answers GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
