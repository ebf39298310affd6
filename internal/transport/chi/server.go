package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/obstore/internal/domain"
	"github.com/kailas-cloud/obstore/internal/domain/access"
	"github.com/kailas-cloud/obstore/internal/domain/envelope"
	domobj "github.com/kailas-cloud/obstore/internal/domain/object"
	healthuc "github.com/kailas-cloud/obstore/internal/usecase/health"
	objectuc "github.com/kailas-cloud/obstore/internal/usecase/object"
)

// BasePath prefixes every object route.
const BasePath = "/api/observability/v1"

const maxBodyBytes = 1 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the observability object REST API.
type Server struct {
	objects       *objectuc.Service
	health        *healthuc.Service
	codec         *envelope.Codec
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	objects *objectuc.Service,
	health *healthuc.Service,
	codec *envelope.Codec,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		objects: objects,
		health:  health,
		codec:   codec,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrForbidden, http.StatusForbidden, CodeForbidden),
		sentinelHandler(domain.ErrInvalidRangeFormat, http.StatusNotAcceptable, CodeNotAcceptable),
		sentinelHandler(domain.ErrUnacceptableFilterField, http.StatusNotAcceptable, CodeNotAcceptable),
		sentinelHandler(domain.ErrUnacceptableSortField, http.StatusNotAcceptable, CodeNotAcceptable),
		sentinelHandler(domain.ErrMalformedRequest, http.StatusBadRequest, CodeBadRequest),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, CodeStoreUnavailable),
		sentinelHandler(domain.ErrTimeout, http.StatusGatewayTimeout, CodeTimeout),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route(BasePath, func(r chi.Router) {
		r.Post("/object", s.CreateObject)
		r.Get("/object", s.GetObjects)
		r.Delete("/object", s.DeleteObjects)
		r.Get("/object/{objectId}", s.GetObject)
		r.Put("/object/{objectId}", s.UpdateObject)
		r.Delete("/object/{objectId}", s.DeleteObject)
	})
}

// CreateObject handles POST /object.
func (s *Server) CreateObject(w http.ResponseWriter, r *http.Request) {
	obj, ok := s.readObject(w, r)
	if !ok {
		return
	}

	id, err := s.objects.Create(r.Context(), access.UserFromContext(r.Context()), obj)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ObjectIDResponse{ObjectID: id})
}

// UpdateObject handles PUT /object/{objectId}.
func (s *Server) UpdateObject(w http.ResponseWriter, r *http.Request) {
	id, err := bindObjectID(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	obj, ok := s.readObject(w, r)
	if !ok {
		return
	}

	if err := s.objects.Update(r.Context(), access.UserFromContext(r.Context()), id, obj); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ObjectIDResponse{ObjectID: id})
}

// GetObject handles GET /object/{objectId}.
func (s *Server) GetObject(w http.ResponseWriter, r *http.Request) {
	id, err := bindObjectID(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	user := access.UserFromContext(r.Context())
	info, err := s.objects.Get(r.Context(), user, id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.writeList(w, user, 0, 1, []envelope.DocInfo{info})
}

// GetObjects handles GET /object: by id list when objectIdList is given,
// otherwise a filtered listing.
func (s *Server) GetObjects(w http.ResponseWriter, r *http.Request) {
	params, err := bindListParams(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	user := access.UserFromContext(r.Context())

	if len(params.IDs) > 0 {
		infos, err := s.objects.GetMany(r.Context(), user, params.IDs)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		s.writeList(w, user, 0, len(infos), infos)
		return
	}

	req, err := params.toRequest(s.codec.Registry())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	page, err := s.objects.List(r.Context(), user, req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.writeList(w, user, page.Start, page.Total, page.Objects)
}

// DeleteObject handles DELETE /object/{objectId}.
func (s *Server) DeleteObject(w http.ResponseWriter, r *http.Request) {
	id, err := bindObjectID(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.deleteIDs(w, r, []string{id})
}

// DeleteObjects handles DELETE /object?objectIdList=a,b.
func (s *Server) DeleteObjects(w http.ResponseWriter, r *http.Request) {
	ids, err := bindIDList(r.URL.Query())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "objectIdList is required")
		return
	}
	s.deleteIDs(w, r, ids)
}

func (s *Server) deleteIDs(w http.ResponseWriter, r *http.Request, ids []string) {
	statuses, err := s.objects.Delete(r.Context(), access.UserFromContext(r.Context()), ids)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := DeleteResponse{DeleteResponseList: make(map[string]string, len(statuses))}
	for id, st := range statuses {
		resp.DeleteResponseList[id] = string(st)
	}
	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) readObject(w http.ResponseWriter, r *http.Request) (domobj.Object, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, CodeRequestEntityLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return domobj.Object{}, false
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return domobj.Object{}, false
	}

	obj, err := s.codec.ParseRequest(raw)
	if err != nil {
		s.handleDomainError(w, err)
		return domobj.Object{}, false
	}
	return obj, true
}

func (s *Server) writeList(w http.ResponseWriter, user *access.User, start, total int, infos []envelope.DocInfo) {
	includeAccess := s.objects.IncludeAccess(user)

	items := make([]json.RawMessage, 0, len(infos))
	for _, info := range infos {
		item, err := s.encodeItem(info, includeAccess)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		items = append(items, item)
	}

	writeJSON(w, http.StatusOK, ListResponse{
		StartIndex:       start,
		TotalHits:        total,
		TotalHitRelation: "eq",
		Objects:          items,
	})
}

func (s *Server) encodeItem(info envelope.DocInfo, includeAccess bool) (json.RawMessage, error) {
	payload, err := s.codec.EncodePayload(info.Doc.Object)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", info.ID, err)
	}

	item := map[string]any{
		"objectId":                info.ID,
		envelope.FieldUpdatedTime: info.Doc.UpdatedTime.UnixMilli(),
		envelope.FieldCreatedTime: info.Doc.CreatedTime.UnixMilli(),
		envelope.FieldTenant:      info.Doc.Tenant,
	}
	if includeAccess {
		item[envelope.FieldAccess] = info.Doc.Access
	}
	item[info.Doc.Object.Type().Tag()] = payload

	data, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", info.ID, err)
	}
	return data, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// Client errors echo the error text; server errors only name the sentinel.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := err.Error()
		if status >= http.StatusInternalServerError {
			msg = sentinel.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
