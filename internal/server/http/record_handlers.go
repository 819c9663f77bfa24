package httpserver

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/helixir/catalog-search-service/internal/domain"
	"github.com/helixir/catalog-search-service/internal/observability"
	"github.com/helixir/catalog-search-service/internal/repository"
)

// recordRequest is the JSON body for creating or replacing a record.
type recordRequest struct {
	TypeName    string        `json:"type_name" validate:"required,max=100"`
	SubjectName string        `json:"subject_name" validate:"max=200"`
	Department  string        `json:"department" validate:"max=200"`
	Status      string        `json:"status" validate:"omitempty,oneof=draft published archived"`
	Detail      domain.Detail `json:"detail"`
}

func (req *recordRequest) apply(rec *domain.Record) {
	rec.TypeName = strings.TrimSpace(req.TypeName)
	rec.SubjectName = strings.TrimSpace(req.SubjectName)
	rec.Department = strings.TrimSpace(req.Department)
	rec.Detail = req.Detail
	rec.Detail.Title = strings.TrimSpace(rec.Detail.Title)
	if req.Status != "" {
		rec.Status = domain.RecordStatus(req.Status)
	}
}

// createRecord handles POST /records.
func (s *Server) createRecord(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Detail.Title) == "" {
		writeError(w, http.StatusBadRequest, "detail.title is required")
		return
	}

	ctx := r.Context()
	rec := &domain.Record{CreatedBy: observability.UserIDFromContext(ctx)}
	req.apply(rec)

	created, err := s.deps.Records.Create(ctx, rec)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.deps.Metrics.RecordRecordMutation("create")
	s.emit(r, domain.EventTypeRecordCreated, created)
	writeJSON(w, http.StatusCreated, domainRecordToResponse(created))
}

// getRecord handles GET /records/{recordID}.
func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, chi.URLParam(r, "recordID"), "record_id")
	if !ok {
		return
	}

	rec, err := s.deps.Records.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domainRecordToResponse(rec))
}

// updateRecord handles PUT /records/{recordID}.
func (s *Server) updateRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, chi.URLParam(r, "recordID"), "record_id")
	if !ok {
		return
	}
	var req recordRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Detail.Title) == "" {
		writeError(w, http.StatusBadRequest, "detail.title is required")
		return
	}

	ctx := r.Context()
	rec, err := s.deps.Records.Get(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	req.apply(rec)

	updated, err := s.deps.Records.Update(ctx, rec)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.deps.Metrics.RecordRecordMutation("update")
	s.emit(r, domain.EventTypeRecordUpdated, updated)
	writeJSON(w, http.StatusOK, domainRecordToResponse(updated))
}

// deleteRecord handles DELETE /records/{recordID}.
func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, chi.URLParam(r, "recordID"), "record_id")
	if !ok {
		return
	}

	ctx := r.Context()
	rec, err := s.deps.Records.Get(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.deps.Records.Delete(ctx, id); err != nil {
		writeDomainError(w, err)
		return
	}

	s.deps.Metrics.RecordRecordMutation("delete")
	s.emit(r, domain.EventTypeRecordDeleted, rec)
	w.WriteHeader(http.StatusNoContent)
}

// listRecords handles GET /records.
// Optional filters: status, type, subject, department, created_by.
func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaginationParams(r)
	q := r.URL.Query()

	filter := repository.RecordFilter{
		TypeName:    q.Get("type"),
		SubjectName: q.Get("subject"),
		Department:  q.Get("department"),
		CreatedBy:   q.Get("created_by"),
		Limit:       limit,
		Offset:      offset,
	}
	if statusParam := q.Get("status"); statusParam != "" {
		status := domain.RecordStatus(statusParam)
		filter.Status = &status
	}

	records, totalCount, err := s.deps.Records.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]recordResponse, len(records))
	for i, rec := range records {
		out[i] = domainRecordToResponse(rec)
	}

	writeJSON(w, http.StatusOK, listRecordsResponse{
		Records:       out,
		NextPageToken: encodeHTTPPageToken(offset, limit, int(totalCount)),
		TotalCount:    int(totalCount),
	})
}

func (s *Server) emit(r *http.Request, eventType string, rec *domain.Record) {
	if s.deps.Events == nil {
		return
	}
	s.deps.Events.Emit(r.Context(), eventType, rec, observability.UserIDFromContext(r.Context()))
}

type subjectRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

type contentTypeRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type departmentRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	University string `json:"university" validate:"max=200"`
}

// listSubjects handles GET /subjects.
func (s *Server) listSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := s.deps.Taxonomy.ListSubjects(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]subjectResponse, len(subjects))
	for i, sub := range subjects {
		out[i] = domainSubjectToResponse(sub)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"subjects": out})
}

// createSubject handles POST /subjects.
func (s *Server) createSubject(w http.ResponseWriter, r *http.Request) {
	var req subjectRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	created, err := s.deps.Taxonomy.CreateSubject(r.Context(), &domain.Subject{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, domainSubjectToResponse(created))
}

// listContentTypes handles GET /types.
func (s *Server) listContentTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.deps.Taxonomy.ListContentTypes(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]contentTypeResponse, len(types))
	for i, ct := range types {
		out[i] = domainContentTypeToResponse(ct)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"types": out})
}

// createContentType handles POST /types.
func (s *Server) createContentType(w http.ResponseWriter, r *http.Request) {
	var req contentTypeRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	created, err := s.deps.Taxonomy.CreateContentType(r.Context(), &domain.ContentType{Name: strings.TrimSpace(req.Name)})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, domainContentTypeToResponse(created))
}

// listDepartments handles GET /departments.
func (s *Server) listDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := s.deps.Taxonomy.ListDepartments(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]departmentResponse, len(departments))
	for i, d := range departments {
		out[i] = domainDepartmentToResponse(d)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"departments": out})
}

// createDepartment handles POST /departments.
func (s *Server) createDepartment(w http.ResponseWriter, r *http.Request) {
	var req departmentRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	created, err := s.deps.Taxonomy.CreateDepartment(r.Context(), &domain.Department{
		Name:       strings.TrimSpace(req.Name),
		University: strings.TrimSpace(req.University),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, domainDepartmentToResponse(created))
}

// favouriteRequest saves a result. When Result is omitted the snapshot is
// looked up from the catalog named by Source.
type favouriteRequest struct {
	Source   string         `json:"source" validate:"omitempty,oneof=local doaj_article doaj_journal doab_book"`
	ResultID string         `json:"result_id" validate:"max=500"`
	Result   *domain.Result `json:"result"`
}

// listFavourites handles GET /users/{userID}/favourites.
func (s *Server) listFavourites(w http.ResponseWriter, r *http.Request) {
	favs, err := s.deps.Favourites.List(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]favouriteResponse, len(favs))
	for i, f := range favs {
		out[i] = domainFavouriteToResponse(f)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"favourites": out})
}

// addFavourite handles POST /users/{userID}/favourites.
func (s *Server) addFavourite(w http.ResponseWriter, r *http.Request) {
	var req favouriteRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	ctx := r.Context()
	fav := &domain.Favourite{
		UserID:   chi.URLParam(r, "userID"),
		ResultID: strings.TrimSpace(req.ResultID),
		Source:   domain.SourceKind(req.Source),
	}

	switch {
	case req.Result != nil:
		fav.Snapshot = *req.Result
	case fav.Source != "" && fav.ResultID != "":
		res, err := s.deps.Search.Get(ctx, fav.Source, fav.ResultID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		fav.Snapshot = *res
	default:
		writeError(w, http.StatusBadRequest, "either result or source and result_id are required")
		return
	}

	saved, err := s.deps.Favourites.Add(ctx, fav)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, domainFavouriteToResponse(saved))
}

// removeFavourite handles DELETE /users/{userID}/favourites/{resultID}.
// Result IDs may contain slashes (DOAB handles).
func (s *Server) removeFavourite(w http.ResponseWriter, r *http.Request) {
	resultID := strings.Trim(chi.URLParam(r, "*"), "/ ")
	if resultID == "" {
		writeError(w, http.StatusBadRequest, "result_id is required")
		return
	}
	if err := s.deps.Favourites.Remove(r.Context(), chi.URLParam(r, "userID"), resultID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
