package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/arthur-debert/shopdata/analytics"
	"github.com/arthur-debert/shopdata/catalog"
	"github.com/arthur-debert/shopdata/inspect"
	"github.com/arthur-debert/shopdata/storage"
	"github.com/arthur-debert/shopdata/types"
)

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("ok"))
}

// handleList serves a catalog resource. A data source failure is logged
// and served as an empty collection.
func (s *Server) handleList(r catalog.Resource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		result, err := s.catalog.List(req.Context(), r, req.URL.Query())
		if err != nil {
			s.logger.WarnContext(req.Context(), "serving empty collection",
				"resource", r.Name,
				"error", err)
			if result.Items == nil {
				result.Items = []types.Record{}
			}
		}

		body := map[string]interface{}{r.Key: result.Items}
		if r.Paginated {
			body["pagination"] = result.Pagination()
		}
		writeJSON(w, http.StatusOK, body)
	})
}

// handleDetail serves one record. As with lists, an unreadable data source
// is treated as empty, so the record is reported as not found.
func (s *Server) handleDetail(r catalog.Resource) http.Handler {
	name := strings.TrimSuffix(r.Name, "s")
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		record, err := s.catalog.Find(req.Context(), r, req.PathValue("id"))
		if err != nil {
			if !errors.Is(err, catalog.ErrNotFound) {
				s.logger.WarnContext(req.Context(), "data source unavailable, nothing to find",
					"resource", r.Name,
					"error", err)
			}
			s.handleError(w, req, NewAPIError(strings.ToUpper(name[:1])+name[1:]+" not found", http.StatusNotFound, "NOT_FOUND"))
			return
		}
		if r.Name == catalog.Orders.Name {
			writeJSON(w, http.StatusOK, map[string]interface{}{"order": record})
			return
		}
		writeJSON(w, http.StatusOK, record)
	})
}

func (s *Server) handleForYou(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"userId"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.handleError(w, r, NewAPIError("Invalid JSON body", http.StatusBadRequest, "INVALID_BODY"))
			return
		}
	}
	if body.UserID == "" {
		body.UserID = SessionFrom(r.Context()).CustomerID
	}

	recs, err := s.catalog.ForYou(r.Context(), body.UserID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "recommendations failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Failed to generate personalized recommendations"})
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleShipping(w http.ResponseWriter, r *http.Request) {
	value, err := s.source.ReadValue(r.Context(), "shipping.json")
	if err != nil {
		s.logger.ErrorContext(r.Context(), "shipping data unavailable", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Failed to fetch shipping data"})
		return
	}
	writeJSON(w, http.StatusOK, value)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind, err := analytics.ParseKind(q.Get("type"))
	if err != nil {
		s.handleError(w, r, NewAPIError("Invalid analytics type", http.StatusBadRequest, "INVALID_TYPE"))
		return
	}

	data, err := analytics.Load(r.Context(), s.source)
	if err != nil {
		s.logger.WarnContext(r.Context(), "analytics over empty data", "error", err)
		data = analytics.Dataset{}
	}
	report, err := analytics.Compute(kind, analytics.ParsePeriod(q.Get("period")), s.now(), data)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// FileDocument is the /api/data?file= response.
type FileDocument struct {
	FileName    string      `json:"fileName"`
	Data        interface{} `json:"data"`
	IsArray     bool        `json:"isArray"`
	RecordCount int         `json:"recordCount"`
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("file")
	if name == "" {
		files, err := s.source.List(r.Context())
		if err != nil {
			s.handleError(w, r, err)
			return
		}
		if files == nil {
			files = []storage.FileInfo{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"files": files})
		return
	}

	if !strings.HasSuffix(name, ".json") {
		s.handleError(w, r, NewAPIError("Invalid file name", http.StatusBadRequest, "INVALID_FILE"))
		return
	}
	value, err := s.source.ReadValue(r.Context(), name)
	if err != nil {
		s.handleError(w, r, storageError(err))
		return
	}

	doc := FileDocument{FileName: name, Data: value}
	if items, ok := value.([]interface{}); ok {
		doc.IsArray = true
		doc.RecordCount = len(items)
	} else {
		doc.RecordCount = inspect.FieldCount(value)
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleDataFile serves any file of the data directory. JSON files are
// validated and re-encoded; everything else is plain text.
func (s *Server) handleDataFile(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("path")
	data, err := s.source.ReadRaw(r.Context(), name)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidName) {
			s.handleError(w, r, NewAPIError("Invalid path", http.StatusForbidden, "INVALID_PATH"))
			return
		}
		s.handleError(w, r, storageError(err))
		return
	}

	if !strings.HasSuffix(name, ".json") {
		w.Header().Set("Content-Type", "text/plain")
		w.Write(data)
		return
	}
	value, err := inspect.ParseJSON(data)
	if err != nil {
		s.handleError(w, r, NewAPIError("Invalid JSON file", http.StatusInternalServerError, "INVALID_JSON"))
		return
	}
	writeJSON(w, http.StatusOK, value)
}

// InspectResponse is the /api/inspect response.
type InspectResponse struct {
	FileName string `json:"fileName"`
	inspect.BrowseResult
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("file")
	if name == "" {
		s.handleError(w, r, NewAPIError("Missing file parameter", http.StatusBadRequest, "MISSING_FILE"))
		return
	}

	req := inspect.BrowseRequest{Search: q.Get("search"), Toggle: q["toggle"]}
	if raw := q.Get("index"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.handleError(w, r, NewAPIError("Invalid index", http.StatusBadRequest, "INVALID_INDEX"))
			return
		}
		req.Index = n
	}
	if _, ok := q["expand"]; ok {
		var paths []string
		for _, p := range q["expand"] {
			if p != "" {
				paths = append(paths, p)
			}
		}
		req.Expanded = inspect.NewPathSet(paths...)
	}

	value, err := s.source.ReadValue(r.Context(), name)
	if err != nil {
		s.handleError(w, r, storageError(err))
		return
	}
	result, err := inspect.Browse(value, req, inspect.WithLocale(s.locale))
	if err != nil {
		if errors.Is(err, inspect.ErrIndexOutOfRange) {
			err = NewAPIError("Record not found", http.StatusNotFound, "NOT_FOUND")
		}
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, InspectResponse{FileName: name, BrowseResult: result})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SessionFrom(r.Context()))
}

func (s *Server) handleStructure(w http.ResponseWriter, r *http.Request) {
	routes := describeRoutes(s.routes)
	writeJSON(w, http.StatusOK, Structure{
		Routes:    routes,
		Tree:      buildTree(routes),
		Timestamp: s.now().UTC(),
	})
}

// storageError maps storage sentinels to API errors.
func storageError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return NewAPIError("File not found", http.StatusNotFound, "NOT_FOUND")
	case errors.Is(err, storage.ErrInvalidName):
		return NewAPIError("Invalid file name", http.StatusBadRequest, "INVALID_FILE")
	}
	return err
}
