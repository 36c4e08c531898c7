package webconsole

import (
	_ "embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/domconsole/internal/kit"
	"github.com/hazyhaar/domconsole/internal/shield"
	"github.com/hazyhaar/domconsole/record"
)

//go:embed page.html
var pageHTML string

var page = template.Must(template.New("page").Parse(pageHTML))

// Routes returns the web console router.
//
//	GET  /            console page
//	GET  /console.md  console as markdown
//	POST /api/log     {"method","values"} or ?format=html with an HTML body
//	POST /api/break
//	POST /api/inspect {"values"}
//	GET  /api/records ?method=&limit=
//	GET  /api/records/{id}
//	POST /api/clear
//	GET  /health
func (s *Service) Routes() http.Handler {
	r := chi.NewRouter()
	for _, mw := range shield.Stack(s.logger) {
		r.Use(mw)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		h, err := s.Health(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		writeJSON(w, http.StatusOK, h)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		body, err := s.dom.SafeHTML()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := page.Execute(w, template.HTML(body)); err != nil {
			shield.GetLogger(r.Context()).Warn("webconsole: render page", "error", err)
		}
	})

	r.Get("/console.md", func(w http.ResponseWriter, _ *http.Request) {
		md, err := s.dom.Markdown()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		io.WriteString(w, md+"\n")
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/log", func(w http.ResponseWriter, r *http.Request) {
			var req LogRequest
			if r.URL.Query().Get("format") == "html" {
				data, err := io.ReadAll(r.Body)
				if err != nil {
					writeError(w, http.StatusBadRequest, err)
					return
				}
				req.HTML = string(data)
				req.Method = record.Method(r.URL.Query().Get("method"))
			} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			s.serve(w, r, s.logEP, &req, http.StatusCreated)
		})

		r.Post("/break", func(w http.ResponseWriter, r *http.Request) {
			s.serve(w, r, s.breakEP, nil, http.StatusCreated)
		})

		r.Post("/inspect", func(w http.ResponseWriter, r *http.Request) {
			var req InspectRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			s.serve(w, r, s.inspectEP, &req, http.StatusOK)
		})

		r.Get("/records", func(w http.ResponseWriter, r *http.Request) {
			req := RecordsRequest{
				Method: record.Method(r.URL.Query().Get("method")),
				Limit:  queryInt(r, "limit", 0),
			}
			s.serve(w, r, s.recordsEP, &req, http.StatusOK)
		})

		r.Get("/records/{id}", func(w http.ResponseWriter, r *http.Request) {
			s.serve(w, r, s.recordEP, &RecordRequest{ID: chi.URLParam(r, "id")}, http.StatusOK)
		})

		r.Post("/clear", func(w http.ResponseWriter, r *http.Request) {
			s.serve(w, r, s.clearEP, nil, http.StatusOK)
		})
	})

	return r
}

func (s *Service) serve(w http.ResponseWriter, r *http.Request, ep kit.Endpoint, req any, code int) {
	resp, err := ep(r.Context(), req)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrNoJournal) || errors.Is(err, ErrRecordNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	if _, ok := resp.(IgnoredResponse); ok {
		code = http.StatusOK
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}
