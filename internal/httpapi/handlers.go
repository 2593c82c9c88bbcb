package httpapi

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-scriptform/pkg/model"
	"github.com/goliatone/go-scriptform/pkg/render"
	"github.com/goliatone/go-scriptform/pkg/scripts"
	"github.com/goliatone/go-scriptform/pkg/validation"
)

type groupResponse struct {
	Name   string        `json:"groupName"`
	Fields []model.Field `json:"fields"`
	HTML   string        `json:"form"`
}

type groupsResponse struct {
	Script scripts.Script  `json:"script"`
	Action string          `json:"action"`
	Groups []groupResponse `json:"groups"`
}

type formResponse struct {
	Script scripts.Script `json:"script"`
	Action string         `json:"action"`
	Form   model.Form     `json:"form"`
}

type submissionResponse struct {
	Script  int64          `json:"script"`
	Values  map[string]any `json:"values"`
	Cleared []string       `json:"cleared,omitempty"`
}

type issuesResponse struct {
	Error  string             `json:"error"`
	Code   string             `json:"code"`
	Issues []validation.Issue `json:"issues"`
}

func (s *Server) listScripts(w http.ResponseWriter, r *http.Request) {
	list, err := s.catalog.Scripts(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if list == nil {
		list = []scripts.Script{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"scripts": list})
}

// groupForms returns every group with its fields and rendered controls.
// Query parameters, keyed by parameter slug, become initial values.
func (s *Server) groupForms(w http.ResponseWriter, r *http.Request) {
	script, ok := s.loadScript(w, r)
	if !ok {
		return
	}
	groups, err := s.factory.GroupForms(r.Context(), script, render.ValuesFromQuery(r.URL.Query()))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	renderer, err := s.renderers.Get("")
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	resp := groupsResponse{Script: script, Action: groups.Action(), Groups: make([]groupResponse, 0, groups.Len())}
	for _, group := range groups.Groups() {
		html, err := renderer.Render(r.Context(), group.Form, render.RenderOptions{Action: groups.Action(), Fragment: true})
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		resp.Groups = append(resp.Groups, groupResponse{
			Name:   group.Name,
			Fields: group.Form.Fields(),
			HTML:   string(html),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) masterForm(w http.ResponseWriter, r *http.Request) {
	script, ok := s.loadScript(w, r)
	if !ok {
		return
	}
	form, err := s.factory.MasterForm(r.Context(), script)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, formResponse{Script: script, Action: script.SubmissionURL(), Form: form})
}

func (s *Server) masterFormHTML(w http.ResponseWriter, r *http.Request) {
	script, ok := s.loadScript(w, r)
	if !ok {
		return
	}
	form, err := s.factory.MasterForm(r.Context(), script)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.writeForm(w, r, http.StatusOK, form, render.RenderOptions{
		Action: script.SubmissionURL(),
		Values: render.ValuesFromQuery(r.URL.Query()),
	})
}

func (s *Server) submissionSchema(w http.ResponseWriter, r *http.Request) {
	script, ok := s.loadScript(w, r)
	if !ok {
		return
	}
	form, err := s.factory.MasterForm(r.Context(), script)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, validation.SchemaFor(form))
}

// submit validates a posted master form. Uploaded files contribute their
// file name as the field value. Clients accepting HTML get the form back
// with errors bound to their fields.
func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	script, ok := s.loadScript(w, r)
	if !ok {
		return
	}
	form, err := s.factory.MasterForm(r.Context(), script)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	posted, err := postedValues(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	result := validation.ValidateSubmission(form, posted)
	if result.Valid {
		s.logger.InfoContext(r.Context(), "submission accepted",
			"request_id", RequestIDFromContext(r.Context()),
			"script_id", script.ID,
		)
		writeJSON(w, http.StatusAccepted, submissionResponse{
			Script:  script.ID,
			Values:  result.Values,
			Cleared: result.Cleared,
		})
		return
	}

	if wantsHTML(r) {
		mapping := render.MapErrors(form, result.ErrorMap())
		s.writeForm(w, r, http.StatusUnprocessableEntity, form, render.RenderOptions{
			Action:     script.SubmissionURL(),
			Values:     render.ValuesFromQuery(posted),
			Errors:     mapping.Fields,
			FormErrors: mapping.Form,
		})
		return
	}
	writeJSON(w, http.StatusUnprocessableEntity, issuesResponse{
		Error:  "submission is invalid",
		Code:   "VALIDATION_FAILED",
		Issues: result.Issues,
	})
}

func (s *Server) invalidate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseScriptID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"script": id, "invalidated": s.factory.Invalidate(id)})
}

func (s *Server) purge(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"purged": s.factory.InvalidateAll()})
}

func (s *Server) writeForm(w http.ResponseWriter, r *http.Request, status int, form model.Form, opts render.RenderOptions) {
	body, contentType, err := s.renderers.Render(r.Context(), "", form, opts)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func postedValues(r *http.Request) (url.Values, error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, err
	}
	posted := make(url.Values, len(r.PostForm))
	for key, values := range r.PostForm {
		posted[key] = append([]string(nil), values...)
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
		for name, headers := range r.MultipartForm.File {
			for _, header := range headers {
				posted.Add(name, header.Filename)
			}
		}
	}
	return posted, nil
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
