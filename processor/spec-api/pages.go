package specapi

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"mime"
	"net/http"
	"strings"

	"github.com/c360studio/specgen/workflow"
	"github.com/c360studio/specgen/workflow/prompts"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))

// Messages shown by the generator form.
const (
	resultPlaceholder = "Results will appear here..."
	msgMissingFields  = "Please fill in all fields"
	msgUnavailable    = "AI service is temporarily unavailable, please try again later (%v)"
)

// SectionView is one rendered specification section.
type SectionView struct {
	Name string `json:"name"`
	Body string `json:"body"`
}

// GeneratorView is the context of the generator form. It is also the JSON
// response when the client asks for application/json.
type GeneratorView struct {
	prompts.SpecBrief
	Result    string            `json:"result"`
	Sections  map[string]string `json:"sections"`
	FormError string            `json:"form_error"`
}

// OrderedSections lists the sections in display order.
func (v *GeneratorView) OrderedSections() []SectionView {
	out := make([]SectionView, 0, len(prompts.DisplayOrder))
	for _, name := range prompts.DisplayOrder {
		out = append(out, SectionView{Name: name, Body: v.Sections[name]})
	}
	return out
}

func newGeneratorView(doc *workflow.SpecDocument) *GeneratorView {
	return &GeneratorView{
		SpecBrief: doc.Brief,
		Result:    resultPlaceholder,
		Sections:  doc.Sections,
	}
}

// ----------------------------------------------------------------------------
// GET|POST /
// ----------------------------------------------------------------------------

func (h *Handler) handleGenerator(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h.renderGenerator(w, r, newGeneratorView(workflow.PlaceholderDocument(prompts.SpecBrief{})))
	case http.MethodPost:
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form body", http.StatusBadRequest)
			return
		}
		brief := prompts.SpecBrief{
			ProjectGoal:          strings.TrimSpace(r.PostFormValue("project_goal")),
			CoreFeatures:         strings.TrimSpace(r.PostFormValue("core_features")),
			TechnicalConstraints: strings.TrimSpace(r.PostFormValue("technical_constraints")),
			TargetAudience:       strings.TrimSpace(r.PostFormValue("target_audience")),
		}
		if !brief.Complete() {
			view := newGeneratorView(workflow.PlaceholderDocument(brief))
			view.FormError = msgMissingFields
			h.renderGenerator(w, r, view)
			return
		}

		doc, err := h.pipeline.GenerateSections(r.Context(), brief)
		view := newGeneratorView(doc)
		if err != nil {
			h.logger.Error("Specification generation failed", "error", err)
			view.FormError = fmt.Sprintf(msgUnavailable, err)
		} else {
			view.Result = doc.Raw
		}
		h.renderGenerator(w, r, view)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// renderGenerator writes view as HTML, or as JSON when the client accepts it.
func (h *Handler) renderGenerator(w http.ResponseWriter, r *http.Request, view *GeneratorView) {
	if acceptsJSON(r) {
		writeJSON(w, http.StatusOK, view)
		return
	}
	h.render(w, "index.html", view)
}

func (h *Handler) handleStaticPage(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h.render(w, name, nil)
	}
}

// render executes into a buffer so a template error never sends a partial page.
func (h *Handler) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.Error("Template render failed", "template", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func acceptsJSON(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mt == "application/json" {
			return true
		}
	}
	return false
}
