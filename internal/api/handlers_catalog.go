package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/hyprcat/hyprcat/internal/jsonld"
	"github.com/hyprcat/hyprcat/internal/middleware"
)

func (a *App) handleServiceDescription(w http.ResponseWriter, r *http.Request) {
	n, err := a.Catalog.Get(r.Context(), a.BaseURL+"/.well-known/hyprcat")
	if err != nil {
		middleware.WriteError(w, r, http.StatusNotFound, "not_found", "service description not found", r.URL.Path)
		return
	}
	writeNode(w, n)
}

func (a *App) handleRoot(w http.ResponseWriter, r *http.Request) {
	n, err := a.Catalog.Get(r.Context(), a.BaseURL+"/")
	if err != nil {
		middleware.WriteError(w, r, http.StatusNotFound, "not_found", "root document not found", r.URL.Path)
		return
	}
	writeNode(w, n)
}

func (a *App) handlePrompts(w http.ResponseWriter, r *http.Request) {
	n, err := a.Catalog.Get(r.Context(), a.BaseURL+"/prompts")
	if err != nil {
		middleware.WriteError(w, r, http.StatusNotFound, "not_found", "prompt collection not found", r.URL.Path)
		return
	}
	writeNode(w, n)
}

// handleCatalog lists or searches the catalog per ?q,type,domain,page,pageSize.
func (a *App) handleCatalog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))
	if pageSize <= 0 {
		pageSize = 20
	}
	if page < 0 {
		page = 0
	}

	var nodes []jsonld.Node
	var total int
	var err error

	switch {
	case q.Get("q") != "" || q.Get("type") != "" || q.Get("domain") != "":
		nodes, total, err = a.Catalog.Search(r.Context(), q.Get("q"), q.Get("type"), q.Get("domain"), page, pageSize)
	default:
		nodes, total, err = a.Catalog.List(r.Context(), page*pageSize, pageSize)
	}
	if err != nil {
		middleware.WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error(), r.URL.Path)
		return
	}

	writeCollection(w, r, a.BaseURL+"/catalog", nodes, total, page, pageSize)
}

func (a *App) handleFetchNode(w http.ResponseWriter, r *http.Request) {
	id := a.BaseURL + r.URL.Path
	n, err := a.Catalog.Get(r.Context(), id)
	if err != nil {
		middleware.WriteError(w, r, http.StatusNotFound, "not_found", "resource not found: "+id, r.URL.Path)
		return
	}
	writeNode(w, n)
}

func (a *App) handleRegisterNode(w http.ResponseWriter, r *http.Request) {
	var raw map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		middleware.WriteError(w, r, http.StatusBadRequest, "bad_request", "malformed JSON body", r.URL.Path)
		return
	}
	n := jsonld.NewNode(raw)

	if result := a.Validator.ValidateResource(n); !result.OK() {
		middleware.WriteError(w, r, http.StatusBadRequest, "validation_failed", result.Error(), r.URL.Path)
		return
	}
	if err := a.Catalog.Register(r.Context(), n); err != nil {
		middleware.WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error(), r.URL.Path)
		return
	}

	a.recordActivity(r, "hyprcat:Register", n.ID())
	w.WriteHeader(http.StatusCreated)
	writeNode(w, n)
}

func writeNode(w http.ResponseWriter, n jsonld.Node) {
	_ = json.NewEncoder(w).Encode(n.Raw())
}

// writeCollection renders a paginated hydra:Collection, with
// first/previous/next links computed from page/pageSize against total.
func writeCollection(w http.ResponseWriter, r *http.Request, id string, members []jsonld.Node, total, page, pageSize int) {
	raw := make([]map[string]interface{}, 0, len(members))
	for _, m := range members {
		raw = append(raw, m.Raw())
	}

	q := r.URL.Query()
	pageURL := func(p int) string {
		q.Set("page", strconv.Itoa(p))
		return id + "?" + q.Encode()
	}

	body := map[string]interface{}{
		"@id":          id,
		"@type":        "hydra:Collection",
		"hydra:member": raw,
		"totalItems":   total,
		"first":        pageURL(0),
	}
	if page > 0 {
		body["previous"] = pageURL(page - 1)
	}
	if (page+1)*pageSize < total {
		body["next"] = pageURL(page + 1)
	}
	_ = json.NewEncoder(w).Encode(body)
}
