package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/diewo77/go-devis/httpx"
	"github.com/diewo77/go-devis/i18n"
	"github.com/diewo77/go-devis/internal/form"
	"github.com/diewo77/go-devis/internal/notify"
	"github.com/diewo77/go-devis/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// QuoteHandler exposes the quote workflow to the browser form as JSON.
type QuoteHandler struct {
	svc   *services.QuoteService
	notes *notify.Recorder
	lang  string
	log   *zap.Logger
}

func NewQuoteHandler(svc *services.QuoteService, notes *notify.Recorder, lang string, log *zap.Logger) *QuoteHandler {
	if !i18n.Supported(lang) {
		lang = i18n.DefaultLang
	}
	if log == nil {
		log = zap.NewNop()
	}
	if notes == nil {
		notes = notify.NewRecorder(0)
	}
	return &QuoteHandler{svc: svc, notes: notes, lang: lang, log: log}
}

func (h *QuoteHandler) language(r *http.Request) string {
	if hdr := r.Header.Get("Accept-Language"); hdr != "" {
		return i18n.DetectLanguage(hdr)
	}
	return h.lang
}

func confirmed(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	return v
}

func (h *QuoteHandler) Form(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.svc.Snapshot())
}

func (h *QuoteHandler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		h.badRequest(w, r, err)
		return
	}
	values := make(map[form.Field]string, len(body))
	for k, v := range body {
		values[form.Field(k)] = v
	}
	snap, err := h.svc.SetFields(values)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}

func (h *QuoteHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	i, snap := h.svc.AddLine()
	httpx.JSON(w, http.StatusCreated, map[string]any{"index": i, "form": snap})
}

func lineIndex(r *http.Request) (int, error) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return 0, fmt.Errorf("invalid line index %q", chi.URLParam(r, "index"))
	}
	return i, nil
}

func (h *QuoteHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	i, err := lineIndex(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	var line form.Line
	if err := httpx.DecodeJSON(w, r, &line); err != nil {
		h.badRequest(w, r, err)
		return
	}
	snap, err := h.svc.SetLine(i, line)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}

func (h *QuoteHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	i, err := lineIndex(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	snap, err := h.svc.RemoveLine(i)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}

func (h *QuoteHandler) New(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.New(confirmed(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}

func (h *QuoteHandler) Generate(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Generate(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"generated": out, "form": h.svc.Snapshot()})
}

func (h *QuoteHandler) Validate(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Validate(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *QuoteHandler) Save(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Save(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	httpx.JSON(w, status, map[string]any{"id": res.ID, "created": res.Created, "form": h.svc.Snapshot()})
}

func (h *QuoteHandler) PDF(w http.ResponseWriter, r *http.Request) {
	exp, err := h.svc.ExportPDF(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.Attachment(w, exp.Filename, "application/pdf", exp.Content)
}

// List serves the saved quotes, newest first, narrowed by the optional
// ?client= and ?title= exact-match filters.
func (h *QuoteHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sums, err := h.svc.Search(r.Context(), q.Get("client"), q.Get("title"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sums)
}

func quoteID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid quote id %q", chi.URLParam(r, "id"))
	}
	return uint(id), nil
}

func (h *QuoteHandler) Load(w http.ResponseWriter, r *http.Request) {
	id, err := quoteID(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	snap, err := h.svc.Load(r.Context(), id, confirmed(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}

func (h *QuoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := quoteID(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *QuoteHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Clear(r.Context(), confirmed(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *QuoteHandler) AIStatus(w http.ResponseWriter, r *http.Request) {
	ok := h.svc.AIAvailable(r.Context())
	code := "ai_offline"
	if ok {
		code = "ai_online"
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"available": ok, "message": i18n.T(h.language(r), code)})
}

// Notifications hands the pending notifications to the form and forgets them.
func (h *QuoteHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.notes.Drain())
}
