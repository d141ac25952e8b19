package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/diewo77/go-devis/i18n"
	"github.com/diewo77/go-devis/internal/ai"
	"github.com/diewo77/go-devis/internal/db"
	"github.com/diewo77/go-devis/internal/form"
	"github.com/diewo77/go-devis/internal/format"
	"github.com/diewo77/go-devis/internal/models"
	"github.com/diewo77/go-devis/internal/notify"
	"github.com/diewo77/go-devis/validation"
	"go.uber.org/zap"
)

// TextAssist is the part of the AI client the workflow uses.
type TextAssist interface {
	Generate(ctx context.Context, title, address string) (ai.Generated, error)
	ValidateQuote(ctx context.Context, quote any) (ai.ValidationResult, error)
	TestConnection(ctx context.Context) bool
}

// Renderer turns a quote into a downloadable document.
type Renderer interface {
	Generate(rec models.QuoteRecord, totals models.Totals) ([]byte, error)
	Filename(rec models.QuoteRecord) string
}

// Snapshot is the state of the form as shown to the user.
type Snapshot struct {
	ID      uint                  `json:"id,omitempty"`
	Fields  map[form.Field]string `json:"fields"`
	Lines   []form.Line           `json:"prestations"`
	Totals  models.Totals         `json:"totals"`
	Display form.DisplayTotals    `json:"display"`
	Dirty   bool                  `json:"dirty"`
}

// Summary is one entry of the saved quotes list.
type Summary struct {
	ID           uint      `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	ClientName   string    `json:"nomClient"`
	Title        string    `json:"titre"`
	TotalInclTax string    `json:"totalTTC"`
}

type SaveResult struct {
	ID      uint `json:"id"`
	Created bool `json:"created"`
}

type Export struct {
	Filename string
	Content  []byte
}

// QuoteService owns the form session and runs every quote operation against
// it one at a time.
type QuoteService struct {
	mu    sync.Mutex
	form  *form.Form
	epoch uint64

	store    db.QuoteStore
	assist   TextAssist
	renderer Renderer
	notifier notify.Notifier
	lang     string
	log      *zap.Logger
	now      func() time.Time
}

type Options struct {
	Store    db.QuoteStore
	Form     *form.Form
	Assist   TextAssist
	Renderer Renderer
	Notifier notify.Notifier
	Lang     string
	Logger   *zap.Logger
	Now      func() time.Time
}

func NewQuoteService(o Options) *QuoteService {
	if o.Form == nil {
		o.Form = form.New(nil)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Notifier == nil {
		o.Notifier = notify.Multi{}
	}
	if !i18n.Supported(o.Lang) {
		o.Lang = i18n.DefaultLang
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return &QuoteService{
		form:     o.Form,
		store:    o.Store,
		assist:   o.Assist,
		renderer: o.Renderer,
		notifier: o.Notifier,
		lang:     o.Lang,
		log:      o.Logger.With(zap.String("component", "quotes")),
		now:      o.Now,
	}
}

func (s *QuoteService) notify(level notify.Level, code string, detail ...string) {
	msg := i18n.T(s.lang, code)
	if len(detail) > 0 && detail[0] != "" {
		msg += " : " + detail[0]
	}
	s.notifier.Notify(notify.Notification{Level: level, Message: msg, Timestamp: s.now()})
}

// storageFailure reports a store error to the user with the message matching
// its kind.
func (s *QuoteService) storageFailure(err error, fallback string) {
	switch {
	case errors.Is(err, db.ErrStorageUnavailable):
		s.notify(notify.Error, "storage_unavailable")
	case errors.Is(err, db.ErrNotFound):
		s.notify(notify.Warning, "quote_not_found")
	default:
		s.notify(notify.Error, fallback)
	}
}

// ValidateRecord applies the checks a quote must pass before it is saved.
func ValidateRecord(rec models.QuoteRecord) validation.Violations {
	v := make(validation.Violations)
	validation.Required(string(form.ClientName), rec.ClientName, v)
	validation.Required(string(form.Title), rec.Title, v)
	validation.Email(string(form.ClientEmail), rec.ClientEmail, v)
	validation.Phone(string(form.ClientPhone), rec.ClientPhone, v)
	return v
}

func (s *QuoteService) rejectInvalid(v validation.Violations) error {
	verr := &ValidationError{Violations: v}
	s.notify(notify.Warning, verr.Message())
	return verr
}

// Save validates the form and stores it: a quote never saved gets a new id,
// otherwise the stored one is overwritten. A rejected quote never reaches the
// store.
func (s *QuoteService) Save(ctx context.Context) (SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.form.Capture()
	if v := ValidateRecord(rec); !v.Empty() {
		return SaveResult{}, s.rejectInvalid(v)
	}
	if err := s.store.Open(ctx); err != nil {
		s.storageFailure(err, "save_failed")
		return SaveResult{}, err
	}

	res := SaveResult{ID: rec.ID}
	if rec.ID == 0 {
		id, err := s.store.Create(ctx, rec)
		if err != nil {
			s.storageFailure(err, "save_failed")
			return SaveResult{}, err
		}
		res = SaveResult{ID: id, Created: true}
	} else if err := s.store.Update(ctx, rec.ID, rec); err != nil {
		s.storageFailure(err, "save_failed")
		return SaveResult{}, err
	}

	s.form.SetID(res.ID)
	s.form.MarkClean()
	if res.Created {
		s.notify(notify.Success, "quote_saved")
	} else {
		s.notify(notify.Success, "quote_updated")
	}
	s.log.Info("quote saved", zap.Uint("id", res.ID), zap.Bool("created", res.Created))
	return res, nil
}

// List returns every saved quote, most recent first.
func (s *QuoteService) List(ctx context.Context) ([]models.Envelope, error) {
	if err := s.store.Open(ctx); err != nil {
		s.storageFailure(err, "storage_unavailable")
		return nil, err
	}
	envs, err := s.store.GetAll(ctx)
	if err != nil {
		s.storageFailure(err, "storage_unavailable")
		return nil, err
	}
	if len(envs) == 0 {
		s.notify(notify.Info, "no_saved_quotes")
	}
	models.SortByRecency(envs)
	return envs, nil
}

// Summaries is List reduced to what the load dialog shows.
func (s *QuoteService) Summaries(ctx context.Context) ([]Summary, error) {
	envs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return summarize(envs), nil
}

// Search narrows the saved quotes to an exact client name and/or title using
// the store's indexes. With neither set it is Summaries.
func (s *QuoteService) Search(ctx context.Context, clientName, title string) ([]Summary, error) {
	clientName, title = strings.TrimSpace(clientName), strings.TrimSpace(title)
	if clientName == "" && title == "" {
		return s.Summaries(ctx)
	}
	if err := s.store.Open(ctx); err != nil {
		s.storageFailure(err, "storage_unavailable")
		return nil, err
	}

	var envs []models.Envelope
	var err error
	if clientName != "" {
		envs, err = s.store.FindByClient(ctx, clientName)
	} else {
		envs, err = s.store.FindByTitle(ctx, title)
	}
	if err != nil {
		s.storageFailure(err, "storage_unavailable")
		return nil, err
	}
	if clientName != "" && title != "" {
		envs = slices.DeleteFunc(envs, func(e models.Envelope) bool { return e.Title != title })
	}
	models.SortByRecency(envs)
	return summarize(envs), nil
}

func summarize(envs []models.Envelope) []Summary {
	out := make([]Summary, 0, len(envs))
	for _, e := range envs {
		rec := e.Record()
		out = append(out, Summary{
			ID:           e.ID,
			Timestamp:    e.Timestamp,
			ClientName:   rec.ClientName,
			Title:        rec.Title,
			TotalInclTax: format.Price(rec.Totals().TotalInclTax),
		})
	}
	return out
}

// Load replaces the form with a stored quote. Unsaved edits block it unless
// confirm is set.
func (s *QuoteService) Load(ctx context.Context, id uint, confirm bool) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.form.Dirty() && !confirm {
		s.notify(notify.Warning, "unsaved_changes")
		return s.snapshot(), ErrUnsavedChanges
	}
	if err := s.store.Open(ctx); err != nil {
		s.storageFailure(err, "storage_unavailable")
		return s.snapshot(), err
	}
	env, err := s.store.Get(ctx, id)
	if err != nil {
		s.storageFailure(err, "storage_unavailable")
		return s.snapshot(), err
	}
	s.form.Apply(env.Record())
	s.epoch++
	s.notify(notify.Success, "quote_loaded")
	return s.snapshot(), nil
}

// New starts a blank quote. Unsaved edits block it unless confirm is set.
func (s *QuoteService) New(confirm bool) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.form.Dirty() && !confirm {
		s.notify(notify.Warning, "unsaved_changes")
		return s.snapshot(), ErrUnsavedChanges
	}
	s.form.Reset()
	s.epoch++
	s.notify(notify.Success, "new_quote")
	return s.snapshot(), nil
}

// Delete removes a stored quote. When it is the one being edited, the form
// keeps its content but will be saved as a new quote.
func (s *QuoteService) Delete(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Open(ctx); err != nil {
		s.storageFailure(err, "delete_failed")
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		s.storageFailure(err, "delete_failed")
		return err
	}
	if s.form.ID() == id {
		s.detach()
	}
	s.notify(notify.Success, "quote_deleted")
	s.log.Info("quote deleted", zap.Uint("id", id))
	return nil
}

// Clear removes every stored quote. It always requires confirmation.
func (s *QuoteService) Clear(ctx context.Context, confirm bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !confirm {
		s.notify(notify.Warning, "confirm_clear")
		return ErrConfirmationRequired
	}
	if err := s.store.Open(ctx); err != nil {
		s.storageFailure(err, "delete_failed")
		return err
	}
	if err := s.store.Clear(ctx); err != nil {
		s.storageFailure(err, "delete_failed")
		return err
	}
	if s.form.ID() != 0 {
		s.detach()
	}
	s.notify(notify.Success, "quotes_cleared")
	s.log.Info("quotes cleared")
	return nil
}

// detach forgets the stored id so ids of deleted quotes are never written again.
func (s *QuoteService) detach() {
	s.form.SetID(0)
	s.form.MarkDirty()
}

// Generate drafts the presentation and access texts from the form's title
// and address. The form stays usable while the backend answers.
func (s *QuoteService) Generate(ctx context.Context) (ai.Generated, error) {
	s.mu.Lock()
	title := validation.Sanitize(s.form.Get(form.Title))
	address := validation.Sanitize(s.form.Get(form.Address))
	epoch := s.epoch
	if title == "" || address == "" {
		s.mu.Unlock()
		s.notify(notify.Warning, "missing_title_addr")
		return ai.Generated{}, fmt.Errorf("%w: title and address are required", ai.ErrInvalidArgument)
	}
	s.mu.Unlock()

	out, err := s.assist.Generate(ctx, title, address)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.notify(notify.Error, "generation_failed", err.Error())
		return ai.Generated{}, err
	}
	if epoch != s.epoch {
		return ai.Generated{}, ErrSessionChanged
	}
	_ = s.form.Set(form.PresentationText, out.PresentationText)
	_ = s.form.Set(form.AccessInfo, out.AccessInfo)
	s.form.MarkDirty()
	s.notify(notify.Success, "text_generated")
	return out, nil
}

// Validate asks the backend to check the current quote.
func (s *QuoteService) Validate(ctx context.Context) (ai.ValidationResult, error) {
	s.mu.Lock()
	rec := s.form.Capture()
	s.mu.Unlock()

	res, err := s.assist.ValidateQuote(ctx, rec)
	if err != nil {
		s.notify(notify.Error, "quote_invalid", err.Error())
		return ai.ValidationResult{}, err
	}
	if res.Valid {
		s.notify(notify.Success, "quote_valid")
	} else {
		s.notify(notify.Warning, "quote_invalid")
	}
	return res, nil
}

// ExportPDF renders the current quote. Client name and title are required.
func (s *QuoteService) ExportPDF(ctx context.Context) (Export, error) {
	s.mu.Lock()
	rec := s.form.Capture()
	s.mu.Unlock()

	v := make(validation.Violations)
	validation.Required(string(form.ClientName), rec.ClientName, v)
	validation.Required(string(form.Title), rec.Title, v)
	if !v.Empty() {
		return Export{}, s.rejectInvalid(v)
	}
	if err := ctx.Err(); err != nil {
		return Export{}, err
	}
	content, err := s.renderer.Generate(rec, rec.Totals())
	if err != nil {
		s.notify(notify.Error, "pdf_failed")
		s.log.Error("pdf export failed", zap.Error(err))
		return Export{}, err
	}
	s.notify(notify.Success, "pdf_generated")
	return Export{Filename: s.renderer.Filename(rec), Content: content}, nil
}

// AIAvailable reports whether the text-generation backend is reachable.
func (s *QuoteService) AIAvailable(ctx context.Context) bool {
	return s.assist.TestConnection(ctx)
}

func (s *QuoteService) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *QuoteService) snapshot() Snapshot {
	return Snapshot{
		ID:      s.form.ID(),
		Fields:  s.form.Values(),
		Lines:   s.form.Lines(),
		Totals:  s.form.Totals(),
		Display: s.form.DisplayTotals(),
		Dirty:   s.form.Dirty(),
	}
}

// SetFields applies several edits at once. Unknown fields reject the whole
// batch.
func (s *QuoteService) SetFields(values map[form.Field]string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	known := make(map[form.Field]bool, len(form.Fields))
	for _, f := range form.Fields {
		known[f] = true
	}
	for f := range values {
		if !known[f] {
			return s.snapshot(), fmt.Errorf("%w: %q", form.ErrUnknownField, f)
		}
	}
	for f, v := range values {
		_ = s.form.Set(f, v)
	}
	return s.snapshot(), nil
}

func (s *QuoteService) AddLine() (int, Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.form.AddLine()
	return i, s.snapshot()
}

func (s *QuoteService) SetLine(i int, l form.Line) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.form.SetLine(i, l.Description, l.Quantity, l.UnitPrice)
	return s.snapshot(), err
}

func (s *QuoteService) RemoveLine(i int) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.form.RemoveLine(i)
	return s.snapshot(), err
}
