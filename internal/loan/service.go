package loan

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"fairloan.org/internal/filestore"
	"fairloan.org/internal/ids"
	"fairloan.org/internal/notify"
	"fairloan.org/internal/token"
)

// MaxDocumentBytes is the upload size ceiling enforced at ingestion.
const MaxDocumentBytes = 10 << 20 // 10 MiB

// DefaultRequestMessage is applied when an operator requests documents
// without supplying their own message.
const DefaultRequestMessage = "Please upload the requested documents so we can continue processing your application."

// Events receives workflow notifications as they are persisted. Used to
// feed the live admin dashboard stream; delivery is best effort.
type Events interface {
	NotificationCreated(n notify.Notification)
}

// Service drives the application lifecycle on top of a Store. All
// mutations of workflow fields go through it.
type Service struct {
	store   Store
	files   filestore.Storage
	compose notify.Composer
	events  Events

	newToken func() string
	now      func() time.Time
}

// NewService wires the workflow against its collaborators. events may be nil.
func NewService(store Store, files filestore.Storage, compose notify.Composer, events Events) *Service {
	return &Service{
		store:    store,
		files:    files,
		compose:  compose,
		events:   events,
		newToken: token.New,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateApplication registers a new intake with status pending.
func (s *Service) CreateApplication(ctx context.Context, in Intake) (*Application, error) {
	app := &Application{
		ID:        ids.New(),
		Intake:    in,
		Status:    StatusPending,
		Documents: []Document{},
		CreatedAt: s.now(),
	}
	if err := s.store.CreateApplication(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

// Application returns one application by identifier.
func (s *Service) Application(ctx context.Context, id string) (*Application, error) {
	return s.store.Application(ctx, id)
}

// Applications returns every application, newest first.
func (s *Service) Applications(ctx context.Context) ([]*Application, error) {
	return s.store.Applications(ctx)
}

// Transition moves an application to newStatus and applies the edge's side
// effects: minting or clearing capability tokens and fanning out
// notifications. A same-status edge still persists the write but mints
// nothing and notifies nobody.
func (s *Service) Transition(ctx context.Context, id string, newStatus Status, message string) (*Application, error) {
	if !newStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, newStatus)
	}

	app, err := s.store.Application(ctx, id)
	if err != nil {
		return nil, err
	}
	old := app.Status

	upd := WorkflowUpdate{Status: &newStatus}
	empty := ""

	switch {
	case newStatus == StatusDocumentsRequired && old != StatusDocumentsRequired:
		// Fresh token on entry; any previously issued one is orphaned.
		tok := s.newToken()
		msg := strings.TrimSpace(message)
		if msg == "" {
			msg = DefaultRequestMessage
		}
		upd.DocumentUploadToken = &tok
		upd.DocumentRequestMessage = &msg
	case newStatus != StatusDocumentsRequired && app.DocumentUploadToken != "":
		// Leaving documents_required: null the stale token so it cannot
		// keep validating or be displayed.
		upd.DocumentUploadToken = &empty
		upd.DocumentRequestMessage = &empty
	}

	switch {
	case newStatus == StatusApproved && old != StatusApproved && !app.BankingInfoSubmitted:
		// A consumed application never regains a token: banking details
		// were already submitted, so there is nothing left to accept.
		tok := s.newToken()
		upd.ApprovalToken = &tok
	case newStatus != StatusApproved && app.ApprovalToken != "":
		upd.ApprovalToken = &empty
	}

	if err := s.store.UpdateWorkflow(ctx, id, upd); err != nil {
		return nil, err
	}

	refreshed, err := s.store.Application(ctx, id)
	if err != nil {
		return nil, err
	}

	if old != newStatus {
		snap := s.snapshot(refreshed)
		snap.OldStatus = string(old)
		if err := s.persistNotifications(ctx, s.compose.StatusChanged(snap)); err != nil {
			return nil, err
		}
	}
	return refreshed, nil
}

// VerifyApprovalToken resolves a token to its approved application.
// Wrong token and right-token-stale-status are both NotFound so an
// unauthenticated caller learns nothing about the application. A token
// whose banking details were already submitted is Conflict.
func (s *Service) VerifyApprovalToken(ctx context.Context, tok string) (*Application, error) {
	if tok == "" {
		return nil, ErrNotFound
	}
	app, err := s.store.ApplicationByApprovalToken(ctx, tok)
	if err != nil {
		return nil, err
	}
	if app.Status != StatusApproved {
		return nil, ErrNotFound
	}
	if app.BankingInfoSubmitted {
		return nil, ErrConflict
	}
	return app, nil
}

// AcceptLoan consumes an approval token: it records the banking details,
// marks the loan accepted, and clears the token. A second call for the
// same application always fails with ErrConflict.
func (s *Service) AcceptLoan(ctx context.Context, req AcceptLoanRequest) error {
	app, err := s.store.Application(ctx, req.ApplicationID)
	if err != nil {
		return err
	}
	// Consumed-state check comes first: the token is cleared the moment
	// banking details are accepted, and a repeat submission must surface
	// as Conflict rather than a token mismatch.
	if app.BankingInfoSubmitted {
		return ErrConflict
	}
	if req.Token == "" || app.ApprovalToken != req.Token || app.Status != StatusApproved {
		return ErrNotFound
	}
	if !req.AgreeToTerms {
		return fmt.Errorf("%w: terms must be accepted", ErrInvalidInput)
	}
	if err := req.validateBankingFields(); err != nil {
		return err
	}

	rec := &BankingRecord{
		ApplicationID:         app.ID,
		AccountNumber:         req.AccountNumber,
		AccountNumberLastFour: lastFour(req.AccountNumber),
		RoutingNumber:         req.RoutingNumber,
		RoutingNumberLastFour: lastFour(req.RoutingNumber),
		CardNumber:            req.CardNumber,
		CardLastFour:          lastFour(req.CardNumber),
		CardCVV:               req.CardCVV,
		CardExpiration:        req.CardExpiration,
		SubmittedAt:           s.now(),
	}

	// The store's conditional write is authoritative: a racing duplicate
	// submission loses here with ErrConflict.
	if err := s.store.SubmitBanking(ctx, rec); err != nil {
		return err
	}

	msgs := s.compose.LoanAccepted(s.snapshot(app), rec.AccountNumberLastFour, rec.CardLastFour)
	return s.persistNotifications(ctx, msgs)
}

// BankingInfo returns the masked disclosure of an application's banking
// record. Missing application and missing record both surface as NotFound.
func (s *Service) BankingInfo(ctx context.Context, appID string) (BankingInfo, error) {
	app, err := s.store.Application(ctx, appID)
	if err != nil {
		return BankingInfo{}, err
	}
	if !app.BankingInfoSubmitted {
		return BankingInfo{}, ErrNotFound
	}
	rec, err := s.store.BankingRecord(ctx, appID)
	if err != nil {
		return BankingInfo{}, err
	}
	return rec.Masked(), nil
}

// FullBankingRecord returns every stored banking field in clear form.
// Authorization is the transport boundary's concern; callers must only
// invoke this on behalf of an authenticated administrator.
func (s *Service) FullBankingRecord(ctx context.Context, appID string) (*BankingRecord, error) {
	app, err := s.store.Application(ctx, appID)
	if err != nil {
		return nil, err
	}
	if !app.BankingInfoSubmitted {
		return nil, ErrNotFound
	}
	return s.store.BankingRecord(ctx, appID)
}

// VerifyUploadToken resolves an upload token to its documents_required
// application; any mismatch is NotFound.
func (s *Service) VerifyUploadToken(ctx context.Context, tok string) (*Application, error) {
	if tok == "" {
		return nil, ErrNotFound
	}
	app, err := s.store.ApplicationByUploadToken(ctx, tok)
	if err != nil {
		return nil, err
	}
	if app.Status != StatusDocumentsRequired {
		return nil, ErrNotFound
	}
	return app, nil
}

var contentTypes = map[string]string{
	"application/pdf": "application/pdf",
	"image/jpeg":      "image/jpeg",
	"image/jpg":       "image/jpeg",
	"image/png":       "image/png",
}

var extensions = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

// UploadDocument stores file bytes under an unguessable name and appends
// the metadata to the application. The token must match the one currently
// issued to the application; unlike verification, the call is not gated on
// the status staying documents_required.
func (s *Service) UploadDocument(ctx context.Context, appID, tok string, data []byte, filename, contentType string) (Document, error) {
	app, err := s.store.Application(ctx, appID)
	if err != nil {
		return Document{}, err
	}
	if tok == "" || app.DocumentUploadToken != tok {
		return Document{}, ErrNotFound
	}

	normalized, ok := contentTypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return Document{}, fmt.Errorf("%w: content type %q is not allowed", ErrInvalidInput, contentType)
	}
	if int64(len(data)) > MaxDocumentBytes {
		return Document{}, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidInput, MaxDocumentBytes)
	}

	stored := storedName(appID, normalized)
	if err := s.files.Save(stored, data); err != nil {
		return Document{}, err
	}

	doc := Document{
		ID:             ids.New(),
		Filename:       path.Base(filename),
		StoredFilename: stored,
		ContentType:    normalized,
		Size:           int64(len(data)),
		UploadedAt:     s.now(),
	}
	if err := s.store.AppendDocument(ctx, appID, doc); err != nil {
		return Document{}, err
	}

	if err := s.persistNotifications(ctx, s.compose.DocumentUploaded(s.snapshot(app), doc.Filename)); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// FetchDocument returns the metadata and bytes of one uploaded document.
func (s *Service) FetchDocument(ctx context.Context, appID, docID string) (Document, []byte, error) {
	app, err := s.store.Application(ctx, appID)
	if err != nil {
		return Document{}, nil, err
	}
	for _, doc := range app.Documents {
		if doc.ID != docID {
			continue
		}
		data, err := s.files.Read(doc.StoredFilename)
		if err != nil {
			if errors.Is(err, filestore.ErrNotFound) {
				return Document{}, nil, ErrNotFound
			}
			return Document{}, nil, err
		}
		return doc, data, nil
	}
	return Document{}, nil, ErrNotFound
}

// Notifications returns every persisted notification, newest first.
func (s *Service) Notifications(ctx context.Context) ([]*notify.Notification, error) {
	return s.store.Notifications(ctx)
}

// NotificationsFor returns the notifications addressed to one recipient.
func (s *Service) NotificationsFor(ctx context.Context, address string) ([]*notify.Notification, error) {
	return s.store.NotificationsByAddress(ctx, address)
}

// MarkNotificationRead flips the read flag; already-read is a no-op.
func (s *Service) MarkNotificationRead(ctx context.Context, id string) error {
	return s.store.MarkNotificationRead(ctx, id)
}

// UnreadCount returns the number of unread notifications.
func (s *Service) UnreadCount(ctx context.Context) (int64, error) {
	return s.store.UnreadNotifications(ctx)
}

// Stats returns the dashboard aggregates.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.store.Stats(ctx)
}

func (s *Service) snapshot(app *Application) notify.Snapshot {
	return notify.Snapshot{
		ApplicationID:  app.ID,
		FirstName:      app.FirstName,
		LastName:       app.LastName,
		Email:          app.Email,
		Amount:         app.LoanAmountRequested,
		NewStatus:      string(app.Status),
		ApprovalToken:  app.ApprovalToken,
		UploadToken:    app.DocumentUploadToken,
		RequestMessage: app.DocumentRequestMessage,
	}
}

func (s *Service) persistNotifications(ctx context.Context, msgs []notify.Notification) error {
	for _, msg := range msgs {
		msg.ID = ids.New()
		msg.CreatedAt = s.now()
		if err := s.store.CreateNotification(ctx, &msg); err != nil {
			return err
		}
		if s.events != nil {
			s.events.NotificationCreated(msg)
		}
	}
	return nil
}

func (r AcceptLoanRequest) validateBankingFields() error {
	checks := []struct {
		name     string
		value    string
		min, max int
	}{
		{"account_number", r.AccountNumber, 8, 17},
		{"routing_number", r.RoutingNumber, 9, 9},
		{"card_number", r.CardNumber, 13, 19},
		{"card_cvv", r.CardCVV, 3, 4},
	}
	for _, c := range checks {
		if len(c.value) < c.min || len(c.value) > c.max || !digitsOnly(c.value) {
			return fmt.Errorf("%w: %s is malformed", ErrInvalidInput, c.name)
		}
	}
	if len(r.CardExpiration) != 5 || r.CardExpiration[2] != '/' ||
		!digitsOnly(r.CardExpiration[:2]) || !digitsOnly(r.CardExpiration[3:]) {
		return fmt.Errorf("%w: card_expiration must be MM/YY", ErrInvalidInput)
	}
	return nil
}

func digitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func storedName(appID, contentType string) string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return appID + "_" + hex.EncodeToString(b[:]) + extensions[contentType]
}
