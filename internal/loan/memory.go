package loan

import (
	"context"
	"sync"

	"fairloan.org/internal/notify"
)

// InMemory implements Store with in-process concurrency safety. It backs
// tests and DSN-less development runs; production uses the Postgres store.
type InMemory struct {
	mu      sync.RWMutex
	apps    map[string]*Application
	order   []string
	banking map[string]*BankingRecord
	notifs  []*notify.Notification
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		apps:    make(map[string]*Application),
		banking: make(map[string]*BankingRecord),
	}
}

func (s *InMemory) CreateApplication(ctx context.Context, app *Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *app
	cp.Documents = append([]Document(nil), app.Documents...)
	s.apps[app.ID] = &cp
	s.order = append(s.order, app.ID)
	return nil
}

func (s *InMemory) Application(ctx context.Context, id string) (*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyApplication(app), nil
}

func (s *InMemory) Applications(ctx context.Context) ([]*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]*Application, 0, len(s.order))
	// Newest first, matching the admin dashboard's expectation.
	for i := len(s.order) - 1; i >= 0; i-- {
		res = append(res, copyApplication(s.apps[s.order[i]]))
	}
	return res, nil
}

func (s *InMemory) UpdateWorkflow(ctx context.Context, id string, upd WorkflowUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok {
		return ErrNotFound
	}
	if upd.Status != nil {
		app.Status = *upd.Status
	}
	if upd.ApprovalToken != nil {
		app.ApprovalToken = *upd.ApprovalToken
	}
	if upd.DocumentUploadToken != nil {
		app.DocumentUploadToken = *upd.DocumentUploadToken
	}
	if upd.DocumentRequestMessage != nil {
		app.DocumentRequestMessage = *upd.DocumentRequestMessage
	}
	return nil
}

func (s *InMemory) ApplicationByApprovalToken(ctx context.Context, token string) (*Application, error) {
	return s.findByToken(func(app *Application) bool { return app.ApprovalToken == token })
}

func (s *InMemory) ApplicationByUploadToken(ctx context.Context, token string) (*Application, error) {
	return s.findByToken(func(app *Application) bool { return app.DocumentUploadToken == token })
}

func (s *InMemory) findByToken(match func(*Application) bool) (*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, app := range s.apps {
		if match(app) {
			return copyApplication(app), nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemory) AppendDocument(ctx context.Context, appID string, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[appID]
	if !ok {
		return ErrNotFound
	}
	app.Documents = append(app.Documents, doc)
	return nil
}

func (s *InMemory) SubmitBanking(ctx context.Context, rec *BankingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[rec.ApplicationID]
	if !ok {
		return ErrNotFound
	}
	if app.BankingInfoSubmitted {
		return ErrConflict
	}
	cp := *rec
	s.banking[rec.ApplicationID] = &cp
	app.LoanAccepted = true
	app.BankingInfoSubmitted = true
	app.ApprovalToken = ""
	return nil
}

func (s *InMemory) BankingRecord(ctx context.Context, appID string) (*BankingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.banking[appID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *InMemory) CreateNotification(ctx context.Context, n *notify.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *n
	s.notifs = append(s.notifs, &cp)
	return nil
}

func (s *InMemory) Notifications(ctx context.Context) ([]*notify.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]*notify.Notification, 0, len(s.notifs))
	for i := len(s.notifs) - 1; i >= 0; i-- {
		cp := *s.notifs[i]
		res = append(res, &cp)
	}
	return res, nil
}

func (s *InMemory) NotificationsByAddress(ctx context.Context, address string) ([]*notify.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []*notify.Notification
	for i := len(s.notifs) - 1; i >= 0; i-- {
		if s.notifs[i].Address == address {
			cp := *s.notifs[i]
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (s *InMemory) MarkNotificationRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifs {
		if n.ID == id {
			n.Read = true
			return nil
		}
	}
	return ErrNotFound
}

func (s *InMemory) UnreadNotifications(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, n := range s.notifs {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *InMemory) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st Stats
	for _, app := range s.apps {
		st.TotalApplications++
		st.AmountRequestedTotal += app.LoanAmountRequested
		switch app.Status {
		case StatusPending:
			st.Pending++
		case StatusUnderReview:
			st.UnderReview++
		case StatusDocumentsRequired:
			st.DocumentsRequired++
		case StatusApproved:
			st.Approved++
		case StatusRejected:
			st.Rejected++
		}
	}
	return st, nil
}

// copyApplication returns a deep copy so callers never alias store state.
func copyApplication(app *Application) *Application {
	cp := *app
	cp.Documents = append([]Document(nil), app.Documents...)
	return &cp
}
