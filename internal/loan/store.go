package loan

import (
	"context"

	"fairloan.org/internal/notify"
)

// WorkflowUpdate is a field-level partial update of an application's
// mutable workflow fields. A nil pointer leaves the stored value
// untouched; a pointer to the empty string clears a token or message.
type WorkflowUpdate struct {
	Status                 *Status
	ApprovalToken          *string
	DocumentUploadToken    *string
	DocumentRequestMessage *string
}

// Store describes the persistence operations the workflow requires from
// the record store collaborator: point lookups, field-equality lookups,
// partial updates, append-to-sequence, and count/sum aggregation.
type Store interface {
	CreateApplication(ctx context.Context, app *Application) error
	Application(ctx context.Context, id string) (*Application, error)
	Applications(ctx context.Context) ([]*Application, error)

	// UpdateWorkflow applies the partial update as a single write so a
	// reader can never observe a status without its matching token.
	UpdateWorkflow(ctx context.Context, id string, upd WorkflowUpdate) error

	ApplicationByApprovalToken(ctx context.Context, token string) (*Application, error)
	ApplicationByUploadToken(ctx context.Context, token string) (*Application, error)

	AppendDocument(ctx context.Context, appID string, doc Document) error

	// SubmitBanking creates the banking record, flips loan_accepted and
	// banking_info_submitted, and clears the approval token in one
	// conditional write. A writer that finds banking_info_submitted
	// already true gets ErrConflict, never a duplicate record.
	SubmitBanking(ctx context.Context, rec *BankingRecord) error
	BankingRecord(ctx context.Context, appID string) (*BankingRecord, error)

	CreateNotification(ctx context.Context, n *notify.Notification) error
	Notifications(ctx context.Context) ([]*notify.Notification, error)
	NotificationsByAddress(ctx context.Context, address string) ([]*notify.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	UnreadNotifications(ctx context.Context) (int64, error)

	Stats(ctx context.Context) (Stats, error)
}
