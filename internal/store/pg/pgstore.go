package pg

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"fairloan.org/internal/loan"
	"fairloan.org/internal/notify"
)

type Store struct {
	db *sql.DB
}

var _ loan.Store = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection, used by tests with sqlmock.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

const applicationColumns = `
	id, first_name, last_name, email, phone, date_of_birth,
	street_address, city, state, zip_code, annual_income, employment_status,
	loan_amount_requested, ssn_last_four,
	status, approval_token, document_upload_token, document_request_message,
	loan_accepted, banking_info_submitted, created_at`

func (s *Store) CreateApplication(ctx context.Context, app *loan.Application) error {
	_, err := s.db.ExecContext(ctx, `
		insert into applications(
			id, first_name, last_name, email, phone, date_of_birth,
			street_address, city, state, zip_code, annual_income, employment_status,
			loan_amount_requested, ssn_last_four,
			status, approval_token, document_upload_token, document_request_message,
			loan_accepted, banking_info_submitted, created_at
		) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
	`,
		app.ID, app.FirstName, app.LastName, app.Email, app.Phone, app.DateOfBirth,
		app.StreetAddress, app.City, app.State, app.ZipCode, app.AnnualIncome, app.EmploymentStatus,
		app.LoanAmountRequested, app.SSNLastFour,
		string(app.Status), app.ApprovalToken, app.DocumentUploadToken, app.DocumentRequestMessage,
		app.LoanAccepted, app.BankingInfoSubmitted, app.CreatedAt,
	)
	return err
}

func (s *Store) Application(ctx context.Context, id string) (*loan.Application, error) {
	row := s.db.QueryRowContext(ctx, `select `+applicationColumns+` from applications where id=$1`, id)
	app, err := scanApplication(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadDocuments(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *Store) Applications(ctx context.Context) ([]*loan.Application, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+applicationColumns+` from applications
		order by created_at desc, id desc
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*loan.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, app)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, app := range res {
		if err := s.loadDocuments(ctx, app); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (s *Store) UpdateWorkflow(ctx context.Context, id string, upd loan.WorkflowUpdate) error {
	var (
		set  []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, col+"=$"+strconv.Itoa(len(args)))
	}
	if upd.Status != nil {
		add("status", string(*upd.Status))
	}
	if upd.ApprovalToken != nil {
		add("approval_token", *upd.ApprovalToken)
	}
	if upd.DocumentUploadToken != nil {
		add("document_upload_token", *upd.DocumentUploadToken)
	}
	if upd.DocumentRequestMessage != nil {
		add("document_request_message", *upd.DocumentRequestMessage)
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := s.db.ExecContext(ctx,
		`update applications set `+strings.Join(set, ", ")+` where id=$`+strconv.Itoa(len(args)),
		args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return loan.ErrNotFound
	}
	return nil
}

func (s *Store) ApplicationByApprovalToken(ctx context.Context, token string) (*loan.Application, error) {
	return s.applicationByToken(ctx, "approval_token", token)
}

func (s *Store) ApplicationByUploadToken(ctx context.Context, token string) (*loan.Application, error) {
	return s.applicationByToken(ctx, "document_upload_token", token)
}

func (s *Store) applicationByToken(ctx context.Context, column, token string) (*loan.Application, error) {
	if token == "" {
		return nil, loan.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx,
		`select `+applicationColumns+` from applications where `+column+`=$1`, token)
	app, err := scanApplication(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadDocuments(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *Store) AppendDocument(ctx context.Context, appID string, doc loan.Document) error {
	res, err := s.db.ExecContext(ctx, `
		insert into documents(id, application_id, filename, stored_filename, content_type, size, uploaded_at)
		select $1,$2,$3,$4,$5,$6,$7 where exists (select 1 from applications where id=$2)
	`, doc.ID, appID, doc.Filename, doc.StoredFilename, doc.ContentType, doc.Size, doc.UploadedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return loan.ErrNotFound
	}
	return nil
}

func (s *Store) SubmitBanking(ctx context.Context, rec *loan.BankingRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Conditional flip: losers of the race see zero rows affected.
	res, err := tx.ExecContext(ctx, `
		update applications
		set loan_accepted=true, banking_info_submitted=true, approval_token=''
		where id=$1 and banking_info_submitted=false
	`, rec.ApplicationID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`select exists (select 1 from applications where id=$1)`, rec.ApplicationID,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return loan.ErrNotFound
		}
		return loan.ErrConflict
	}

	if _, err := tx.ExecContext(ctx, `
		insert into banking_records(
			application_id, account_number, account_number_last_four,
			routing_number, routing_number_last_four,
			card_number, card_last_four, card_cvv, card_expiration, submitted_at
		) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		rec.ApplicationID, rec.AccountNumber, rec.AccountNumberLastFour,
		rec.RoutingNumber, rec.RoutingNumberLastFour,
		rec.CardNumber, rec.CardLastFour, rec.CardCVV, rec.CardExpiration, rec.SubmittedAt,
	); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) BankingRecord(ctx context.Context, appID string) (*loan.BankingRecord, error) {
	var rec loan.BankingRecord
	err := s.db.QueryRowContext(ctx, `
		select application_id, account_number, account_number_last_four,
			routing_number, routing_number_last_four,
			card_number, card_last_four, card_cvv, card_expiration, submitted_at
		from banking_records where application_id=$1
	`, appID).Scan(
		&rec.ApplicationID, &rec.AccountNumber, &rec.AccountNumberLastFour,
		&rec.RoutingNumber, &rec.RoutingNumberLastFour,
		&rec.CardNumber, &rec.CardLastFour, &rec.CardCVV, &rec.CardExpiration, &rec.SubmittedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, loan.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) CreateNotification(ctx context.Context, n *notify.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		insert into notifications(id, recipient, address, application_id, subject, body, read, created_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8)
	`, n.ID, string(n.Recipient), n.Address, n.ApplicationID, n.Subject, n.Body, n.Read, n.CreatedAt)
	return err
}

func (s *Store) Notifications(ctx context.Context) ([]*notify.Notification, error) {
	return s.listNotifications(ctx, `
		select id, recipient, address, application_id, subject, body, read, created_at
		from notifications order by created_at desc, id desc
	`)
}

func (s *Store) NotificationsByAddress(ctx context.Context, address string) ([]*notify.Notification, error) {
	return s.listNotifications(ctx, `
		select id, recipient, address, application_id, subject, body, read, created_at
		from notifications where address=$1 order by created_at desc, id desc
	`, address)
}

func (s *Store) listNotifications(ctx context.Context, query string, args ...any) ([]*notify.Notification, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*notify.Notification
	for rows.Next() {
		var n notify.Notification
		var recipient string
		if err := rows.Scan(&n.ID, &recipient, &n.Address, &n.ApplicationID, &n.Subject, &n.Body, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Recipient = notify.RecipientClass(recipient)
		res = append(res, &n)
	}
	return res, rows.Err()
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `update notifications set read=true where id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return loan.ErrNotFound
	}
	return nil
}

func (s *Store) UnreadNotifications(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `select count(*) from notifications where read=false`).Scan(&count)
	return count, err
}

func (s *Store) Stats(ctx context.Context) (loan.Stats, error) {
	var st loan.Stats
	err := s.db.QueryRowContext(ctx, `
		select count(*),
			count(*) filter (where status='pending'),
			count(*) filter (where status='under_review'),
			count(*) filter (where status='documents_required'),
			count(*) filter (where status='approved'),
			count(*) filter (where status='rejected'),
			coalesce(sum(loan_amount_requested), 0)
		from applications
	`).Scan(&st.TotalApplications, &st.Pending, &st.UnderReview,
		&st.DocumentsRequired, &st.Approved, &st.Rejected, &st.AmountRequestedTotal)
	return st, err
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*loan.Application, error) {
	var app loan.Application
	var status string
	err := row.Scan(
		&app.ID, &app.FirstName, &app.LastName, &app.Email, &app.Phone, &app.DateOfBirth,
		&app.StreetAddress, &app.City, &app.State, &app.ZipCode, &app.AnnualIncome, &app.EmploymentStatus,
		&app.LoanAmountRequested, &app.SSNLastFour,
		&status, &app.ApprovalToken, &app.DocumentUploadToken, &app.DocumentRequestMessage,
		&app.LoanAccepted, &app.BankingInfoSubmitted, &app.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, loan.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	app.Status = loan.Status(status)
	return &app, nil
}

func (s *Store) loadDocuments(ctx context.Context, app *loan.Application) error {
	rows, err := s.db.QueryContext(ctx, `
		select id, filename, stored_filename, content_type, size, uploaded_at
		from documents where application_id=$1 order by uploaded_at asc, id asc
	`, app.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	app.Documents = []loan.Document{}
	for rows.Next() {
		var doc loan.Document
		if err := rows.Scan(&doc.ID, &doc.Filename, &doc.StoredFilename, &doc.ContentType, &doc.Size, &doc.UploadedAt); err != nil {
			return err
		}
		app.Documents = append(app.Documents, doc)
	}
	return rows.Err()
}
