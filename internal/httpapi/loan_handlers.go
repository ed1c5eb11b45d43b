package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"fairloan.org/internal/audit"
	"fairloan.org/internal/loan"
	"fairloan.org/internal/obs"
)

type statusUpdateRequest struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (a *API) handleApplicationsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createApplication(w, r)
	case http.MethodGet:
		a.listApplications(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleApplicationResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/applications/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")

	switch parts[0] {
	case "verify":
		if len(parts) == 2 && parts[1] != "" {
			a.verifyApprovalToken(w, r, parts[1])
			return
		}
	case "document-upload":
		if len(parts) == 3 && parts[1] != "" && parts[2] == "verify" {
			a.verifyUploadToken(w, r, parts[1])
			return
		}
	case "accept-loan":
		if len(parts) == 1 {
			a.acceptLoan(w, r)
			return
		}
	case "calculate":
		if len(parts) == 1 {
			a.calculate(w, r)
			return
		}
	default:
		id := parts[0]
		switch {
		case len(parts) == 1:
			a.getApplication(w, r, id)
			return
		case len(parts) == 2 && parts[1] == "status":
			a.updateStatus(w, r, id)
			return
		case len(parts) == 2 && parts[1] == "upload-document":
			a.uploadDocument(w, r, id)
			return
		case len(parts) == 2 && parts[1] == "banking-info":
			a.getBankingInfo(w, r, id)
			return
		case len(parts) == 3 && parts[1] == "banking-info" && parts[2] == "full":
			a.getFullBankingRecord(w, r, id)
			return
		case len(parts) == 3 && parts[1] == "documents" && parts[2] != "":
			a.downloadDocument(w, r, id, parts[2])
			return
		}
	}
	writeError(w, r, http.StatusNotFound, "resource not found")
}

func (a *API) createApplication(w http.ResponseWriter, r *http.Request) {
	var in loan.Intake
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateIntake(&in); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	app, err := a.svc.CreateApplication(r.Context(), in)
	if err != nil {
		handleLoanError(w, r, err)
		return
	}

	obs.ApplicationCreated()
	_ = audit.LogEvent(r.Context(), "loan.application.create", map[string]any{
		"application_id": app.ID,
		"amount":         app.LoanAmountRequested,
	})

	w.Header().Set("Location", "/v1/applications/"+app.ID)
	writeJSON(w, http.StatusCreated, app)
}

func (a *API) listApplications(w http.ResponseWriter, r *http.Request) {
	if err := a.requireAdmin(r); err != nil {
		writeError(w, r, http.StatusUnauthorized, err.Error())
		return
	}
	apps, err := a.svc.Applications(r.Context())
	if err != nil {
		handleLoanError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": apps})
}

func (a *API) getApplication(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	app, err := a.svc.Application(r.Context(), id)
	if err != nil {
		handleLoanError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (a *API) updateStatus(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPatch {
		methodNotAllowed(w, r, http.MethodPatch)
		return
	}
	if err := a.requireAdmin(r); err != nil {
		writeError(w, r, http.StatusUnauthorized, err.Error())
		return
	}

	var req statusUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	before, err := a.svc.Application(r.Context(), id)
	if err != nil {
		handleLoanError(w, r, err)
		return
	}

	app, err := a.svc.Transition(r.Context(), id, loan.Status(req.Status), req.Message)
	if err != nil {
		handleLoanError(w, r, err)
		return
	}

	obs.StatusTransition(string(before.Status), string(app.Status))
	_ = audit.LogEvent(r.Context(), "loan.status.update", map[string]any{
		"application_id": id,
		"from":           string(before.Status),
		"to":             string(app.Status),
	})

	writeJSON(w, http.StatusOK, app)
}

func (a *API) verifyApprovalToken(w http.ResponseWriter, r *http.Request, token string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	app, err := a.svc.VerifyApprovalToken(r.Context(), token)
	if err != nil {
		handleLoanError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"application_id": app.ID,
		"first_name":     app.FirstName,
		"last_name":      app.LastName,
		"amount":         app.LoanAmountRequested,
		"status":         app.Status,
	})
}

func (a *API) acceptLoan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loan.AcceptLoanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.svc.AcceptLoan(r.Context(), req); err != nil {
		handleLoanError(w, r, err)
		return
	}

	obs.LoanAccepted()
	_ = audit.LogEvent(r.Context(), "loan.accept", map[string]any{
		"application_id": req.ApplicationID,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "accepted",
		"message": "Banking details received. Your funds are on the way.",
	})
}

func (a *API) getBankingInfo(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	info, err := a.svc.BankingInfo(r.Context(), id)
	if err != nil {
		handleLoanError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (a *API) getFullBankingRecord(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if err := a.requireAdmin(r); err != nil {
		writeError(w, r, http.StatusUnauthorized, err.Error())
		return
	}
	rec, err := a.svc.FullBankingRecord(r.Context(), id)
	if err != nil {
		handleLoanError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "loan.banking.full_disclosure", map[string]any{
		"application_id": id,
	})
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) calculate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	q := r.URL.Query()
	amount, err := strconv.ParseFloat(q.Get("amount"), 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "amount must be a number")
		return
	}
	rate, err := strconv.ParseFloat(q.Get("annual_rate"), 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "annual_rate must be a number")
		return
	}
	term, err := strconv.Atoi(q.Get("term_months"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "term_months must be an integer")
		return
	}

	quote, err := loan.Amortize(amount, rate, term)
	if err != nil {
		handleLoanError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func validateIntake(in *loan.Intake) error {
	trim := func(s *string) string {
		*s = strings.TrimSpace(*s)
		return *s
	}

	if n := trim(&in.FirstName); n == "" || len(n) > 50 {
		return fmt.Errorf("first_name must be 1-50 characters")
	}
	if n := trim(&in.LastName); n == "" || len(n) > 50 {
		return fmt.Errorf("last_name must be 1-50 characters")
	}
	email := trim(&in.Email)
	at := strings.Index(email, "@")
	if at < 1 || !strings.Contains(email[at:], ".") || strings.HasSuffix(email, ".") {
		return fmt.Errorf("email is malformed")
	}
	phone := trim(&in.Phone)
	if len(phone) < 10 || len(phone) > 15 || !allDigits(phone) {
		return fmt.Errorf("phone must be 10-15 digits")
	}
	if trim(&in.DateOfBirth) == "" {
		return fmt.Errorf("date_of_birth is required")
	}
	if trim(&in.StreetAddress) == "" {
		return fmt.Errorf("street_address is required")
	}
	if trim(&in.City) == "" {
		return fmt.Errorf("city is required")
	}
	if len(trim(&in.State)) != 2 {
		return fmt.Errorf("state must be a 2-letter code")
	}
	if z := trim(&in.ZipCode); len(z) < 5 || len(z) > 10 {
		return fmt.Errorf("zip_code must be 5-10 characters")
	}
	if in.AnnualIncome <= 0 {
		return fmt.Errorf("annual_income must be > 0")
	}
	if trim(&in.EmploymentStatus) == "" {
		return fmt.Errorf("employment_status is required")
	}
	if in.LoanAmountRequested < 100 || in.LoanAmountRequested > 5000 {
		return fmt.Errorf("loan_amount_requested must be between 100 and 5000")
	}
	if ssn := trim(&in.SSNLastFour); len(ssn) != 4 || !allDigits(ssn) {
		return fmt.Errorf("ssn_last_four must be exactly 4 digits")
	}
	return nil
}

func allDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}
