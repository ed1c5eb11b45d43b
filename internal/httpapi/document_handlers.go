package httpapi

import (
	"io"
	"net/http"
	"strconv"

	"fairloan.org/internal/audit"
	"fairloan.org/internal/loan"
	"fairloan.org/internal/obs"
)

func (a *API) verifyUploadToken(w http.ResponseWriter, r *http.Request, token string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	app, err := a.svc.VerifyUploadToken(r.Context(), token)
	if err != nil {
		handleLoanError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"application_id":  app.ID,
		"first_name":      app.FirstName,
		"last_name":       app.LastName,
		"status":          app.Status,
		"request_message": app.DocumentRequestMessage,
	})
}

func (a *API) uploadDocument(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		token = r.FormValue("token")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	// One byte past the ceiling is enough to detect an oversized upload.
	data, err := io.ReadAll(io.LimitReader(file, loan.MaxDocumentBytes+1))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "could not read file")
		return
	}

	doc, err := a.svc.UploadDocument(r.Context(), id, token, data, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		handleLoanError(w, r, err)
		return
	}

	obs.DocumentUploaded()
	_ = audit.LogEvent(r.Context(), "loan.document.upload", map[string]any{
		"application_id": id,
		"document_id":    doc.ID,
		"size":           doc.Size,
	})

	writeJSON(w, http.StatusCreated, doc)
}

func (a *API) downloadDocument(w http.ResponseWriter, r *http.Request, id, docID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if err := a.requireAdmin(r); err != nil {
		writeError(w, r, http.StatusUnauthorized, err.Error())
		return
	}

	doc, data, err := a.svc.FetchDocument(r.Context(), id, docID)
	if err != nil {
		handleLoanError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(doc.Size, 10))
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
