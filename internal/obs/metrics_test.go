package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                              "/",
		"/metrics":                      "/metrics",
		"/v1/applications":              "/v1/applications",
		"/v1/applications?status=pending":                 "/v1/applications",
		"/v1/applications/01ABC":                          "/v1/applications/:id",
		"/v1/applications/01ABC/status":                   "/v1/applications/:id/status",
		"/v1/applications/01ABC/upload-document?token=xy": "/v1/applications/:id/upload-document",
		"/v1/applications/01ABC/banking-info":             "/v1/applications/:id/banking-info",
		"/v1/applications/01ABC/banking-info/full":        "/v1/applications/:id/banking-info/full",
		"/v1/applications/01ABC/documents/01DEF":          "/v1/applications/:id/documents/:doc",
		"/v1/applications/verify/deadbeef":                "/v1/applications/verify/:token",
		"/v1/applications/document-upload/deadbeef/verify": "/v1/applications/document-upload/:token/verify",
		"/v1/applications/accept-loan":                     "/v1/applications/accept-loan",
		"/v1/applications/calculate":                       "/v1/applications/calculate",
		"/v1/notifications/unread-count":                   "/v1/notifications/unread-count",
		"/v1/notifications/stream":                         "/v1/notifications/stream",
		"/v1/notifications/01GHJ/read":                     "/v1/notifications/:id/read",
		"/v1/notifications/applicant/a@b.c":                "/v1/notifications/applicant/:address",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
