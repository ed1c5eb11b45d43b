package notify

import "fmt"

// Composer builds notification content for workflow events. The zero value
// is usable; AdminAddress and PublicURL default to development values.
type Composer struct {
	AdminAddress string
	PublicURL    string
}

func (c Composer) adminAddress() string {
	if c.AdminAddress != "" {
		return c.AdminAddress
	}
	return "admin@fairloan.org"
}

func (c Composer) publicURL() string {
	if c.PublicURL != "" {
		return c.PublicURL
	}
	return "http://localhost:3000"
}

// StatusChanged composes the applicant and admin messages for a status
// transition. Callers must not invoke it for same-status edges; those are
// silent by design.
func (c Composer) StatusChanged(s Snapshot) []Notification {
	applicant := Notification{
		Recipient:     RecipientApplicant,
		Address:       s.Email,
		ApplicationID: s.ApplicationID,
	}

	switch s.NewStatus {
	case "under_review":
		applicant.Subject = "Your loan application is under review"
		applicant.Body = fmt.Sprintf(
			"Hi %s, your application for $%.2f is now being reviewed by our team. We will update you shortly.",
			s.FirstName, s.Amount)
	case "documents_required":
		applicant.Subject = "Additional documents required"
		applicant.Body = fmt.Sprintf(
			"Hi %s, we need additional documents to continue processing your application. %s Use your secure upload link: %s/upload-documents/%s",
			s.FirstName, s.RequestMessage, c.publicURL(), s.UploadToken)
	case "approved":
		applicant.Subject = "Your loan application has been approved"
		applicant.Body = fmt.Sprintf(
			"Congratulations %s! Your application for $%.2f has been approved.",
			s.FirstName, s.Amount)
		if s.ApprovalToken != "" {
			applicant.Body += fmt.Sprintf(
				" Use your secure link to accept the loan and provide disbursement details: %s/accept-loan/%s",
				c.publicURL(), s.ApprovalToken)
		}
	case "rejected":
		applicant.Subject = "Update on your loan application"
		applicant.Body = fmt.Sprintf(
			"Hi %s, after careful review we are unable to approve your application for $%.2f at this time.",
			s.FirstName, s.Amount)
	default:
		applicant.Subject = "Update on your loan application"
		applicant.Body = fmt.Sprintf("Hi %s, the status of your application changed to %s.",
			s.FirstName, s.NewStatus)
	}

	admin := Notification{
		Recipient:     RecipientAdmin,
		Address:       c.adminAddress(),
		ApplicationID: s.ApplicationID,
		Subject:       fmt.Sprintf("Application %s: %s -> %s", s.ApplicationID, s.OldStatus, s.NewStatus),
		Body: fmt.Sprintf("Application from %s (%s) moved from %s to %s.",
			s.fullName(), s.Email, s.OldStatus, s.NewStatus),
	}

	return []Notification{applicant, admin}
}

// LoanAccepted composes the messages emitted when banking details are
// submitted. Only masked fragments ever appear in notification bodies.
func (c Composer) LoanAccepted(s Snapshot, accountLastFour, cardLastFour string) []Notification {
	applicant := Notification{
		Recipient:     RecipientApplicant,
		Address:       s.Email,
		ApplicationID: s.ApplicationID,
		Subject:       "Loan accepted - disbursement pending",
		Body: fmt.Sprintf(
			"Hi %s, you have accepted your loan of $%.2f. Funds will be disbursed to the account ending in %s within 1-2 business days.",
			s.FirstName, s.Amount, accountLastFour),
	}
	admin := Notification{
		Recipient:     RecipientAdmin,
		Address:       c.adminAddress(),
		ApplicationID: s.ApplicationID,
		Subject:       fmt.Sprintf("Application %s ready for disbursement", s.ApplicationID),
		Body: fmt.Sprintf(
			"%s (%s) accepted the loan. Account ending %s, card ending %s. Ready for disbursement.",
			s.fullName(), s.Email, accountLastFour, cardLastFour),
	}
	return []Notification{applicant, admin}
}

// DocumentUploaded composes the admin message for a completed upload.
func (c Composer) DocumentUploaded(s Snapshot, filename string) []Notification {
	return []Notification{{
		Recipient:     RecipientAdmin,
		Address:       c.adminAddress(),
		ApplicationID: s.ApplicationID,
		Subject:       fmt.Sprintf("Document uploaded for application %s", s.ApplicationID),
		Body: fmt.Sprintf("%s (%s) uploaded %q for review.",
			s.fullName(), s.Email, filename),
	}}
}
