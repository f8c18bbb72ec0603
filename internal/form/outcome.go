package form

import (
	"idintake/internal/decision"
)

// OutcomeView is the content of one outcome screen.
type OutcomeView struct {
	Kind    string // css modifier
	Title   string
	Message string
	Detail  string
	Token   string
	Reasons []string
	Action  string
}

// NewOutcomeView maps a decision to its screen.
func NewOutcomeView(res decision.Result) OutcomeView {
	outcome := res.Outcome()
	v := OutcomeView{
		Kind:    outcome.Kind.String(),
		Token:   res.ApplicationToken,
		Reasons: res.Summary.OutcomeReasons,
		Action:  "Submit Another Application",
	}
	switch outcome.Kind {
	case decision.KindApproved:
		v.Title = "Success!"
		v.Message = "Congratulations! You have successfully created an account with our service."
	case decision.KindManualReview:
		v.Title = "Under Review"
		v.Message = "Thanks for submitting your application! We'll be in touch shortly with next steps."
		v.Detail = "Please save this token for your records. Our team will contact you within 1-2 business days."
	case decision.KindDenied:
		v.Title = "Application Not Approved"
		v.Message = "Sorry, your application was not successful."
		v.Detail = "If you believe this decision was made in error, please contact our support team."
		v.Action = "Try Again"
	default:
		v.Message = "Application processed. Outcome: " + outcome.Raw
	}
	return v
}
