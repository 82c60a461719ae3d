package models

// TrialStatus is the trial-status payload returned by the court service.
type TrialStatus struct {
	UserID       string `json:"user_id,omitempty"`
	HasUsedTrial bool   `json:"has_used_trial"`
	IsPremium    bool   `json:"is_premium"`
}

// Exhausted reports whether the single free session is spent and the user
// has no subscription to fall back on.
func (s TrialStatus) Exhausted() bool {
	return s.HasUsedTrial && !s.IsPremium
}

type TurnRequest struct {
	UserArgument string `json:"user_argument"`
	CaseContext  string `json:"case_context"`
}

type TurnResponse struct {
	Response string `json:"response"`
}
