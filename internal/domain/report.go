package domain

import "time"

// UserReport pairs a user's canonical activity with its score.
type UserReport struct {
	Activity UserActivity      `json:"activity"`
	Score    ContributionScore `json:"score"`
}

// Report is the final aggregate of one run.
type Report struct {
	RunID         string       `json:"run_id"`
	Team          string       `json:"team,omitempty"`
	Backend       string       `json:"backend"`
	GeneratedAt   time.Time    `json:"generated_at"`
	Since         time.Time    `json:"since"`
	Window        string       `json:"window"`
	Organizations []OrgStats   `json:"organizations"`
	Repositories  []Repository `json:"repositories"`
	Users         []UserReport `json:"users"`
	Summary       TeamSummary  `json:"summary"`
}

// ActiveUsers returns the users with any commits or reviews.
func (r *Report) ActiveUsers() []UserReport {
	active := make([]UserReport, 0, len(r.Users))
	for _, u := range r.Users {
		if u.Activity.Active() {
			active = append(active, u)
		}
	}
	return active
}
