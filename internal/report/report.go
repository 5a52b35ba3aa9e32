package report

import (
	"time"

	"cleo-screening/internal/session"
)

const shortlistThreshold = 50.0

// QA pairs one screening question with the applicant's answer and its
// score.
type QA struct {
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Score    float64 `json:"score"`
}

// Report is the finalized screening outcome submitted downstream.
type Report struct {
	SessionID string `json:"session_id"`
	JobID     string `json:"job_id"`
	Company   string `json:"company"`

	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`

	EmailVerified bool `json:"email_verified"`
	PhoneVerified bool `json:"phone_verified"`

	Address          string  `json:"address"`
	LocationVerified bool    `json:"location_verified"`
	LocationFlagged  bool    `json:"location_flagged"`
	LocationReason   string  `json:"location_reason,omitempty"`
	DistanceMiles    float64 `json:"distance_miles,omitempty"`

	WorkExperience []string `json:"work_experience,omitempty"`
	EducationLevel string   `json:"education_level,omitempty"`

	KnockoutPassed  bool              `json:"knockout_passed"`
	Responses       []QA              `json:"responses"`
	KnockoutAnswers map[string]string `json:"knockout_answers"`

	Score      float64 `json:"score"`
	MaxScore   float64 `json:"max_score"`
	Percentage float64 `json:"percentage"`
	Status     string  `json:"status"`

	CompletedAt time.Time `json:"completed_at"`
}

// Build assembles the report from a finished session. The percentage is
// recomputed here and clamped to [0, 100]; the status line follows the
// shortlist threshold on the percentage.
func Build(s *session.State, completedAt time.Time) Report {
	percentage := 0.0
	if s.MaxScore > 0 {
		percentage = s.TotalScore / s.MaxScore * 100
	}
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}

	status := "Rejected"
	if percentage > shortlistThreshold {
		status = "Short Listed"
	}

	responses := make([]QA, 0, len(s.Job.Questions))
	for _, q := range s.Job.Questions {
		responses = append(responses, QA{
			Question: q,
			Answer:   s.Answers[q],
			Score:    s.Scores[q],
		})
	}

	return Report{
		SessionID:        s.ThreadID,
		JobID:            s.Job.JobID,
		Company:          s.Job.Company,
		Name:             s.Name,
		Email:            s.Email,
		Phone:            s.Phone,
		EmailVerified:    s.EmailOTP.Verified,
		PhoneVerified:    s.PhoneOTP.Verified,
		Address:          s.Address.Full,
		LocationVerified: s.LocationVerified,
		LocationFlagged:  s.LocationFlagged,
		LocationReason:   s.LocationReason,
		DistanceMiles:    s.DistanceMiles,
		WorkExperience:   s.WorkExperience,
		EducationLevel:   s.EducationLevel,
		KnockoutPassed:   s.KnockoutPassed,
		Responses:        responses,
		KnockoutAnswers:  s.KnockoutAnswers,
		Score:            s.TotalScore,
		MaxScore:         s.MaxScore,
		Percentage:       percentage,
		Status:           status,
		CompletedAt:      completedAt,
	}
}
