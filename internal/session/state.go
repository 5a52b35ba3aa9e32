package session

import (
	"time"

	"cleo-screening/pkg"
)

// Role tags a conversation turn.
type Role string

const (
	RoleAssistant Role = "assistant"
	RoleApplicant Role = "applicant"
)

// Message is one turn of the conversation transcript.
type Message struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// FieldState tracks the validation retry loop for one collected field.
type FieldState struct {
	ValidationFailed bool   `json:"validation_failed"`
	InvalidAttempt   string `json:"invalid_attempt"`
	AttemptCount     int    `json:"attempt_count"`
}

// Reset clears the retry loop after a successful collection.
func (f *FieldState) Reset() {
	f.ValidationFailed = false
	f.InvalidAttempt = ""
	f.AttemptCount = 0
}

// OTPState tracks one verification channel (email or phone).
type OTPState struct {
	Code            string    `json:"code"`
	IssuedAt        time.Time `json:"issued_at"`
	Verified        bool      `json:"verified"`
	Attempts        int       `json:"attempts"`
	SendFailed      bool      `json:"send_failed"`
	ResendRequested bool      `json:"resend_requested"`
}

// Reset clears the channel back to its pre-send state. Verified is left
// alone so a verified channel is never un-verified by a later reset.
func (o *OTPState) Reset() {
	o.Code = ""
	o.IssuedAt = time.Time{}
	o.Attempts = 0
	o.SendFailed = false
	o.ResendRequested = false
}

// Address holds the structured postal address plus the raw text the
// applicant supplied.
type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
	Full   string `json:"full"`
}

// Coordinates is a GPS point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// State is the complete persisted session. Everything a resume needs
// lives here; nothing is kept in process memory between turns.
type State struct {
	ThreadID string         `json:"thread_id"`
	Job      pkg.JobContext `json:"job"`

	MessageLog []Message `json:"message_log"`

	ReadyConfirmed bool `json:"ready_confirmed"`

	KnockoutIndex         int               `json:"knockout_index"`
	KnockoutAnswers       map[string]string `json:"knockout_answers"`
	KnockoutPassed        bool              `json:"knockout_passed"`
	KnockoutFailedCurrent bool              `json:"knockout_failed_current"`

	QuestionIndex int               `json:"question_index"`
	Answers       map[string]string `json:"answers"`

	Scores     map[string]float64 `json:"scores"`
	TotalScore float64            `json:"total_score"`
	MaxScore   float64            `json:"max_score"`
	Percentage float64            `json:"percentage"`

	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`

	NameField      FieldState `json:"name_field"`
	EmailField     FieldState `json:"email_field"`
	PhoneField     FieldState `json:"phone_field"`
	AddressField   FieldState `json:"address_field"`
	EducationField FieldState `json:"education_field"`

	EmailOTP OTPState `json:"email_otp"`
	PhoneOTP OTPState `json:"phone_otp"`

	Address          Address      `json:"address"`
	GPS              *Coordinates `json:"gps,omitempty"`
	LocationVerified bool         `json:"location_verified"`
	LocationFlagged  bool         `json:"location_flagged"`
	LocationReason   string       `json:"location_reason"`
	DistanceMiles    float64      `json:"distance_miles"`

	WorkExperience []string `json:"work_experience"`
	EducationLevel string   `json:"education_level"`

	ReportSubmitted bool `json:"report_submitted"`

	// PendingNode is the suspend point awaiting applicant input.
	PendingNode string `json:"pending_node"`
	Terminal    bool   `json:"terminal"`
}

// New seeds a fresh session for the given thread and job.
func New(threadID string, job pkg.JobContext) *State {
	return &State{
		ThreadID:        threadID,
		Job:             job,
		MessageLog:      []Message{},
		KnockoutAnswers: map[string]string{},
		Answers:         map[string]string{},
		Scores:          map[string]float64{},
		MaxScore:        job.MaxPossibleScore(),
	}
}

// AppendAssistant records an outbound assistant turn.
func (s *State) AppendAssistant(content string, at time.Time) {
	s.MessageLog = append(s.MessageLog, Message{Role: RoleAssistant, Content: content, At: at})
}

// AppendApplicant records an inbound applicant turn.
func (s *State) AppendApplicant(content string, at time.Time) {
	s.MessageLog = append(s.MessageLog, Message{Role: RoleApplicant, Content: content, At: at})
}

// LastApplicantMessage returns the most recent applicant turn, or ""
// if the applicant has not spoken yet.
func (s *State) LastApplicantMessage() string {
	for i := len(s.MessageLog) - 1; i >= 0; i-- {
		if s.MessageLog[i].Role == RoleApplicant {
			return s.MessageLog[i].Content
		}
	}
	return ""
}

// CurrentKnockoutQuestion returns the knockout question awaiting an
// answer, or "" when the list is exhausted.
func (s *State) CurrentKnockoutQuestion() string {
	if s.KnockoutIndex < len(s.Job.KnockoutQuestions) {
		return s.Job.KnockoutQuestions[s.KnockoutIndex]
	}
	return ""
}

// CurrentQuestion returns the screening question awaiting an answer,
// or "" when the list is exhausted.
func (s *State) CurrentQuestion() string {
	if s.QuestionIndex < len(s.Job.Questions) {
		return s.Job.Questions[s.QuestionIndex]
	}
	return ""
}

// Reset rewinds the session for a fresh run of the same job. The
// transcript stays, as does the job context; everything collected is
// discarded.
func (s *State) Reset() {
	log := s.MessageLog
	fresh := New(s.ThreadID, s.Job)
	fresh.MessageLog = log
	*s = *fresh
}
