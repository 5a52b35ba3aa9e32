package flow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cleo-screening/internal/checkpoint"
	"cleo-screening/internal/engine"
	"cleo-screening/internal/location"
	"cleo-screening/internal/report"
	"cleo-screening/pkg"
)

// ==================== collaborator fakes ====================

type classifierFunc func(ctx context.Context, question, answer string, allowed []string) (string, error)

func (f classifierFunc) Classify(ctx context.Context, q, a string, allowed []string) (string, error) {
	return f(ctx, q, a, allowed)
}

type extractorFunc func(ctx context.Context, kind, text string) (string, error)

func (f extractorFunc) Extract(ctx context.Context, kind, text string) (string, error) {
	return f(ctx, kind, text)
}

type scorerFunc func(ctx context.Context, answers map[string]string, rules map[string]pkg.ScoringRule) (map[string]float64, error)

func (f scorerFunc) Score(ctx context.Context, a map[string]string, r map[string]pkg.ScoringRule) (map[string]float64, error) {
	return f(ctx, a, r)
}

type fakeEmailSender struct {
	codes []string
	err   error
}

func (f *fakeEmailSender) SendEmailOTP(_ context.Context, _, code string) error {
	if f.err != nil {
		return f.err
	}
	f.codes = append(f.codes, code)
	return nil
}

type fakeSMSSender struct {
	codes []string
	err   error
}

func (f *fakeSMSSender) SendSMSOTP(_ context.Context, _, code string) error {
	if f.err != nil {
		return f.err
	}
	f.codes = append(f.codes, code)
	return nil
}

type fakeChecker struct {
	result location.CheckResult
}

func (f *fakeChecker) CrossCheck(context.Context, string, float64, float64) location.CheckResult {
	return f.result
}

type fakeSink struct {
	reports []report.Report
	err     error
}

func (f *fakeSink) Submit(_ context.Context, r report.Report) error {
	if f.err != nil {
		return f.err
	}
	f.reports = append(f.reports, r)
	return nil
}

// defaultClassifier says yes to readiness and fails knockout answers
// containing "no way".
func defaultClassifier(_ context.Context, _, answer string, allowed []string) (string, error) {
	if allowed[0] == "PASS" {
		if strings.Contains(strings.ToLower(answer), "no way") {
			return "FAIL", nil
		}
		return "PASS", nil
	}
	if affirmative(answer) {
		return "yes", nil
	}
	return "no", nil
}

// passthroughExtractor returns the raw text for every kind.
func passthroughExtractor(_ context.Context, _, text string) (string, error) {
	return strings.TrimSpace(text), nil
}

func testJob() pkg.JobContext {
	return pkg.JobContext{
		JobID:   "crew_member",
		Company: "Big Chicken",
		KnockoutQuestions: []string{
			"Are you at least 18 years old?",
			"Are you legally eligible to work in the U.S.?",
		},
		Questions: []string{
			"How many years of relevant work experience do you have?",
			"What interests you about this position?",
		},
		ScoringRules: map[string]pkg.ScoringRule{
			"How many years of relevant work experience do you have?": {Rule: "Score = years * 3", Score: 10},
			"What interests you about this position?":                 {Rule: "Detailed answer -> 10, Brief -> 4", Score: 10},
		},
	}
}

// harness wires a flow with fakes onto an engine over a memory store.
type harness struct {
	t       *testing.T
	eng     *engine.Engine
	store   *checkpoint.MemoryStore
	flow    *Flow
	email   *fakeEmailSender
	sms     *fakeSMSSender
	sink    *fakeSink
	checker *fakeChecker
	clock   *time.Time
}

func newHarness(t *testing.T, cfg Config, deps Collaborators) *harness {
	t.Helper()

	h := &harness{t: t}
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	h.clock = &now

	if deps.Classifier == nil {
		deps.Classifier = classifierFunc(defaultClassifier)
	}
	if deps.Extractor == nil {
		deps.Extractor = extractorFunc(passthroughExtractor)
	}
	if deps.Scorer == nil {
		deps.Scorer = scorerFunc(func(context.Context, map[string]string, map[string]pkg.ScoringRule) (map[string]float64, error) {
			return map[string]float64{
				"How many years of relevant work experience do you have?": 9,
				"What interests you about this position?":                 8,
			}, nil
		})
	}
	if deps.Email == nil {
		h.email = &fakeEmailSender{}
		deps.Email = h.email
	}
	if deps.SMS == nil {
		h.sms = &fakeSMSSender{}
		deps.SMS = h.sms
	}
	if deps.Location == nil {
		h.checker = &fakeChecker{result: location.CheckResult{Verified: true, DistanceMiles: 0.2}}
		deps.Location = h.checker
	}
	if deps.Sink == nil {
		h.sink = &fakeSink{}
		deps.Sink = h.sink
	}

	if cfg.Company == "" {
		cfg.Company = "Big Chicken"
	}

	h.flow = New(cfg, deps, zerolog.Nop())
	h.flow.now = func() time.Time { return *h.clock }

	h.store = checkpoint.NewMemoryStore()
	eng, err := engine.New(h.flow.Graph(), h.store, zerolog.Nop())
	require.NoError(t, err)
	h.eng = eng
	return h
}

func (h *harness) begin() *engine.Result {
	return h.beginJob(testJob())
}

func (h *harness) beginJob(job pkg.JobContext) *engine.Result {
	h.t.Helper()
	res, err := h.eng.Begin(context.Background(), "t1", job)
	require.NoError(h.t, err)
	return res
}

func (h *harness) say(text string) *engine.Result {
	h.t.Helper()
	res, err := h.eng.Resume(context.Background(), "t1", text)
	require.NoError(h.t, err)
	return res
}

// advanceToEmail walks consent, knockout, and name collection.
func (h *harness) advanceToEmail() {
	h.t.Helper()
	h.begin()
	h.say("yes")                // greeting -> check_ready -> ask_knockout
	h.say("yes I am")           // knockout 1
	h.say("yes of course")      // knockout 2 -> ask_name
	h.say("Jane Doe")           // -> ask_email
}

// advanceToQuestions walks all the way to the first screening question.
func (h *harness) advanceToQuestions() {
	h.t.Helper()
	h.advanceToEmail()
	h.say("jane@example.com")
	h.say(h.email.codes[len(h.email.codes)-1]) // email code -> ask_phone
	h.say("2345678900")
	h.say(h.sms.codes[len(h.sms.codes)-1]) // phone code -> ask_address
	h.say("123 Main St, New York, NY 10001")
	h.say("40.7128, -74.0060") // -> ask_experience
	h.say("Cashier, Barista")  // -> ask_education
	h.say("High school")       // -> ask_question
}

// ==================== scenarios ====================

func TestHappyPathEndToEnd(t *testing.T) {
	h := newHarness(t, Config{}, Collaborators{})

	res := h.begin()
	require.Len(t, res.Messages, 3)
	assert.Contains(t, res.Messages[0], "Big Chicken")

	// Same walk as advanceToQuestions, without its duplicate Begin:
	// the session was already started by h.begin() above.
	h.say("yes")           // greeting -> check_ready -> ask_knockout
	h.say("yes I am")      // knockout 1
	h.say("yes of course") // knockout 2 -> ask_name
	h.say("Jane Doe")      // -> ask_email
	h.say("jane@example.com")
	h.say(h.email.codes[len(h.email.codes)-1]) // email code -> ask_phone
	h.say("2345678900")
	h.say(h.sms.codes[len(h.sms.codes)-1]) // phone code -> ask_address
	h.say("123 Main St, New York, NY 10001")
	h.say("40.7128, -74.0060") // -> ask_experience
	h.say("Cashier, Barista")  // -> ask_education
	h.say("High school")       // -> ask_question

	h.say("3 years") // question 1
	res = h.say("I love the team") // question 2 -> score -> summarize -> finish -> END
	assert.True(t, res.Terminal)
	assert.Contains(t, res.Messages[0], "successfully completed")

	state, err := h.store.Load(context.Background(), "t1")
	require.NoError(t, err)
	assert.True(t, state.Terminal)
	assert.Equal(t, 17.0, state.TotalScore)
	assert.InDelta(t, 85.0, state.Percentage, 0.001)
	assert.Equal(t, "Jane Doe", state.Name)
	assert.Equal(t, "jane@example.com", state.Email)
	assert.True(t, state.EmailOTP.Verified)
	assert.True(t, state.PhoneOTP.Verified)
	assert.True(t, state.LocationVerified)
	assert.True(t, state.ReportSubmitted)

	require.Len(t, h.sink.reports, 1)
	r := h.sink.reports[0]
	assert.Equal(t, "Short Listed", r.Status)
	assert.InDelta(t, 85.0, r.Percentage, 0.001)
	assert.Equal(t, "High school", r.EducationLevel)
	assert.Equal(t, []string{"Cashier", "Barista"}, r.WorkExperience)
}

func TestDeclineEndsSession(t *testing.T) {
	h := newHarness(t, Config{}, Collaborators{})
	h.begin()
	res := h.say("no thanks, not right now")
	assert.True(t, res.Terminal)
	require.Len(t, res.Messages, 1)
	assert.Contains(t, res.Messages[0], "No problem at all")
}

func TestKnockoutFailureTerminatesEarly(t *testing.T) {
	h := newHarness(t, Config{}, Collaborators{})
	h.begin()
	h.say("yes")
	res := h.say("no way, I'm 16") // first knockout answer fails
	assert.True(t, res.Terminal)
	require.Len(t, res.Messages, 1)
	assert.Contains(t, res.Messages[0], "don't meet our basic requirements")

	state, err := h.store.Load(context.Background(), "t1")
	require.NoError(t, err)
	assert.True(t, state.KnockoutFailedCurrent)
	assert.False(t, state.KnockoutPassed)
	// The second knockout question was never asked.
	assert.Len(t, state.KnockoutAnswers, 1)
	assert.Empty(t, h.sink.reports)
}

func TestNoKnockoutQuestionsSkipsGate(t *testing.T) {
	h := newHarness(t, Config{}, Collaborators{})
	job := testJob()
	job.KnockoutQuestions = nil
	h.beginJob(job)

	res := h.say("yes")
	assert.False(t, res.Terminal)
	assert.Contains(t, res.Messages[len(res.Messages)-1], "first and last name")

	state, err := h.store.Load(context.Background(), "t1")
	require.NoError(t, err)
	assert.True(t, state.KnockoutPassed)
}

func TestKnockoutClassifierOutageLeansPass(t *testing.T) {
	deps := Collaborators{
		Classifier: classifierFunc(func(_ context.Context, _, answer string, allowed []string) (string, error) {
			if allowed[0] == "PASS" {
				return "", errors.New("model down")
			}
			return "yes", nil
		}),
	}
	h := newHarness(t, Config{}, deps)
	h.begin()
	h.say("yes")
	h.say("anything")
	res := h.say("anything else") // both knockouts pass on fallback
	assert.False(t, res.Terminal)
	assert.Contains(t, res.Messages[len(res.Messages)-1], "first and last name")
}

func TestNameReasksUntilNonEmpty(t *testing.T) {
	h := newHarness(t, Config{}, Collaborators{})
	h.begin()
	h.say("yes")
	h.say("yes I am")
	h.say("yes of course") // -> ask_name

	res := h.say("   ")
	require.Len(t, res.Messages, 1)
	assert.Contains(t, res.Messages[0], "valid name")

	res = h.say("Jane Doe")
	assert.Contains(t, res.Messages[0], "email address")

	state, err := h.store.Load(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", state.Name)
	assert.False(t, state.NameField.ValidationFailed)
}

func TestEducationReasksUntilNonEmpty(t *testing.T) {
	h := newHarness(t, Config{}, Collaborators{})
	h.advanceToEmail()
	h.say("jane@example.com")
	h.say(h.email.codes[0])
	h.say("2345678900")
	h.say(h.sms.codes[0])
	h.say("123 Main St, New York, NY 10001")
	h.say("skip")
	h.say("Cashier") // -> ask_education

	res := h.say("  ")
	require.Len(t, res.Messages, 1)
	assert.Contains(t, res.Messages[0], "valid education level")

	res = h.say("High school")
	assert.Contains(t, res.Messages[0], "moving on")

	state, err := h.store.Load(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "High school", state.EducationLevel)
}

func TestEmailRetryEscalatesToExample(t *testing.T) {
	h := newHarness(t, Config{}, Collaborators{})
	h.advanceToEmail()

	res := h.say("not an email")
	assert.NotContains(t, res.Messages[0], emailExample)

	res = h.say("still wrong")
	assert.NotContains(t, res.Messages[0], emailExample)

	res = h.say("nope")
	assert.Contains(t, res.Messages[0], emailExample)

	// Success resets the counter and moves on to verification.
	res = h.say("jane@example.com")
	assert.Contains(t, res.Messages[0], "sent a 6-digit verification code to jane@example.com")

	state, err := h.store.Load(context.Background(), "t1")
	require.NoError(t, err)
	assert.Zero(t, state.EmailField.AttemptCount)
	assert.False(t, state.EmailField.ValidationFailed)
}

func TestEmailOTPIncorrectThreeTimesRecollects(t *testing.T) {
	h := newHarness(t, Config{}, Collaborators{})
	h.advanceToEmail()
	h.say("jane@example.com")

	h.say("000000")
	res := h.say("111111")
	assert.Contains(t, res.Messages[0], "Attempt 2/3")

	res = h.say("222222")
	require.Len(t, res.Messages, 2)
	assert.Contains(t, res.Messages[0], "start over with your email address")
	assert.Contains(t, res.Messages[1], "doesn't look like a valid email")

	// Re-collection works and issues a fresh code.
	res = h.say("jane@example.com")
	assert.Contains(t, res.Messages[0], "verification code")
	assert.Len(t, h.email.codes, 2)

	state, err := h.store.Load(context.Background(), "t1")
	require.NoError(t, err)
	assert.Zero(t, state.EmailOTP.Attempts)
}

func TestEmailOTPResendCommand(t *testing.T) {
	h := newHarness(t, Config{}, Collaborators{})
	h.advanceToEmail()
	h.say("jane@example.com")
	h.say("000000") // one wrong attempt

	res := h.say("resend")
	assert.Contains(t, res.Messages[0], "verification code")
	require.Len(t, h.email.codes, 2)

	// The fresh code verifies with a clean attempt counter.
	res = h.say(h.email.codes[1])
	assert.Contains(t, res.Messages[0], "email address is confirmed")
}

func TestEmailOTPExpiredAutoResends(t *testing.T) {
	h := newHarness(t, Config{}, Collaborators{})
	h.advanceToEmail()
	h.say("jane@example.com")

	*h.clock = h.clock.Add(6 * time.Minute) // past the 5 minute window
	res := h.say(h.email.codes[0])
	require.Len(t, res.Messages, 3)
	assert.Contains(t, res.Messages[0], "expired")
	assert.Contains(t, res.Messages[1], "verification code")
	require.Len(t, h.email.codes, 2)

	res = h.say(h.email.codes[1])
	assert.Contains(t, res.Messages[0], "confirmed")
}

func TestEmailSendFailureRoutesBackToCollection(t *testing.T) {
	email := &fakeEmailSender{err: errors.New("provider down")}
	h := newHarness(t, Config{}, Collaborators{Email: email})
	h.email = email
	h.advanceToEmail()

	res := h.say("jane@example.com")
	require.Len(t, res.Messages, 2)
	assert.Contains(t, res.Messages[0], "unable to send")
	assert.Contains(t, res.Messages[1], "double-check")

	// Provider recovers; the same address goes through.
	email.err = nil
	res = h.say("jane@example.com")
	assert.Contains(t, res.Messages[0], "verification code")
}

func TestPhoneOTPExhaustionRecollectsPhone(t *testing.T) {
	h := newHarness(t, Config{}, Collaborators{})
	h.advanceToEmail()
	h.say("jane@example.com")
	h.say(h.email.codes[0])
	h.say("2345678900")

	h.say("000000")
	h.say("111111")
	res := h.say("222222")
	require.Len(t, res.Messages, 2)
	assert.Contains(t, res.Messages[0], "start over with your phone number")

	res = h.say("2345678900")
	assert.Contains(t, res.Messages[0], "verification text")
	assert.Len(t, h.sms.codes, 2)
}

func TestGPSSkipIsAdvisory(t *testing.T) {
	h := newHarness(t, Config{}, Collaborators{})
	h.advanceToEmail()
	h.say("jane@example.com")
	h.say(h.email.codes[0])
	h.say("2345678900")
	h.say(h.sms.codes[0])
	h.say("123 Main St, New York, NY 10001")

	res := h.say("skip")
	assert.Contains(t, res.Messages[0], "work experience")

	// Skipping counts as verified; only a failed cross-check flags.
	state, err := h.store.Load(context.Background(), "t1")
	require.NoError(t, err)
	assert.True(t, state.LocationVerified)
	assert.False(t, state.LocationFlagged)
	assert.Contains(t, state.LocationReason, "skipped")
}

func TestUnreadableLocationCountsAsVerified(t *testing.T) {
	h := newHarness(t, Config{}, Collaborators{})
	h.advanceToEmail()
	h.say("jane@example.com")
	h.say(h.email.codes[0])
	h.say("2345678900")
	h.say(h.sms.codes[0])
	h.say("123 Main St, New York, NY 10001")

	res := h.say("I'm near the mall somewhere")
	assert.Contains(t, res.Messages[0], "work experience")

	state, err := h.store.Load(context.Background(), "t1")
	require.NoError(t, err)
	assert.True(t, state.LocationVerified)
	assert.False(t, state.LocationFlagged)
	assert.Contains(t, state.LocationReason, "could not be read")
}

func TestFlaggedLocationStillAdvances(t *testing.T) {
	checker := &fakeChecker{result: location.CheckResult{
		Flagged:       true,
		Reason:        "GPS location is 4.2 miles from provided address",
		DistanceMiles: 4.2,
	}}
	h := newHarness(t, Config{}, Collaborators{Location: checker})
	h.advanceToEmail()
	h.say("jane@example.com")
	h.say(h.email.codes[0])
	h.say("2345678900")
	h.say(h.sms.codes[0])
	h.say("123 Main St, New York, NY 10001")

	res := h.say("40.79, -74.0060")
	assert.Contains(t, res.Messages[0], "work experience")

	state, err := h.store.Load(context.Background(), "t1")
	require.NoError(t, err)
	assert.True(t, state.LocationFlagged)
	assert.Equal(t, 4.2, state.DistanceMiles)
}

func TestScorerFailureYieldsZeroScores(t *testing.T) {
	scorer := scorerFunc(func(context.Context, map[string]string, map[string]pkg.ScoringRule) (map[string]float64, error) {
		return nil, errors.New("model down")
	})
	h := newHarness(t, Config{}, Collaborators{Scorer: scorer})
	h.advanceToQuestions()
	h.say("3 years")
	res := h.say("I love the team")
	assert.True(t, res.Terminal)

	require.Len(t, h.sink.reports, 1)
	assert.Equal(t, 0.0, h.sink.reports[0].Score)
	assert.Equal(t, 0.0, h.sink.reports[0].Percentage)
	assert.Equal(t, "Rejected", h.sink.reports[0].Status)
}

func TestSinkFailureStillFinishesConversation(t *testing.T) {
	sink := &fakeSink{err: errors.New("intake down")}
	h := newHarness(t, Config{ReportRetryBudget: time.Second}, Collaborators{Sink: sink})
	h.sink = sink
	h.advanceToQuestions()
	h.say("3 years")
	res := h.say("I love the team")
	assert.True(t, res.Terminal)
	assert.Contains(t, res.Messages[0], "successfully completed")

	state, err := h.store.Load(context.Background(), "t1")
	require.NoError(t, err)
	assert.False(t, state.ReportSubmitted)
}

func TestReArmRestartsWithSameJob(t *testing.T) {
	h := newHarness(t, Config{ReArm: true}, Collaborators{})
	h.advanceToQuestions()
	h.say("3 years")
	res := h.say("I love the team")

	assert.False(t, res.Terminal)
	// The closing copy is followed by a fresh greeting.
	last := res.Messages[len(res.Messages)-1]
	assert.Contains(t, last, "quick screening")

	state, err := h.store.Load(context.Background(), "t1")
	require.NoError(t, err)
	assert.False(t, state.Terminal)
	assert.Empty(t, state.Name)
	assert.Equal(t, "crew_member", state.Job.JobID)
	assert.Equal(t, nodeGreeting, state.PendingNode)
	// The transcript survives the reset.
	assert.Greater(t, len(state.MessageLog), 10)
	require.Len(t, h.sink.reports, 1)
}

func TestGraphValidates(t *testing.T) {
	h := newHarness(t, Config{}, Collaborators{})
	require.NoError(t, h.flow.Graph().Validate())
}
