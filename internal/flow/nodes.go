package flow

import (
	"context"
	"strings"

	"cleo-screening/internal/otp"
	"cleo-screening/internal/report"
	"cleo-screening/internal/session"
)

// extractOr runs the extractor and falls back to the raw message when
// the extractor fails or finds nothing.
func (f *Flow) extractOr(ctx context.Context, s *session.State, kind, text string) string {
	value, err := f.deps.Extractor.Extract(ctx, kind, text)
	if err != nil {
		f.logger.Warn().Err(err).
			Str("thread_id", s.ThreadID).
			Str("kind", kind).
			Msg("extractor unavailable, using raw input")
		return strings.TrimSpace(text)
	}
	if value == "" {
		return strings.TrimSpace(text)
	}
	return value
}

// ==================== greeting and consent ====================

func (f *Flow) greeting(_ context.Context, s *session.State) error {
	for _, msg := range greetingMessages(f.cfg.Company) {
		s.AppendAssistant(msg, f.now())
	}
	return nil
}

func (f *Flow) checkReady(ctx context.Context, s *session.State) error {
	answer := s.LastApplicantMessage()

	label, err := f.deps.Classifier.Classify(ctx,
		"Is the applicant ready to begin the screening?", answer, []string{"yes", "no"})
	if err != nil {
		f.logger.Warn().Err(err).
			Str("thread_id", s.ThreadID).
			Msg("readiness classifier unavailable, using keyword fallback")
		if affirmative(answer) {
			label = "yes"
		} else {
			label = "no"
		}
	}

	s.ReadyConfirmed = label == "yes"
	return nil
}

func (f *Flow) acknowledge(_ context.Context, s *session.State) error {
	s.AppendAssistant(acknowledgeMessage, f.now())
	// A job with no knockout questions goes straight to collection.
	if len(s.Job.KnockoutQuestions) == 0 {
		s.KnockoutPassed = true
	}
	return nil
}

func (f *Flow) decline(_ context.Context, s *session.State) error {
	s.AppendAssistant(declineMessage, f.now())
	return nil
}

// ==================== knockout gate ====================

func (f *Flow) askKnockout(_ context.Context, s *session.State) error {
	if q := s.CurrentKnockoutQuestion(); q != "" {
		s.AppendAssistant(q, f.now())
	}
	return nil
}

func (f *Flow) storeKnockout(_ context.Context, s *session.State) error {
	if q := s.CurrentKnockoutQuestion(); q != "" {
		s.KnockoutAnswers[q] = s.LastApplicantMessage()
	}
	return nil
}

// evaluateKnockout judges the answer just stored. A classifier outage
// leans PASS so a model hiccup never rejects an applicant.
func (f *Flow) evaluateKnockout(ctx context.Context, s *session.State) error {
	question := s.CurrentKnockoutQuestion()
	if question == "" {
		s.KnockoutPassed = true
		return nil
	}
	answer := s.KnockoutAnswers[question]

	label, err := f.deps.Classifier.Classify(ctx, question, answer, []string{"PASS", "FAIL"})
	if err != nil {
		f.logger.Warn().Err(err).
			Str("thread_id", s.ThreadID).
			Msg("knockout classifier unavailable, passing answer")
		label = "PASS"
	}

	if label == "FAIL" {
		s.KnockoutFailedCurrent = true
		s.AppendAssistant(knockoutFailureMessage, f.now())
		return nil
	}

	s.KnockoutIndex++
	if s.KnockoutIndex >= len(s.Job.KnockoutQuestions) {
		s.KnockoutPassed = true
	}
	return nil
}

// ==================== name ====================

func (f *Flow) askName(_ context.Context, s *session.State) error {
	if s.NameField.ValidationFailed {
		s.AppendAssistant(reaskMessage("name", s.NameField.InvalidAttempt), f.now())
		return nil
	}
	s.AppendAssistant(askNameMessage, f.now())
	return nil
}

func (f *Flow) storeName(ctx context.Context, s *session.State) error {
	name := strings.TrimSpace(f.extractOr(ctx, s, "name", s.LastApplicantMessage()))
	if name == "" {
		s.NameField.ValidationFailed = true
		s.NameField.InvalidAttempt = name
		s.NameField.AttemptCount++
		return nil
	}
	s.Name = name
	s.NameField.Reset()
	return nil
}

// ==================== email collection ====================

func (f *Flow) askEmail(_ context.Context, s *session.State) error {
	// Coming back from a send failure or an exhausted code leaves the
	// channel dirty; re-collection starts it over.
	if s.EmailOTP.SendFailed || s.EmailOTP.Attempts >= f.cfg.MaxOTPAttempts {
		s.EmailOTP.Reset()
	}

	switch {
	case !s.EmailField.ValidationFailed:
		s.AppendAssistant(askEmailMessage, f.now())
	case s.EmailField.AttemptCount >= f.cfg.MaxFieldAttempts:
		s.AppendAssistant(reaskWithExampleMessage("email", s.EmailField.InvalidAttempt, emailExample), f.now())
	default:
		s.AppendAssistant(reaskMessage("email", s.EmailField.InvalidAttempt), f.now())
	}
	return nil
}

func (f *Flow) storeEmail(ctx context.Context, s *session.State) error {
	email := strings.ToLower(f.extractOr(ctx, s, "email", s.LastApplicantMessage()))

	if validEmail(email) {
		s.Email = strings.TrimSpace(email)
		s.EmailField.Reset()
		return nil
	}

	s.EmailField.ValidationFailed = true
	s.EmailField.InvalidAttempt = email
	s.EmailField.AttemptCount++
	return nil
}

// ==================== email verification ====================

func (f *Flow) sendEmailOTP(ctx context.Context, s *session.State) error {
	code, err := otp.GenerateCode()
	if err != nil {
		return err
	}

	s.EmailOTP.Reset()
	s.EmailOTP.Code = code
	s.EmailOTP.IssuedAt = f.now()

	if err := f.deps.Email.SendEmailOTP(ctx, s.Email, code); err != nil {
		f.logger.Warn().Err(err).
			Str("thread_id", s.ThreadID).
			Msg("email code delivery failed")
		s.EmailOTP.SendFailed = true
		s.EmailField.ValidationFailed = true
		s.EmailField.InvalidAttempt = s.Email
		s.AppendAssistant(otpSendFailureMessage, f.now())
		return nil
	}

	s.AppendAssistant(emailOTPSentMessage(s.Email), f.now())
	return nil
}

func (f *Flow) askEmailOTP(_ context.Context, s *session.State) error {
	s.AppendAssistant(askEmailOTPMessage, f.now())
	return nil
}

func (f *Flow) verifyEmailOTP(_ context.Context, s *session.State) error {
	input := s.LastApplicantMessage()

	if otp.IsResendCommand(input) {
		s.EmailOTP.Attempts = 0
		s.EmailOTP.ResendRequested = true
		return nil
	}

	switch otp.Verify(input, s.EmailOTP.Code, s.EmailOTP.IssuedAt, f.cfg.EmailOTPTTL, f.now()) {
	case otp.Valid:
		s.EmailOTP.Verified = true
		s.AppendAssistant(emailOTPSuccessMessage, f.now())
	case otp.Expired:
		s.EmailOTP.Attempts = 0
		s.EmailOTP.ResendRequested = true
		s.AppendAssistant(otpExpiredMessage, f.now())
	case otp.InvalidFormat:
		s.AppendAssistant(otpBadFormatMessage, f.now())
	case otp.Incorrect:
		s.EmailOTP.Attempts++
		if s.EmailOTP.Attempts >= f.cfg.MaxOTPAttempts {
			s.EmailField.ValidationFailed = true
			s.AppendAssistant(emailOTPFailureMessage, f.now())
		} else {
			s.AppendAssistant(otpIncorrectMessage(s.EmailOTP.Attempts, f.cfg.MaxOTPAttempts), f.now())
		}
	}
	return nil
}

// ==================== phone collection ====================

func (f *Flow) askPhone(_ context.Context, s *session.State) error {
	if s.PhoneOTP.SendFailed || s.PhoneOTP.Attempts >= f.cfg.MaxOTPAttempts {
		s.PhoneOTP.Reset()
	}

	switch {
	case !s.PhoneField.ValidationFailed:
		s.AppendAssistant(askPhoneMessage, f.now())
	case s.PhoneField.AttemptCount >= f.cfg.MaxFieldAttempts:
		s.AppendAssistant(reaskWithExampleMessage("phone number", s.PhoneField.InvalidAttempt, phoneExample), f.now())
	default:
		s.AppendAssistant(reaskMessage("phone number", s.PhoneField.InvalidAttempt), f.now())
	}
	return nil
}

func (f *Flow) storePhone(ctx context.Context, s *session.State) error {
	phone := f.extractOr(ctx, s, "phone", s.LastApplicantMessage())

	if validPhone(phone) {
		s.Phone = strings.TrimSpace(phone)
		s.PhoneField.Reset()
		return nil
	}

	s.PhoneField.ValidationFailed = true
	s.PhoneField.InvalidAttempt = phone
	s.PhoneField.AttemptCount++
	return nil
}

// ==================== phone verification ====================

func (f *Flow) sendPhoneOTP(ctx context.Context, s *session.State) error {
	code, err := otp.GenerateCode()
	if err != nil {
		return err
	}

	s.PhoneOTP.Reset()
	s.PhoneOTP.Code = code
	s.PhoneOTP.IssuedAt = f.now()

	if err := f.deps.SMS.SendSMSOTP(ctx, s.Phone, code); err != nil {
		f.logger.Warn().Err(err).
			Str("thread_id", s.ThreadID).
			Msg("sms code delivery failed")
		s.PhoneOTP.SendFailed = true
		s.PhoneField.ValidationFailed = true
		s.PhoneField.InvalidAttempt = s.Phone
		s.AppendAssistant(otpSendFailureMessage, f.now())
		return nil
	}

	s.AppendAssistant(phoneOTPSentMessage(s.Phone), f.now())
	return nil
}

func (f *Flow) askPhoneOTP(_ context.Context, s *session.State) error {
	s.AppendAssistant(askPhoneOTPMessage, f.now())
	return nil
}

func (f *Flow) verifyPhoneOTP(_ context.Context, s *session.State) error {
	input := s.LastApplicantMessage()

	if otp.IsResendCommand(input) {
		s.PhoneOTP.Attempts = 0
		s.PhoneOTP.ResendRequested = true
		return nil
	}

	switch otp.Verify(input, s.PhoneOTP.Code, s.PhoneOTP.IssuedAt, f.cfg.PhoneOTPTTL, f.now()) {
	case otp.Valid:
		// No confirmation line here, the flow moves straight on.
		s.PhoneOTP.Verified = true
	case otp.Expired:
		s.PhoneOTP.Attempts = 0
		s.PhoneOTP.ResendRequested = true
		s.AppendAssistant(otpExpiredMessage, f.now())
	case otp.InvalidFormat:
		s.AppendAssistant(otpBadFormatMessage, f.now())
	case otp.Incorrect:
		s.PhoneOTP.Attempts++
		if s.PhoneOTP.Attempts >= f.cfg.MaxOTPAttempts {
			s.PhoneField.ValidationFailed = true
			s.AppendAssistant(phoneOTPFailureMessage, f.now())
		} else {
			s.AppendAssistant(otpIncorrectMessage(s.PhoneOTP.Attempts, f.cfg.MaxOTPAttempts), f.now())
		}
	}
	return nil
}

// ==================== address and GPS cross-check ====================

func (f *Flow) askAddress(_ context.Context, s *session.State) error {
	switch {
	case !s.AddressField.ValidationFailed:
		s.AppendAssistant(askAddressMessage, f.now())
	case s.AddressField.AttemptCount >= f.cfg.MaxFieldAttempts:
		s.AppendAssistant(reaskWithExampleMessage("address", s.AddressField.InvalidAttempt, addressExample), f.now())
	default:
		s.AppendAssistant(reaskMessage("address", s.AddressField.InvalidAttempt), f.now())
	}
	return nil
}

func (f *Flow) storeAddress(ctx context.Context, s *session.State) error {
	address := f.extractOr(ctx, s, "address", s.LastApplicantMessage())

	if validAddress(address) {
		s.Address = session.Address{Full: strings.TrimSpace(address)}
		s.AddressField.Reset()
		return nil
	}

	s.AddressField.ValidationFailed = true
	s.AddressField.InvalidAttempt = address
	s.AddressField.AttemptCount++
	return nil
}

func (f *Flow) askGPS(_ context.Context, s *session.State) error {
	s.AppendAssistant(askGPSMessage, f.now())
	return nil
}

// verifyLocation is advisory: a skip, a bad input, or a geocoder
// outage leaves a flag on the report and the conversation moves on.
func (f *Flow) verifyLocation(ctx context.Context, s *session.State) error {
	input := s.LastApplicantMessage()

	if isSkip(input) {
		s.LocationVerified = true
		s.LocationReason = "Applicant skipped location sharing"
		return nil
	}

	lat, lng, ok := parseCoordinates(input)
	if !ok {
		s.LocationVerified = true
		s.LocationReason = "Location could not be read"
		return nil
	}

	s.GPS = &session.Coordinates{Lat: lat, Lng: lng}
	check := f.deps.Location.CrossCheck(ctx, s.Address.Full, lat, lng)
	s.LocationVerified = check.Verified
	s.LocationFlagged = check.Flagged
	s.LocationReason = check.Reason
	s.DistanceMiles = check.DistanceMiles
	return nil
}

// ==================== background ====================

func (f *Flow) askExperience(_ context.Context, s *session.State) error {
	s.AppendAssistant(askExperienceMessage, f.now())
	return nil
}

func (f *Flow) storeExperience(ctx context.Context, s *session.State) error {
	raw := f.extractOr(ctx, s, "experience", s.LastApplicantMessage())
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			s.WorkExperience = append(s.WorkExperience, trimmed)
		}
	}
	return nil
}

func (f *Flow) askEducation(_ context.Context, s *session.State) error {
	if s.EducationField.ValidationFailed {
		s.AppendAssistant(reaskMessage("education level", s.EducationField.InvalidAttempt), f.now())
		return nil
	}
	s.AppendAssistant(askEducationMessage, f.now())
	return nil
}

func (f *Flow) storeEducation(ctx context.Context, s *session.State) error {
	level := strings.TrimSpace(f.extractOr(ctx, s, "education", s.LastApplicantMessage()))
	if level == "" {
		s.EducationField.ValidationFailed = true
		s.EducationField.InvalidAttempt = level
		s.EducationField.AttemptCount++
		return nil
	}
	s.EducationLevel = level
	s.EducationField.Reset()
	return nil
}

// ==================== screening questions ====================

func (f *Flow) acknowledgeQuestions(_ context.Context, s *session.State) error {
	s.AppendAssistant(ackQuestionsMessage, f.now())
	return nil
}

func (f *Flow) askQuestion(_ context.Context, s *session.State) error {
	if q := s.CurrentQuestion(); q != "" {
		s.AppendAssistant(q, f.now())
	}
	return nil
}

func (f *Flow) storeAnswer(_ context.Context, s *session.State) error {
	if q := s.CurrentQuestion(); q != "" {
		s.Answers[q] = s.LastApplicantMessage()
		s.QuestionIndex++
	}
	return nil
}

// ==================== scoring and finalization ====================

// score records per-question scores and recomputes the total as their
// sum. A failed scorer yields all-zero scores, never a dead session.
func (f *Flow) score(ctx context.Context, s *session.State) error {
	scores, err := f.deps.Scorer.Score(ctx, s.Answers, s.Job.ScoringRules)
	if err != nil {
		f.logger.Warn().Err(err).
			Str("thread_id", s.ThreadID).
			Msg("scorer unavailable, recording zero scores")
		scores = map[string]float64{}
	}

	s.Scores = map[string]float64{}
	s.TotalScore = 0
	for _, question := range s.Job.Questions {
		score := scores[question]
		s.Scores[question] = score
		s.TotalScore += score
	}

	s.Percentage = 0
	if s.MaxScore > 0 {
		s.Percentage = s.TotalScore / s.MaxScore * 100
	}
	if s.Percentage < 0 {
		s.Percentage = 0
	}
	if s.Percentage > 100 {
		s.Percentage = 100
	}
	return nil
}

func (f *Flow) summarize(ctx context.Context, s *session.State) error {
	r := report.Build(s, f.now())
	if err := report.SubmitWithRetry(ctx, f.deps.Sink, r, f.cfg.ReportRetryBudget); err != nil {
		f.logger.Error().Err(err).
			Str("thread_id", s.ThreadID).
			Msg("report submission failed after retries")
		return nil
	}
	s.ReportSubmitted = true
	return nil
}

func (f *Flow) finish(_ context.Context, s *session.State) error {
	s.AppendAssistant(endMessage, f.now())
	for _, msg := range closingMessages(f.cfg.Company) {
		s.AppendAssistant(msg, f.now())
	}

	if f.cfg.ReArm {
		s.Reset()
	}
	return nil
}
