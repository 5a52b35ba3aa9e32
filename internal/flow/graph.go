package flow

import (
	"cleo-screening/internal/engine"
	"cleo-screening/internal/session"
)

// Node names.
const (
	nodeGreeting        = "greeting"
	nodeCheckReady      = "check_ready"
	nodeAcknowledge     = "acknowledge"
	nodeDecline         = "decline"
	nodeAskKnockout     = "ask_knockout"
	nodeStoreKnockout   = "store_knockout"
	nodeEvalKnockout    = "evaluate_knockout"
	nodeAskName         = "ask_name"
	nodeStoreName       = "store_name"
	nodeAskEmail        = "ask_email"
	nodeStoreEmail      = "store_email"
	nodeSendEmailOTP    = "send_email_otp"
	nodeAskEmailOTP     = "ask_email_otp"
	nodeVerifyEmailOTP  = "verify_email_otp"
	nodeAskPhone        = "ask_phone"
	nodeStorePhone      = "store_phone"
	nodeSendPhoneOTP    = "send_phone_otp"
	nodeAskPhoneOTP     = "ask_phone_otp"
	nodeVerifyPhoneOTP  = "verify_phone_otp"
	nodeAskAddress      = "ask_address"
	nodeStoreAddress    = "store_address"
	nodeAskGPS          = "ask_gps"
	nodeVerifyLocation  = "verify_location"
	nodeAskExperience   = "ask_experience"
	nodeStoreExperience = "store_experience"
	nodeAskEducation    = "ask_education"
	nodeStoreEducation  = "store_education"
	nodeAckQuestions    = "acknowledge_questions"
	nodeAskQuestion     = "ask_question"
	nodeStoreAnswer     = "store_answer"
	nodeScore           = "score"
	nodeSummarize       = "summarize"
	nodeFinish          = "finish"
)

// Graph wires the screening conversation into an engine graph.
func (f *Flow) Graph() engine.Graph {
	return engine.Graph{
		Entry: nodeGreeting,
		Nodes: map[string]engine.NodeFunc{
			nodeGreeting:        f.greeting,
			nodeCheckReady:      f.checkReady,
			nodeAcknowledge:     f.acknowledge,
			nodeDecline:         f.decline,
			nodeAskKnockout:     f.askKnockout,
			nodeStoreKnockout:   f.storeKnockout,
			nodeEvalKnockout:    f.evaluateKnockout,
			nodeAskName:         f.askName,
			nodeStoreName:       f.storeName,
			nodeAskEmail:        f.askEmail,
			nodeStoreEmail:      f.storeEmail,
			nodeSendEmailOTP:    f.sendEmailOTP,
			nodeAskEmailOTP:     f.askEmailOTP,
			nodeVerifyEmailOTP:  f.verifyEmailOTP,
			nodeAskPhone:        f.askPhone,
			nodeStorePhone:      f.storePhone,
			nodeSendPhoneOTP:    f.sendPhoneOTP,
			nodeAskPhoneOTP:     f.askPhoneOTP,
			nodeVerifyPhoneOTP:  f.verifyPhoneOTP,
			nodeAskAddress:      f.askAddress,
			nodeStoreAddress:    f.storeAddress,
			nodeAskGPS:          f.askGPS,
			nodeVerifyLocation:  f.verifyLocation,
			nodeAskExperience:   f.askExperience,
			nodeStoreExperience: f.storeExperience,
			nodeAskEducation:    f.askEducation,
			nodeStoreEducation:  f.storeEducation,
			nodeAckQuestions:    f.acknowledgeQuestions,
			nodeAskQuestion:     f.askQuestion,
			nodeStoreAnswer:     f.storeAnswer,
			nodeScore:           f.score,
			nodeSummarize:       f.summarize,
			nodeFinish:          f.finish,
		},
		Edges: map[string]string{
			nodeGreeting:        nodeCheckReady,
			nodeDecline:         engine.End,
			nodeAskKnockout:     nodeStoreKnockout,
			nodeStoreKnockout:   nodeEvalKnockout,
			nodeAskName:         nodeStoreName,
			nodeAskEmail:        nodeStoreEmail,
			nodeAskEmailOTP:     nodeVerifyEmailOTP,
			nodeAskPhone:        nodeStorePhone,
			nodeAskPhoneOTP:     nodeVerifyPhoneOTP,
			nodeAskAddress:      nodeStoreAddress,
			nodeAskGPS:          nodeVerifyLocation,
			nodeVerifyLocation:  nodeAskExperience,
			nodeAskExperience:   nodeStoreExperience,
			nodeStoreExperience: nodeAskEducation,
			nodeAskEducation:    nodeStoreEducation,
			nodeAckQuestions:    nodeAskQuestion,
			nodeAskQuestion:     nodeStoreAnswer,
			nodeScore:           nodeSummarize,
			nodeSummarize:       nodeFinish,
		},
		Routers: map[string]engine.RouterFunc{
			nodeCheckReady:     f.routeReady,
			nodeAcknowledge:    f.routeAcknowledged,
			nodeEvalKnockout:   f.routeKnockout,
			nodeStoreName:      f.routeStoredName,
			nodeStoreEducation: f.routeStoredEducation,
			nodeStoreEmail:     f.routeStoredEmail,
			nodeSendEmailOTP:   f.routeSentEmailOTP,
			nodeVerifyEmailOTP: f.routeVerifiedEmailOTP,
			nodeStorePhone:     f.routeStoredPhone,
			nodeSendPhoneOTP:   f.routeSentPhoneOTP,
			nodeVerifyPhoneOTP: f.routeVerifiedPhoneOTP,
			nodeStoreAddress:   f.routeStoredAddress,
			nodeStoreAnswer:    f.routeStoredAnswer,
			nodeFinish:         f.routeFinish,
		},
		Allowed: map[string][]string{
			nodeCheckReady:     {nodeAcknowledge, nodeDecline},
			nodeAcknowledge:    {nodeAskKnockout, nodeAskName},
			nodeEvalKnockout:   {nodeAskKnockout, nodeAskName, engine.End},
			nodeStoreName:      {nodeAskName, nodeAskEmail},
			nodeStoreEducation: {nodeAskEducation, nodeAckQuestions},
			nodeStoreEmail:     {nodeAskEmail, nodeSendEmailOTP},
			nodeSendEmailOTP:   {nodeAskEmailOTP, nodeAskEmail},
			nodeVerifyEmailOTP: {nodeAskEmailOTP, nodeAskPhone, nodeSendEmailOTP, nodeAskEmail},
			nodeStorePhone:     {nodeAskPhone, nodeSendPhoneOTP},
			nodeSendPhoneOTP:   {nodeAskPhoneOTP, nodeAskPhone},
			nodeVerifyPhoneOTP: {nodeAskPhoneOTP, nodeAskAddress, nodeSendPhoneOTP, nodeAskPhone},
			nodeStoreAddress:   {nodeAskAddress, nodeAskGPS},
			nodeStoreAnswer:    {nodeAskQuestion, nodeScore},
			nodeFinish:         {nodeGreeting, engine.End},
		},
		Suspend: map[string]bool{
			nodeGreeting:      true,
			nodeAskKnockout:   true,
			nodeAskName:       true,
			nodeAskEmail:      true,
			nodeAskEmailOTP:   true,
			nodeAskPhone:      true,
			nodeAskPhoneOTP:   true,
			nodeAskAddress:    true,
			nodeAskGPS:        true,
			nodeAskExperience: true,
			nodeAskEducation:  true,
			nodeAskQuestion:   true,
		},
	}
}

// ==================== routers ====================

func (f *Flow) routeReady(s *session.State) string {
	if s.ReadyConfirmed {
		return nodeAcknowledge
	}
	return nodeDecline
}

func (f *Flow) routeAcknowledged(s *session.State) string {
	if s.KnockoutPassed {
		return nodeAskName
	}
	return nodeAskKnockout
}

func (f *Flow) routeKnockout(s *session.State) string {
	if s.KnockoutFailedCurrent {
		return engine.End
	}
	if !s.KnockoutPassed {
		return nodeAskKnockout
	}
	return nodeAskName
}

func (f *Flow) routeStoredName(s *session.State) string {
	if s.NameField.ValidationFailed {
		return nodeAskName
	}
	return nodeAskEmail
}

func (f *Flow) routeStoredEducation(s *session.State) string {
	if s.EducationField.ValidationFailed {
		return nodeAskEducation
	}
	return nodeAckQuestions
}

func (f *Flow) routeStoredEmail(s *session.State) string {
	if s.EmailField.ValidationFailed {
		return nodeAskEmail
	}
	return nodeSendEmailOTP
}

func (f *Flow) routeSentEmailOTP(s *session.State) string {
	if s.EmailOTP.SendFailed {
		return nodeAskEmail
	}
	return nodeAskEmailOTP
}

// routeVerifiedEmailOTP checks conditions in fixed precedence:
// verified, then resend (explicit or expired), then attempt exhaustion,
// then another try.
func (f *Flow) routeVerifiedEmailOTP(s *session.State) string {
	if s.EmailOTP.Verified {
		return nodeAskPhone
	}
	if s.EmailOTP.ResendRequested {
		return nodeSendEmailOTP
	}
	if s.EmailField.ValidationFailed {
		return nodeAskEmail
	}
	return nodeAskEmailOTP
}

func (f *Flow) routeStoredPhone(s *session.State) string {
	if s.PhoneField.ValidationFailed {
		return nodeAskPhone
	}
	return nodeSendPhoneOTP
}

func (f *Flow) routeSentPhoneOTP(s *session.State) string {
	if s.PhoneOTP.SendFailed {
		return nodeAskPhone
	}
	return nodeAskPhoneOTP
}

func (f *Flow) routeVerifiedPhoneOTP(s *session.State) string {
	if s.PhoneOTP.Verified {
		return nodeAskAddress
	}
	if s.PhoneOTP.ResendRequested {
		return nodeSendPhoneOTP
	}
	if s.PhoneField.ValidationFailed {
		return nodeAskPhone
	}
	return nodeAskPhoneOTP
}

func (f *Flow) routeStoredAddress(s *session.State) string {
	if s.AddressField.ValidationFailed {
		return nodeAskAddress
	}
	return nodeAskGPS
}

func (f *Flow) routeStoredAnswer(s *session.State) string {
	if s.QuestionIndex < len(s.Job.Questions) {
		return nodeAskQuestion
	}
	return nodeScore
}

func (f *Flow) routeFinish(*session.State) string {
	if f.cfg.ReArm {
		return nodeGreeting
	}
	return engine.End
}
