package flow

import "fmt"

// Canned conversation copy. Applicant-facing text is always plain;
// internal failures only change which line is picked.

const (
	declineMessage = "No problem at all! Thanks for stopping by. Feel free to reach out anytime. Take care!"

	knockoutFailureMessage = "Thank you for your interest! Unfortunately, based on your responses, you don't meet our basic requirements at this time. We appreciate you taking the time to chat with us. Best of luck in your job search!"

	acknowledgeMessage = "Let's continue!"

	askNameMessage = "Awesome! Let's get your application file started. To begin, what is your first and last name?"

	askEmailMessage = "Great, thanks! What is the best email address to reach you at?"

	askPhoneMessage = "And finally, what is your phone number in case we need to call you for an interview?"

	otpSendFailureMessage = "We're currently unable to send a verification code. Let's double-check your contact details and try again shortly."

	askEmailOTPMessage = "Please enter the 6-digit code from your email:"

	askPhoneOTPMessage = "Please enter the 6-digit code from your phone:"

	emailOTPSuccessMessage = "Success! Your email address is confirmed."

	otpExpiredMessage = "That code has expired. Let me send you a fresh one."

	otpBadFormatMessage = "Please enter a 6-digit code (numbers only)."

	emailOTPFailureMessage = "Hmm, that code didn't work after 3 tries. Let's start over with your email address."

	phoneOTPFailureMessage = "Hmm, that code didn't work after 3 tries. Let's start over with your phone number."

	askAddressMessage = "Thanks! Now, what is your current home address? Please include street, city, state and zip."

	askGPSMessage = "If you're at or near home, you can share your location to help us verify your address. Reply with coordinates like 40.7128, -74.0060, or type skip."

	askExperienceMessage = "Tell me briefly about your recent work experience. What roles have you held?"

	askEducationMessage = "And what is the highest level of education you've completed?"

	ackQuestionsMessage = "Thanks! For sharing your contact details with us. Now we are moving on next stage."

	endMessage = "Great Job! You've successfully completed the initial application. Your information has been securely saved and submitted."

	emailExample = "john.doe@example.com"

	phoneExample = "+1-234-567-8900 or 2345678900"

	addressExample = "123 Main St, Springfield, IL 62704"
)

func greetingMessages(company string) []string {
	return []string{
		fmt.Sprintf("Hello! I'm Cleo, the hiring assistant for %s.", company),
		"Thanks for your interest - we're a friendly, locally-owned team, and I'm here to make your application process smooth and fast.",
		"I'll guide you through a quick screening. It takes less than 3 minutes in total, and we can begin whenever you're ready.",
	}
}

func closingMessages(company string) []string {
	return []string{
		"Our hiring team will take it from here. Your application will be carefully reviewed. If you are selected to move forward, we will contact you via email or phone to schedule an interview or conduct a brief background check prior to scheduling the interview.",
		fmt.Sprintf("You can expect to hear from us regarding your status within 1-2 business days. Thank you again for your time and interest in working with %s.", company),
	}
}

func reaskMessage(fieldLabel, invalidAttempt string) string {
	if invalidAttempt == "" {
		return fmt.Sprintf("Hmm, that doesn't look like a valid %s. Could you double-check and send it again?", fieldLabel)
	}
	return fmt.Sprintf("Hmm, %q doesn't look like a valid %s. Could you double-check and send it again?", invalidAttempt, fieldLabel)
}

func reaskWithExampleMessage(fieldLabel, invalidAttempt, example string) string {
	return fmt.Sprintf("%s For example: %s", reaskMessage(fieldLabel, invalidAttempt), example)
}

func emailOTPSentMessage(email string) string {
	return fmt.Sprintf("Okay, I've just sent a 6-digit verification code to %s. Please check your inbox (and spam folder)", email)
}

func phoneOTPSentMessage(phone string) string {
	return fmt.Sprintf("I'm sending a verification text with a 6-digit code to %s now. Please check your messages.", phone)
}

func otpIncorrectMessage(attempts, max int) string {
	return fmt.Sprintf("Hmm, that code didn't work. Please enter a correct 6-digit code (numbers only). (Attempt %d/%d)", attempts, max)
}
