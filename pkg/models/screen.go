package models

// Screen selects which screen component the presentation layer renders.
// Navigation is a direct state assignment; there is no history stack.
type Screen string

const (
	ScreenSignIn         Screen = "sign_in"
	ScreenSignUp         Screen = "sign_up"
	ScreenForgotPassword Screen = "forgot_password"
	ScreenResetPassword  Screen = "reset_password"
	ScreenHome           Screen = "home"
	ScreenSearch         Screen = "search"
	ScreenPayments       Screen = "payments"
	ScreenAccount        Screen = "account"
)
