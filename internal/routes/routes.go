package routes

import "net/url"

// Page routes shared by the session manager, the stores and the front-ends.
const (
	Landing     = "/"
	Login       = "/login"
	Register    = "/register"
	Forgot      = "/forgot"
	Reset       = "/reset"
	VerifyEmail = "/auth/verify-email"
	Bikes       = "/bikes"
	BikeNew     = "/bikes/new"
	Sheds       = "/sheds"
)

// BikeAnalyser is the detail page of one bike.
func BikeAnalyser(bikeID string) string {
	return "/bike_analyser/" + url.PathEscape(bikeID)
}

// Shed is the detail page of one shed.
func Shed(shedID string) string {
	return "/sheds/" + url.PathEscape(shedID)
}
