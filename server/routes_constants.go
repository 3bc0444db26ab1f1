package server

// Form actions. Every one of them is a POST checked by the CSRF middleware.
const (
	ActionLogin    = "/actions/login"
	ActionRegister = "/actions/register"
	ActionLogout   = "/actions/logout"
	ActionForgot   = "/actions/forgot"
	ActionReset    = "/actions/reset"
	ActionVerify   = "/actions/verify"

	ActionBikeCreate = "/actions/bikes"
	ActionBikeDelete = "/actions/bikes/{bike_id}/delete"
	ActionBikeStep   = "/actions/bikes/{bike_id}/step"

	ActionShedCreate = "/actions/sheds"
	ActionShedDelete = "/actions/sheds/{shed_id}/delete"
	ActionShedToggle = "/actions/sheds/{shed_id}/bikes/{bike_id}/toggle"
	ActionShedFilter = "/actions/sheds/{shed_id}/filter"
)

// Page patterns for the mux. Detail pages take their id from the path.
const (
	PageLanding      = "/{$}"
	PageBikeAnalyser = "/bike_analyser/{bike_id}"
	PageShed         = "/sheds/{shed_id}"

	RouteStaticFile = "/static/{file}"
)

const (
	paramBikeID = "bike_id"
	paramShedID = "shed_id"
)
