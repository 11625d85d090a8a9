package reviewpress

// errorBody is the JSON shape of every function error response.
type errorBody struct {
	Error string `json:"error"`
}

// healthBody is returned by /healthz.
type healthBody struct {
	Status string `json:"status"`
	Store  string `json:"store"`
	Cache  string `json:"cache"`
}
