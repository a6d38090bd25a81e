package config

const (
	GinRequestBodyKey = "cached_request_body"
)
