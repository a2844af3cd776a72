package http

const (
	KEY_HEADER_AUTHORIZATION      = "Authorization"
	KEY_HEADER_CONTENT_TYPE       = "Content-Type"
	KEY_HEADER_REQUEST_ID         = "X-Request-ID"
	KEY_HEADER_SESSION_ID         = "X-Session-ID"
	KEY_HEADER_WOMPI_SIGNATURE    = "X-Wompi-Signature"
	VALUE_HEADER_APPLICATION_JSON = "application/json"
	VALUE_BEARER_PREFIX           = "Bearer "
)
