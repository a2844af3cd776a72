package constants

const (
	APP_MARKETCLUB         = "marketclub"
	APP_STOREFRONT_SERVICE = "storefront-service"
	APP_STOREFRONT_CLI     = "storefront-cli"
)

const (
	REFERENCE_PREFIX_ORDER        = "ORDER_"
	REFERENCE_PREFIX_SUBSCRIPTION = "SUBSCRIPTION_"
)
