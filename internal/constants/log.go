package constants

const (
	KEY_APP_NAME           = "app"
	KEY_BODY               = "body"
	KEY_CACHE_KEY          = "cacheKey"
	KEY_CART_ITEM_QUANTITY = "cartItemQuantity"
	KEY_CART_ITEMS_COUNT   = "cartItemsCount"
	KEY_CONFIG             = "config"
	KEY_EVENT              = "event"
	KEY_HEADER             = "header"
	KEY_ORDER_ID           = "orderId"
	KEY_PAYMENT_SESSION    = "paymentSession"
	KEY_PROCESS            = "process"
	KEY_PRODUCT            = "product"
	KEY_PRODUCT_ID         = "productId"
	KEY_PRODUCT_STOCK      = "productStock"
	KEY_QUERY_PARAMS       = "queryParams"
	KEY_REASON             = "reason"
	KEY_REFERENCE          = "reference"
	KEY_REQUEST            = "request"
	KEY_REQUEST_BODY       = "requestBody"
	KEY_REQUEST_HOST       = "host"
	KEY_REQUEST_ID         = "requestId"
	KEY_REQUEST_IP         = "requesterIP"
	KEY_REQUEST_METHOD     = "requestMethod"
	KEY_REQUEST_URI        = "requestURI"
	KEY_RESPONSE           = "response"
	KEY_SESSION_ID         = "sessionId"
	KEY_SPAN_ID            = "spanId"
	KEY_STATUS_CODE        = "statusCode"
	KEY_TAG                = "tag"
	KEY_TRACE_ID           = "traceId"
	KEY_TRANSACTION_ID     = "transactionId"
	KEY_TRANSACTION_STATUS = "transactionStatus"
	KEY_URL                = "url"
)
