package constants

const (
	APP_STOREFRONT       = "storefront"
	APP_PRODUCT_LISTENER = "product-change-listener"
	APP_CART_LISTENER    = "cart-change-listener"
	APP_MAIN             = "main mallofhookah"
	AUDIENCE_USER        = "audience-user"
)

const (
	KEY_APP_NAME        = "app"
	KEY_BODY            = "body"
	KEY_CACHE_KEY       = "cacheKey"
	KEY_CART_ITEMS      = "cartItems"
	KEY_CART_STORES     = "cartStores"
	KEY_CART_ITEM_ID    = "cartItemId"
	KEY_CHECKOUT_ID     = "checkoutId"
	KEY_CHECKOUT_STEP   = "checkoutStep"
	KEY_CONFIG          = "config"
	KEY_CONFIRMATION    = "confirmation"
	KEY_DELIVERY_METHOD = "deliveryMethod"
	KEY_DURATION        = "duration"
	KEY_EMAIL           = "email"
	KEY_HEADER          = "header"
	KEY_IDEMPOTENCY_KEY = "idempotencyKey"
	KEY_ORDER           = "order"
	KEY_ORDERS          = "orders"
	KEY_ORDER_ID        = "orderId"
	KEY_ORDER_ITEMS     = "orderItems"
	KEY_PAYMENT_METHOD  = "paymentMethod"
	KEY_POSTAL_CODE     = "postalCode"
	KEY_PROCEDURE       = "procedure"
	KEY_PROCESS         = "process"
	KEY_PRODUCT         = "product"
	KEY_PRODUCTS        = "products"
	KEY_PRODUCT_ID      = "productId"
	KEY_QUANTITY        = "quantity"
	KEY_REQUEST         = "request"
	KEY_REQUEST_HOST    = "host"
	KEY_REQUEST_ID      = "requestId"
	KEY_REQUEST_IP      = "requesterIP"
	KEY_REQUEST_METHOD  = "requestMethod"
	KEY_REQUEST_URI     = "requestURI"
	KEY_REQUEST_URL     = "requestURL"
	KEY_ROUTE           = "route"
	KEY_SEARCH_QUERY    = "searchQuery"
	KEY_SHIPPING_COST   = "shippingCost"
	KEY_SPAN_ID         = "spanId"
	KEY_STATUS_CODE     = "statusCode"
	KEY_SUBTOTAL        = "subtotal"
	KEY_TABLE           = "table"
	KEY_TAG             = "tag"
	KEY_TOKEN           = "token"
	KEY_TOTAL           = "total"
	KEY_TRACE_ID        = "traceId"
	KEY_USER_ID         = "userId"
)

const (
	CART_STORE_NAME        = "mall-of-hookah-cart"
	CHANNEL_AUTH_EVENTS    = "auth-events"
	KEY_CACHE_CONFIRMATION = "order-confirmation:%s"
	KEY_CACHE_EMAIL_SENT   = "order-confirmation-email:%s"
	KEY_CACHE_PRODUCT      = "product:%s"
)
