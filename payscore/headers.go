package payscore

// Gateway HTTP headers carrying response and notification signatures.
const (
	HeaderTimestamp = "Wechatpay-Timestamp"
	HeaderNonce     = "Wechatpay-Nonce"
	HeaderSignature = "Wechatpay-Signature"
	HeaderSerial    = "Wechatpay-Serial"
	HeaderRequestID = "Request-ID"
)

// AlgorithmAEADAES256GCM names the only resource encryption the gateway uses.
const AlgorithmAEADAES256GCM = "AEAD_AES_256_GCM"
