// Package notify receives the gateway's encrypted event callbacks.
//
// A Parser verifies the callback signature over the raw body before touching
// its content, then opens the AEAD_AES_256_GCM resource with the APIv3 key.
// Handler adapts a Parser to a fiber route and answers in the format the
// gateway expects so failed deliveries are retried.
package notify
