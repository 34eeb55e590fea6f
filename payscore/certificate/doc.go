// Package certificate keeps the gateway platform certificates used to verify
// response and notification signatures.
//
// A Manager downloads the certificate list, opens each encrypted certificate
// with the APIv3 key, and indexes the results by their uppercase hex serial
// number. Certificates are persisted through a Cache so several processes can
// share one download. A signature naming an unknown serial triggers a single
// refresh before the lookup fails.
package certificate
