// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// Crawled URLs are untrusted input: trap pages hand out session ids, signed
// download links and occasionally credentials in the userinfo part. The
// SecureHandler masks them before they reach the log:
//   - Attribute keys that name a secret (cookie, authorization, token, session)
//   - Values that look like credentials (JWT, Bearer and Basic tokens)
//   - Session ids, tokens and signatures in URL query strings
//   - Passwords in URL userinfo
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("page rejected",
//	    "url", "http://www.ics.uci.edu/x?sid=abc", // logged as sid=***REDACTED***
//	    "reason", "near_duplicate",
//	)
package log
