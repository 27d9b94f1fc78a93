// Package auth issues and verifies credentials for the Hirable platform.
//
// The package is split the way a request flows through it:
//
//   - BcryptHasher turns passwords into self describing digests and checks
//     them. Passwords are limited to 72 bytes.
//   - TokenServiceImpl signs and validates short lived HMAC access tokens.
//     Every validation failure, expiry included, is reported as
//     ErrInvalidToken.
//   - UserProvider checks an email/password pair against a UserStore. An
//     unknown email and a wrong password are indistinguishable to callers.
//   - Auther is the session issuer behind the JSON login and the OAuth2
//     password grant. It stamps last_login after minting the token.
//   - RegisterUserHandler creates student accounts.
//   - PrincipalResolver maps a bearer token back to an active user and is the
//     only source of identity for protected routes.
//
// RegisterAuthRoutes mounts the HTTP surface on a fiber router. Errors are
// go-errors values and NewHTTPErrorHandler renders them as JSON, adding a
// Bearer challenge to every 401.
//
// ActivitySink and ClaimsDecorator are optional extension points. Sinks run
// best effort, decorators may only touch token Metadata.
package auth
