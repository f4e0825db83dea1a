// Package auth implements campus-restricted account registration,
// OTP-based email verification, and opaque bearer token login.
//
// Account lifecycle:
//   - Accounts are created pending, bound to an institutional email
//     domain, and activated only by redeeming the OTP challenge that
//     signup issued. AccountStateMachine owns the pending to active
//     transition and persists it through the Users repository.
//   - Each account holds at most one OTP challenge; reissuing replaces
//     the previous code and redemption is a single conditional update,
//     so a code can never be consumed twice.
//
// Tokens:
//   - Login issues a durable opaque token, one per account, created on
//     first successful login and returned unchanged on every later
//     one. RequireToken guards routes by resolving the token back to
//     its owning identity.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther, the
//     commands, and the state machine to describe registration,
//     verification, and login events. Sinks run best-effort (errors
//     are logged) so you can forward to a database or queue without
//     blocking authentication.
package auth
