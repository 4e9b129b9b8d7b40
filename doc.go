// Package auth implements the account and invitation core of the learnit
// backend: credential verification, JWT session issuance and refresh, the
// invite/activate onboarding flow, self-service registration, and
// token-based password recovery.
//
// Token purposes:
//   - Access, activation, and password reset tokens share one signing
//     secret; refresh tokens use a second one. A token minted for one
//     purpose fails signature verification under the other, so a leaked
//     refresh token cannot stand in for an access token.
//   - Claims are fixed to {sub, email, exp, iat}. Validity durations come
//     from Config; callers never choose expiry.
//
// Invitation lifecycle:
//   - InviteUserHandler creates a pending user with an unguessable password
//     placeholder, an active invitation row, and mails an activation URL
//     carrying a multi-day token.
//   - ActivateUserHandler consumes that token: password policy, bcrypt hash,
//     pending to active transition, invitation accepted. All store writes
//     happen in one transaction; any failure leaves both records untouched.
//
// Direct accounts:
//   - RegisterUserHandler creates an active student account from a sign-up
//     and hands back its first session.
//   - InitializePasswordResetHandler and FinalizePasswordResetHandler cover
//     recovery: a short-lived reset token is mailed, then redeemed for a
//     new password. Unknown addresses get the same answer as known ones.
//
// Persistence and notification are collaborators: repositories run on bun,
// and the Mailer interface abstracts delivery (best-effort, never blocking
// the invitation).
package auth
