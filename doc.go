// Package accounts provides the account backend: registration, login with a
// single active session per user, password reset grants, account
// verification, and the notification pipeline that emails users about each
// of those events.
//
// Session policy:
//   - TokenService issues signed session tokens and records exactly one
//     session row per user. Issuing a new token replaces any previous row in
//     the same transaction, so the newest login wins and the table never
//     holds two sessions for one account.
//
// Notification fan out:
//   - Notifier wraps an AccountManager and enqueues a job after each
//     successful lifecycle operation. Delivery failures never surface to the
//     caller, the request already succeeded by the time the job is queued.
//   - The queue package consumes those jobs with one worker per kind and
//     composes the outgoing email from the current user record at delivery
//     time, not from the request that queued it.
//
// Verification state:
//   - Users carry a Verified flag paired with VerifiedAt. The pair only
//     changes through UserStore.UpdateVerificationState so the two fields
//     cannot drift apart.
package accounts
