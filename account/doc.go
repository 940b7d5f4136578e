// Package account models the three principal stores (admins, creators, users) as a
// single tagged [Principal] behind the [Directory] interface.
//
// Lookups by email search the stores in [LookupOrder] and fall back to a
// case-insensitive match. Creation reserves the case-folded email in the
// account_emails table inside the same transaction, so one email never exists in
// more than one store.
package account
