// Package donation celebrates large gold donations to the clan vault.
//
// The delivery worker calls Hook.OnDelivered after relaying every vault
// deposit. Deposits of at least MinAmount gold produce a commendation embed in
// the donation channel; everything else is ignored.
package donation
