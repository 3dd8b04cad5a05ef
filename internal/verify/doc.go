// Package verify compares candidate Boys function values against a
// reference test vector file.
//
// Agreement is always judged by relative difference evaluated in decimal
// arithmetic at max(declared, target) + boys.GuardDigits digits, never in
// float64:
//
//	|a − b| / max(|a|, |b|) <= 10^-target
//
// with a = b = 0 always agreeing. A disagreement is not an error. It is a
// Failure recorded in the Report, and evaluation carries on with the
// remaining vectors. Several candidate sources may be checked in one pass,
// each with its own tally.
package verify
