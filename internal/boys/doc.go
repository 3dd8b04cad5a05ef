// Package boys evaluates the Boys function F_m(t) to a caller-chosen
// working precision.
//
// The Boys function is defined through the unnormalised lower incomplete
// gamma function:
//
//	F_m(t) = γ(m+1/2, t) / (2 t^(m+1/2))
//
// with the exact limit F_m(0) = 1/(2m+1). All arithmetic is performed with
// github.com/cockroachdb/apd/v3 decimals. Precision is always counted in
// significant decimal digits and is passed explicitly to every call; there
// is no package-level precision state, so evaluations are safe to run
// concurrently.
//
// # Precision
//
// The working precision bounds the rounding of every internal operation.
// It does not by itself guarantee that many correct digits: gamma
// evaluation and the final subtraction in the large-t branch consume a few
// digits. Callers wanting a result trustworthy to N digits should either
// evaluate at N + GuardDigits and round, or call Target which does exactly
// that.
//
// # Usage
//
//	t, err := boys.ParseArgument("2.5")
//	if err != nil {
//	    return err
//	}
//	v, err := boys.Target(4, t, 30)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(v.F.Text('e'))
package boys
