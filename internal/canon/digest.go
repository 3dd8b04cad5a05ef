package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/boysref/internal/eri"
	"github.com/roach88/boysref/internal/vectorfile"
)

// Domain prefixes keep digests of different kinds of content apart.
const (
	DomainVectorFile   = "boysref/vectorfile/v1"
	DomainIntegralFile = "boysref/erifile/v1"
	DomainReport       = "boysref/report/v1"
)

// hashWithDomain returns hex(SHA256(domain || 0x00 || data)).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// FileDigest identifies the numerical content of a test vector file.
// Comment lines do not contribute, nor do trailing zeros of t or the
// formatting of values, which enter rounded to the declared precision.
func FileDigest(f *vectorfile.File) (string, error) {
	vectors := make([]any, len(f.Vectors))
	for i, v := range f.Vectors {
		value, err := vectorfile.FormatSci(v.Value, f.Precision)
		if err != nil {
			return "", fmt.Errorf("vector %d: %w", i, err)
		}
		t, _ := new(apd.Decimal).Reduce(v.T)
		t.Negative = t.Negative && !t.IsZero()
		vectors[i] = map[string]any{
			"m":     v.M,
			"t":     t.Text('e'),
			"value": value,
		}
	}
	data, err := MarshalCanonical(map[string]any{
		"precision": f.Precision,
		"vectors":   vectors,
	})
	if err != nil {
		return "", fmt.Errorf("FileDigest: %w", err)
	}
	return hashWithDomain(DomainVectorFile, data), nil
}

// IntegralFileDigest identifies the numerical content of an integral file
// the way FileDigest does for Boys vectors. Each entry enters through the
// reduced text of its Gaussians and its rounded value.
func IntegralFileDigest(f *eri.File) (string, error) {
	entries := make([]any, len(f.Entries))
	for i, e := range f.Entries {
		value, err := vectorfile.FormatSci(e.Value, f.Precision)
		if err != nil {
			return "", fmt.Errorf("entry %d: %w", i, err)
		}
		gaussians := make([]any, len(e.Quartet))
		for j, g := range e.Quartet {
			gaussians[j] = g.String()
		}
		entries[i] = map[string]any{
			"gaussians": gaussians,
			"value":     value,
		}
	}
	data, err := MarshalCanonical(map[string]any{
		"precision": f.Precision,
		"entries":   entries,
	})
	if err != nil {
		return "", fmt.Errorf("IntegralFileDigest: %w", err)
	}
	return hashWithDomain(DomainIntegralFile, data), nil
}

// ReportDigest identifies the outcome of a verification: which vectors
// failed for which source. Two runs over the same inputs share a digest.
func ReportDigest(fileDigest string, sources map[string][]string) (string, error) {
	obj := map[string]any{"file": fileDigest}
	srcs := make(map[string]any, len(sources))
	for name, failed := range sources {
		srcs[name] = failed
	}
	obj["sources"] = srcs
	data, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ReportDigest: %w", err)
	}
	return hashWithDomain(DomainReport, data), nil
}
