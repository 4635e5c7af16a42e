package p10

import "github.com/antigravity-dev/ember/internal/canon"

// StableStringify renders v as canonical JSON — sorted object keys at
// every depth, array order preserved — so identical scenario results
// produce byte-identical output across runs and processes.
func StableStringify(v interface{}) (string, error) {
	b, err := canon.Canonicalize(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
